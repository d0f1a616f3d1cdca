package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/domain"
	"github.com/prepcoach/prepcoach/internal/metrics"
)

// Judge is a generative scoring oracle using an OpenAI-compatible chat
// completion API.
type Judge struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// JudgeConfig holds the judge oracle settings.
type JudgeConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// NewJudge creates an OpenAI-compatible judge.
func NewJudge(cfg *JudgeConfig) *Judge {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Judge{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Generate sends the prompt as a single user message and returns the
// raw response text. Verdict parsing is the caller's concern.
func (j *Judge) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: j.temperature,
		MaxTokens:   j.maxTokens,
	}

	start := time.Now()
	resp, err := j.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.OracleRequestsTotal.WithLabelValues("judge", j.model, "error").Inc()
		return "", parseAPIError("judge", err, domain.ErrJudgeProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.OracleRequestsTotal.WithLabelValues("judge", j.model, "error").Inc()
		return "", fmt.Errorf("empty judge response: %w", domain.ErrJudgeProviderError)
	}

	metrics.OracleRequestsTotal.WithLabelValues("judge", j.model, "success").Inc()
	metrics.OracleRequestDuration.WithLabelValues("judge", j.model).Observe(duration.Seconds())

	j.logger.Debug("Judge response received",
		zap.Duration("duration", duration),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}
