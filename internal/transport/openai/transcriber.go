package openai

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/domain"
	"github.com/prepcoach/prepcoach/internal/metrics"
)

// Transcriber is a speech-to-text oracle using an OpenAI-compatible
// audio transcription API.
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
	logger   *zap.Logger
}

// TranscriberConfig holds the transcription oracle settings.
type TranscriberConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Logger   *zap.Logger
}

// NewTranscriber creates an OpenAI-compatible transcriber.
func NewTranscriber(cfg *TranscriberConfig) *Transcriber {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Transcriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		language: cfg.Language,
		logger:   cfg.Logger,
	}
}

// Transcribe sends the normalized WAV file and returns the spoken text.
// An empty transcript is a valid result for silent audio.
func (t *Transcriber) Transcribe(ctx context.Context, wavPath string) (string, error) {
	req := openai.AudioRequest{
		Model:    t.model,
		FilePath: wavPath,
		Language: t.language,
	}

	start := time.Now()
	resp, err := t.client.CreateTranscription(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.OracleRequestsTotal.WithLabelValues("transcription", t.model, "error").Inc()
		return "", parseAPIError("transcription", err, domain.ErrTranscriptionFailed)
	}

	metrics.OracleRequestsTotal.WithLabelValues("transcription", t.model, "success").Inc()
	metrics.OracleRequestDuration.WithLabelValues("transcription", t.model).Observe(duration.Seconds())

	t.logger.Debug("Transcription received",
		zap.Duration("duration", duration),
		zap.Int("transcript_len", len(resp.Text)),
	)

	return resp.Text, nil
}
