package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/config"
	"github.com/prepcoach/prepcoach/internal/domain"
	logpkg "github.com/prepcoach/prepcoach/internal/logger"
	oracleTransport "github.com/prepcoach/prepcoach/internal/transport/openai"
)

// Offline corpus embedding pipeline. Reads the master question file,
// embeds search_text for every entry and writes the vectorized corpus
// the API server loads at startup. Never runs in the request path.

const (
	batchSize  = 10
	maxRetries = 3
)

// Pacing and backoff are vars so tests can zero them.
var (
	retryDelay = time.Second
	// batchDelay paces batch API calls to stay under rate limits.
	batchDelay = 200 * time.Millisecond
)

func main() {
	inputPath := flag.String("in", "data/questions_master.json", "master question file")
	outputPath := flag.String("out", "data/questions_with_vectors.json", "vectorized output file")
	flag.Parse()

	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var embedder domain.Embedder = oracleTransport.NewEmbedder(&oracleTransport.EmbedderConfig{
		APIKey:     cfg.Oracle.APIKey,
		BaseURL:    cfg.Oracle.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	// Document-side instruction; the server applies the query-side one.
	// Both sides must use the same prefix scheme or rankings degrade.
	if cfg.Embedding.DocumentInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.DocumentInstruction)
	}

	if err := run(context.Background(), *inputPath, *outputPath, embedder, logger); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
}

func run(ctx context.Context, inputPath, outputPath string, embedder domain.Embedder, logger *zap.Logger) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read master file: %w", err)
	}

	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return fmt.Errorf("parse master file: %w", err)
	}
	if len(questions) == 0 {
		return errors.New("master file contains no questions")
	}

	logger.Info("Seeding corpus",
		zap.Int("questions", len(questions)),
		zap.Int("batch_size", batchSize),
	)

	var failed int
	for start := 0; start < len(questions); start += batchSize {
		end := start + batchSize
		if end > len(questions) {
			end = len(questions)
		}

		logger.Info("Processing batch",
			zap.Int("batch", start/batchSize+1),
			zap.Int("batches", (len(questions)+batchSize-1)/batchSize),
		)
		failed += seedBatch(ctx, embedder, questions[start:end], logger)

		if end < len(questions) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(batchDelay):
			}
		}
	}

	out, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	logger.Info("Seeding complete",
		zap.String("output", outputPath),
		zap.Int("total", len(questions)),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		logger.Warn("Some questions have no vector and will be excluded from search", zap.Int("failed", failed))
	}
	return nil
}

// seedBatch vectorizes one batch with a single API call when the
// embedder supports it, falling back to per-question embedding with
// retry so one bad entry cannot sink its batchmates. Returns the
// number of questions left without a vector.
func seedBatch(ctx context.Context, embedder domain.Embedder, batch []domain.Question, logger *zap.Logger) int {
	if be, ok := embedder.(domain.BatchEmbedder); ok {
		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].SearchText
		}

		res, err := be.BatchEmbed(ctx, texts)
		if err == nil && len(res.Embeddings) == len(batch) {
			for i := range batch {
				batch[i].Embedding = res.Embeddings[i]
				batch[i].SeedError = ""
			}
			logger.Info("Batch vectorized",
				zap.Int("questions", len(batch)),
				zap.Int("total_tokens", res.TotalTokens),
			)
			return 0
		}
		logger.Warn("Batch embedding failed, falling back to per-question", zap.Error(err))
	}

	var failed int
	for i := range batch {
		q := &batch[i]
		log := logger.With(zap.String("id", q.ID), zap.String("title", q.Title))

		vec, err := embedWithRetry(ctx, embedder, q.SearchText, log)
		if err != nil {
			// One bad question must not abort the batch; the server
			// excludes unvectorized entries at load time.
			log.Error("Embedding failed, question recorded without vector", zap.Error(err))
			q.Embedding = nil
			q.SeedError = err.Error()
			failed++
			continue
		}
		q.Embedding = vec
		q.SeedError = ""
		log.Info("Question vectorized", zap.Int("dimensions", len(vec)))
	}
	return failed
}

// embedWithRetry retries transient provider failures with a fixed
// delay before giving up on the question.
func embedWithRetry(ctx context.Context, embedder domain.Embedder, text string, log *zap.Logger) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			log.Warn("Retrying embedding",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", maxRetries),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		result, err := embedder.Embed(ctx, text)
		if err == nil {
			return result.Embedding, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
