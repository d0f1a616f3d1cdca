package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/cache"
	"github.com/prepcoach/prepcoach/internal/config"
	"github.com/prepcoach/prepcoach/internal/corpus"
	"github.com/prepcoach/prepcoach/internal/domain"
	logpkg "github.com/prepcoach/prepcoach/internal/logger"
	"github.com/prepcoach/prepcoach/internal/metrics"
	"github.com/prepcoach/prepcoach/internal/repository/embcache"
	"github.com/prepcoach/prepcoach/internal/theory"
	chiTransport "github.com/prepcoach/prepcoach/internal/transport/chi"
	"github.com/prepcoach/prepcoach/internal/transport/ffmpeg"
	oracleTransport "github.com/prepcoach/prepcoach/internal/transport/openai"
	evaluateuc "github.com/prepcoach/prepcoach/internal/usecase/evaluate"
	healthuc "github.com/prepcoach/prepcoach/internal/usecase/health"
	searchuc "github.com/prepcoach/prepcoach/internal/usecase/search"
	"github.com/prepcoach/prepcoach/internal/version"
)

func main() {
	// .env is optional; real deployments set process env directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting prepcoach API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("corpus_path", cfg.Data.CorpusPath),
	)

	// The corpus is the product; refusing to start beats serving
	// an empty search index.
	store, err := corpus.Load(cfg.Data.CorpusPath, logger)
	if err != nil {
		logger.Fatal("Failed to load question corpus", zap.Error(err))
	}
	logger.Info("Corpus loaded",
		zap.Int("questions", store.Count()),
		zap.Int("with_embedding", store.EmbeddedCount()),
		zap.Int("dimensions", store.Dimensions()),
	)

	// Theory banks degrade gracefully: a missing subject file logs a
	// warning and the rest of the API keeps working.
	bank := theory.Load(cfg.Data.TheoryDir, cfg.Data.TheorySubjects, logger)
	logger.Info("Theory banks loaded", zap.Strings("subjects", bank.Subjects()))

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterOracleMetrics()

	// Optional embedding cache
	var kv *cache.Store
	if len(cfg.Cache.Addrs) > 0 {
		kv, err = cache.NewStore(cache.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer kv.Close()
		logger.Info("Embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Embedder chain: OpenAI -> Cached -> Instruction
	baseEmbedder := oracleTransport.NewEmbedder(&oracleTransport.EmbedderConfig{
		APIKey:     cfg.Oracle.APIKey,
		BaseURL:    cfg.Oracle.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	var queryEmbedder domain.Embedder = baseEmbedder
	if kv != nil {
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		queryEmbedder = embcache.New(queryEmbedder, kv, ttl, metrics.EmbeddingCacheTotal, logger)
	}
	if cfg.Embedding.QueryInstruction != "" {
		queryEmbedder = domain.NewInstructionEmbedder(queryEmbedder, cfg.Embedding.QueryInstruction)
	}
	logger.Info("Embedder chain created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cached", kv != nil),
	)

	judge := oracleTransport.NewJudge(&oracleTransport.JudgeConfig{
		APIKey:      cfg.Oracle.APIKey,
		BaseURL:     cfg.Oracle.BaseURL,
		Model:       cfg.Judge.Model,
		Temperature: cfg.Judge.Temperature,
		MaxTokens:   cfg.Judge.MaxOutputTokens,
		Logger:      logger,
	})

	transcriber := oracleTransport.NewTranscriber(&oracleTransport.TranscriberConfig{
		APIKey:   cfg.Oracle.APIKey,
		BaseURL:  cfg.Oracle.BaseURL,
		Model:    cfg.Transcription.Model,
		Language: cfg.Transcription.Language,
		Logger:   logger,
	})

	normalizer := ffmpeg.New(cfg.Evaluation.FFmpegPath, logger)

	searchSvc := searchuc.New(store, queryEmbedder)
	evalSvc := evaluateuc.New(store, bank, normalizer, transcriber, judge, cfg.Evaluation.TempDir)

	var cachePinger healthuc.CachePinger
	if kv != nil {
		cachePinger = kv
	}
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(baseEmbedder), cachePinger)

	maxAudioBytes := int64(cfg.Evaluation.MaxAudioSizeMB) << 20
	server := chiTransport.NewServer(store, bank, searchSvc, evalSvc, healthSvc, maxAudioBytes, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker probes the base oracle client directly; the
// decorated chain would hide provider failures behind cache hits.
type embeddingHealthChecker struct {
	base domain.HealthChecker
}

func newEmbeddingHealthChecker(base domain.HealthChecker) *embeddingHealthChecker {
	return &embeddingHealthChecker{base: base}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if err := h.base.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
