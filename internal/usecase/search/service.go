package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/domain"
	"github.com/prepcoach/prepcoach/internal/domain/search/filter"
	"github.com/prepcoach/prepcoach/internal/logger"
	"github.com/prepcoach/prepcoach/internal/metrics"
)

// ScoredQuestion is a sanitized question with its similarity score
// attached. The underscore-prefixed JSON key matches the wire contract
// consumed by the UI.
type ScoredQuestion struct {
	domain.SanitizedQuestion
	SearchScore float64 `json:"_searchScore"`
}

// Telemetry reports what a search did and how long it took.
type Telemetry struct {
	Query           string         `json:"query"`
	Filters         filter.Filters `json:"filters"`
	CandidatesCount int            `json:"candidatesCount"`
	TotalCount      int            `json:"totalCount"`
	SearchTimeMs    int64          `json:"searchTimeMs"`
}

// Response is the full hybrid search result.
type Response struct {
	Results  []ScoredQuestion `json:"results"`
	Metadata Telemetry        `json:"metadata"`
}

// Service is the hybrid search orchestrator: metadata filtering first,
// then cosine ranking of the survivors against the query embedding.
type Service struct {
	corpus CorpusReader
	embed  Embedder
}

// New creates a search service.
func New(corpus CorpusReader, embed Embedder) *Service {
	return &Service{corpus: corpus, embed: embed}
}

// Search runs the hybrid pipeline. Exactly one embedding call per
// invocation; zero when filtering leaves no candidates (the empty
// short-circuit below never touches the oracle). Only sanitized
// projections leave this function.
func (s *Service) Search(
	ctx context.Context, query string, filters filter.Filters, topK int,
) (Response, error) {
	if query == "" {
		return Response{}, fmt.Errorf("%w: query is required", domain.ErrValidation)
	}

	start := time.Now()
	log := logger.FromContext(ctx)
	total := s.corpus.Count()

	candidates := filter.Apply(s.corpus.All(), filters)
	metrics.SearchCandidates.Observe(float64(len(candidates)))

	log.Debug("Search candidates after filtering",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("total", total),
	)

	if len(candidates) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues("empty").Inc()
		return Response{
			Results:  []ScoredQuestion{},
			Metadata: s.telemetry(query, filters, 0, total, start),
		}, nil
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return Response{}, fmt.Errorf("vectorize query: %w", err)
	}

	ranked := rank(embResult.Embedding, candidates, topK, log)

	results := make([]ScoredQuestion, len(ranked))
	for i := range ranked {
		results[i] = ScoredQuestion{
			SanitizedQuestion: ranked[i].Question().Sanitized(),
			SearchScore:       ranked[i].Score(),
		}
	}

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	log.Info("Search completed",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Int("candidates", len(candidates)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return Response{
		Results:  results,
		Metadata: s.telemetry(query, filters, len(candidates), total, start),
	}, nil
}

func (s *Service) telemetry(
	query string, filters filter.Filters, candidates, total int, start time.Time,
) Telemetry {
	return Telemetry{
		Query:           query,
		Filters:         filters,
		CandidatesCount: candidates,
		TotalCount:      total,
		SearchTimeMs:    time.Since(start).Milliseconds(),
	}
}
