package search

import (
	"context"

	"github.com/prepcoach/prepcoach/internal/domain"
)

// CorpusReader is the read-only corpus contract the orchestrator needs.
type CorpusReader interface {
	All() []*domain.Question
	Count() int
}

// Embedder vectorizes the query text. Exactly one call per search;
// none at all when filtering leaves no candidates.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
