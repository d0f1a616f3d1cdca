package search

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/domain"
	"github.com/prepcoach/prepcoach/internal/domain/search/result"
)

// DefaultTopK is the result count when the caller does not override it.
const DefaultTopK = 5

// cosineSimilarity computes dot(a,b) / (||a||*||b||) with float64
// accumulation. Defined as 0 when either magnitude is zero instead of
// dividing by zero. Callers must ensure len(a) == len(b).
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	magnitude := math.Sqrt(normA) * math.Sqrt(normB)
	if magnitude == 0 {
		return 0
	}
	return dot / magnitude
}

// rank scores candidates against the query vector and returns at most
// topK results, best first. Candidates without a usable embedding are
// excluded before scoring; a candidate whose vector length differs from
// the query's is skipped with a warning rather than aborting the whole
// ranking, so one corrupt record cannot take down a search. Ties keep
// the candidates' input order (sort is stable, no secondary key).
func rank(
	query []float32,
	candidates []*domain.Question,
	topK int,
	logger *zap.Logger,
) []result.Result {
	if topK <= 0 {
		topK = DefaultTopK
	}

	scored := make([]result.Result, 0, len(candidates))
	for _, q := range candidates {
		if !q.HasEmbedding() {
			continue
		}
		if len(q.Embedding) != len(query) {
			logger.Warn("Candidate embedding dimension mismatch, skipped",
				zap.String("question_id", q.ID),
				zap.Int("candidate_dims", len(q.Embedding)),
				zap.Int("query_dims", len(query)),
			)
			continue
		}
		scored = append(scored, result.New(q, cosineSimilarity(query, q.Embedding)))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score() > scored[j].Score()
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
