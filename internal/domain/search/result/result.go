package result

import "github.com/prepcoach/prepcoach/internal/domain"

// Result is a single ranked search hit: a corpus question paired with
// its cosine similarity against the query embedding.
type Result struct {
	question *domain.Question
	score    float64
}

// New creates a search result.
func New(q *domain.Question, score float64) Result {
	return Result{question: q, score: score}
}

// Question returns the matched corpus question (unsanitized; the
// orchestrator projects it before anything crosses the API boundary).
func (r *Result) Question() *domain.Question { return r.question }

// Score returns the cosine similarity score.
func (r *Result) Score() float64 { return r.score }
