// Package corpus holds the in-memory question store. The store is
// populated once at process start from the seeded JSON file and is
// immutable afterwards, so concurrent readers need no locking.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/domain"
)

// Store is the read-only in-memory question corpus.
type Store struct {
	questions  []*domain.Question
	byID       map[string]*domain.Question
	dimensions int
	embedded   int
}

// Load reads the seeded corpus file and builds the store.
// A load failure is fatal to the search subsystem; the caller decides
// whether to abort the process.
//
// Embedding hygiene at load time:
//   - questions with a nil/empty vector (failed seeding) stay in the
//     corpus for filtering and display but are excluded from ranking;
//   - the first usable vector fixes the corpus dimensionality, and any
//     later vector of a different length is discarded as corrupt.
func Load(path string, logger *zap.Logger) (*Store, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read corpus file %s: %w", path, err)
	}

	var questions []*domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse corpus file %s: %w", path, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("corpus file %s contains no questions", path)
	}

	s := &Store{
		questions: questions,
		byID:      make(map[string]*domain.Question, len(questions)),
	}

	for _, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("corpus file %s contains a question without an id", path)
		}
		if _, dup := s.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q in %s", q.ID, path)
		}
		s.byID[q.ID] = q

		if !q.HasEmbedding() {
			logger.Warn("Question has no embedding, excluded from ranking",
				zap.String("question_id", q.ID),
				zap.String("seed_error", q.SeedError),
			)
			continue
		}
		if s.dimensions == 0 {
			s.dimensions = len(q.Embedding)
		}
		if len(q.Embedding) != s.dimensions {
			logger.Warn("Question embedding has wrong dimensionality, discarded",
				zap.String("question_id", q.ID),
				zap.Int("got", len(q.Embedding)),
				zap.Int("want", s.dimensions),
			)
			q.Embedding = nil
			continue
		}
		s.embedded++
	}

	logger.Info("Corpus loaded",
		zap.String("path", path),
		zap.Int("questions", len(questions)),
		zap.Int("with_embeddings", s.embedded),
		zap.Int("dimensions", s.dimensions),
	)

	return s, nil
}

// All returns the full corpus in load order. Callers must treat the
// slice and its questions as read-only.
func (s *Store) All() []*domain.Question {
	return s.questions
}

// ByID returns the question with the given id, or ErrQuestionNotFound.
func (s *Store) ByID(id string) (*domain.Question, error) {
	q, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	return q, nil
}

// JudgeContext returns the private grading context of a question.
// Server-side use only; never expose via the API.
func (s *Store) JudgeContext(id string) (*domain.JudgeContext, error) {
	q, err := s.ByID(id)
	if err != nil {
		return nil, err
	}
	if q.JudgeContext == nil {
		return nil, domain.ErrMissingJudgeContext
	}
	return q.JudgeContext, nil
}

// Count returns the total number of questions.
func (s *Store) Count() int { return len(s.questions) }

// EmbeddedCount returns the number of questions usable for ranking.
func (s *Store) EmbeddedCount() int { return s.embedded }

// Dimensions returns the corpus embedding dimensionality (0 when no
// question carries a usable vector).
func (s *Store) Dimensions() int { return s.dimensions }
