// Package theory holds the per-subject theory question banks and the
// exclusion-aware random picker. Banks are loaded once at startup and
// read-only afterwards; a subject that fails to load is skipped so the
// remaining subjects still serve.
package theory

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/domain"
)

// Bank holds all loaded subject banks.
type Bank struct {
	subjects map[string][]*domain.TheoryQuestion
	intn     func(n int) int
}

// Load reads one JSON bank file per subject from dir. File layout
// follows the seeded data: <SUBJECT>_questionbank.json. A missing or
// malformed subject file degrades that subject only.
func Load(dir string, subjects []string, logger *zap.Logger) *Bank {
	b := &Bank{
		subjects: make(map[string][]*domain.TheoryQuestion, len(subjects)),
		intn:     rand.IntN,
	}

	for _, subject := range subjects {
		path := filepath.Join(dir, fmt.Sprintf("%s_questionbank.json", subject))
		questions, err := loadFile(path)
		if err != nil {
			logger.Warn("Failed to load theory bank, subject disabled",
				zap.String("subject", subject),
				zap.Error(err),
			)
			continue
		}
		b.subjects[subject] = questions
		logger.Info("Theory bank loaded",
			zap.String("subject", subject),
			zap.Int("questions", len(questions)),
		)
	}

	return b
}

func loadFile(path string) ([]*domain.TheoryQuestion, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read bank file: %w", err)
	}
	var questions []*domain.TheoryQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse bank file %s: %w", path, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("bank file %s contains no questions", path)
	}
	return questions, nil
}

// Subjects returns the successfully loaded subject codes.
func (b *Bank) Subjects() []string {
	out := make([]string, 0, len(b.subjects))
	for s := range b.subjects {
		out = append(out, s)
	}
	return out
}

// Has reports whether the subject bank is loaded.
func (b *Bank) Has(subject string) bool {
	_, ok := b.subjects[subject]
	return ok
}

// PickRandom selects uniformly at random among the subject's questions
// whose id is not in excludeIDs. Returns nil when the bank is exhausted;
// that is a benign "no more questions" signal, not an error.
func (b *Bank) PickRandom(subject string, excludeIDs map[string]struct{}) (*domain.TheoryQuestion, error) {
	questions, ok := b.subjects[subject]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSubject, subject)
	}

	available := make([]*domain.TheoryQuestion, 0, len(questions))
	for _, q := range questions {
		if _, excluded := excludeIDs[q.ID]; !excluded {
			available = append(available, q)
		}
	}
	if len(available) == 0 {
		return nil, nil
	}

	return available[b.intn(len(available))], nil
}

// ByID returns a question from the subject bank, or ErrQuestionNotFound.
func (b *Bank) ByID(subject, id string) (*domain.TheoryQuestion, error) {
	questions, ok := b.subjects[subject]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSubject, subject)
	}
	for _, q := range questions {
		if q.ID == id {
			return q, nil
		}
	}
	return nil, domain.ErrQuestionNotFound
}
