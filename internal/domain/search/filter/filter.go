// Package filter narrows a question corpus by metadata predicates
// before vector ranking. Filtering is the cheap half of hybrid search:
// exact/any-of matching applied ahead of any oracle call.
package filter

import "github.com/prepcoach/prepcoach/internal/domain"

// Filters is an ephemeral, permissive set of metadata predicates.
// Every field is independently optional; the zero value means absent.
// Unknown or malformed request keys are ignored upstream rather than
// rejected, so Filters never fails to construct.
type Filters struct {
	Difficulty   domain.Difficulty `json:"difficulty,omitempty"`
	Topics       []string          `json:"topics,omitempty"`
	Companies    []string          `json:"companies,omitempty"`
	MinFrequency int               `json:"minFrequency,omitempty"`
}

// IsEmpty reports whether no predicate is active.
func (f Filters) IsEmpty() bool {
	return f.Difficulty == "" &&
		len(f.Topics) == 0 &&
		len(f.Companies) == 0 &&
		f.MinFrequency <= 0
}

// Matches reports whether q passes every active predicate.
// Active predicates are ANDed; Topics and Companies match any-of.
func (f Filters) Matches(q *domain.Question) bool {
	if f.Difficulty != "" && q.Metadata.Difficulty != f.Difficulty {
		return false
	}
	if len(f.Topics) > 0 && !intersects(f.Topics, q.Metadata.Topics) {
		return false
	}
	if len(f.Companies) > 0 && !intersects(f.Companies, q.Metadata.Companies) {
		return false
	}
	if f.MinFrequency > 0 && q.Metadata.FrequencyRating < f.MinFrequency {
		return false
	}
	return true
}

// Apply keeps the questions matching f, preserving corpus order.
// Empty filters return the input slice unchanged. Pure: the input is
// never mutated.
func Apply(questions []*domain.Question, f Filters) []*domain.Question {
	if f.IsEmpty() {
		return questions
	}

	kept := make([]*domain.Question, 0, len(questions))
	for _, q := range questions {
		if f.Matches(q) {
			kept = append(kept, q)
		}
	}
	return kept
}

func intersects(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}
