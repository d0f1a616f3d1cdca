package domain

// TheoryQuestion is a single entry of a per-subject theory bank.
// These are not vectorized; retrieval is random-with-exclusions.
type TheoryQuestion struct {
	ID         string     `json:"id"`
	Question   string     `json:"question"`
	Difficulty Difficulty `json:"difficulty"`
	Topic      string     `json:"topic"`

	// Private grading material, stripped before any client response.
	ReferenceAnswer string   `json:"reference_answer"`
	ExpectedPoints  []string `json:"expected_points"`
	Keywords        []string `json:"keywords"`
}

// SanitizedTheoryQuestion is the client-facing projection of a
// TheoryQuestion, allow-listed the same way as SanitizedQuestion.
type SanitizedTheoryQuestion struct {
	ID         string     `json:"id"`
	Question   string     `json:"question"`
	Difficulty Difficulty `json:"difficulty"`
	Topic      string     `json:"topic"`
}

// Sanitized strips the reference answer, expected points and keywords.
func (q *TheoryQuestion) Sanitized() SanitizedTheoryQuestion {
	return SanitizedTheoryQuestion{
		ID:         q.ID,
		Question:   q.Question,
		Difficulty: q.Difficulty,
		Topic:      q.Topic,
	}
}
