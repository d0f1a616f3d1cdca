package domain

// Difficulty is the coarse difficulty bucket of a question.
type Difficulty string

const (
	// Easy questions are warm-ups.
	Easy Difficulty = "Easy"
	// Medium questions are the interview bread and butter.
	Medium Difficulty = "Medium"
	// Hard questions separate offers from rejections.
	Hard Difficulty = "Hard"
)

// IsValid reports whether d is a known difficulty.
func (d Difficulty) IsValid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// Metadata holds the filterable attributes of a question.
type Metadata struct {
	Difficulty      Difficulty `json:"difficulty"`
	Topics          []string   `json:"topics"`
	Companies       []string   `json:"companies"`
	FrequencyRating int        `json:"frequency_rating"`
}

// JudgeContext is the gold-standard solution data used server-side to
// score a submission. It must never be serialized to a client.
type JudgeContext struct {
	OptimalSolutionCode string   `json:"optimal_solution_code"`
	TimeComplexity      string   `json:"time_complexity"`
	SpaceComplexity     string   `json:"space_complexity"`
	KeyInsights         []string `json:"key_insights"`
	EdgeCases           []string `json:"edge_cases"`
}

// Question is a single corpus entry with its precomputed embedding.
type Question struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Metadata        Metadata      `json:"metadata"`
	SearchText      string        `json:"search_text"`
	DisplayMarkdown string        `json:"display_markdown"`
	Embedding       []float32     `json:"embedding"`
	JudgeContext    *JudgeContext `json:"judge_context"`

	// SeedError records an embedding-generation failure from the
	// offline seeding pipeline. Questions with a seed error carry no
	// usable embedding.
	SeedError string `json:"_error,omitempty"`
}

// HasEmbedding reports whether the question carries a usable embedding.
// A question with a nil or empty vector is tagged out of ranking, never
// scored against a sentinel vector.
func (q *Question) HasEmbedding() bool {
	return len(q.Embedding) > 0
}

// SanitizedQuestion is the client-facing projection of a Question.
// Fields are an explicit allow-list: adding a field to Question does
// not expose it here until someone deliberately adds it.
type SanitizedQuestion struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Metadata        Metadata `json:"metadata"`
	DisplayMarkdown string   `json:"display_markdown"`
}

// Sanitized projects the question onto its client-safe fields.
// JudgeContext, Embedding and seed bookkeeping stay behind this line.
func (q *Question) Sanitized() SanitizedQuestion {
	return SanitizedQuestion{
		ID:              q.ID,
		Title:           q.Title,
		Metadata:        q.Metadata,
		DisplayMarkdown: q.DisplayMarkdown,
	}
}
