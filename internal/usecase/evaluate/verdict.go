package evaluate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prepcoach/prepcoach/internal/domain"
)

// Result is the validated verdict of one evaluation.
type Result struct {
	Score float64 `json:"score"`
	// Breakdown sub-scores are passed through unclamped; only the total
	// is bound to [0,100]. The oracle is trusted on sub-score sums.
	Breakdown    map[string]float64 `json:"breakdown"`
	Feedback     string             `json:"feedback"`
	Strengths    []string           `json:"strengths"`
	Improvements []string           `json:"improvements"`

	// Theory-only extras; omitted for code submissions.
	MatchedKeywords []string `json:"matchedKeywords,omitempty"`
	MissedPoints    []string `json:"missedPoints,omitempty"`
}

// verdictEnvelope mirrors the raw oracle JSON. Score is a pointer so a
// present zero is distinguishable from an absent field.
type verdictEnvelope struct {
	Score           *float64           `json:"score"`
	Breakdown       map[string]float64 `json:"breakdown"`
	Feedback        string             `json:"feedback"`
	Strengths       []string           `json:"strengths"`
	Improvements    []string           `json:"improvements"`
	MatchedKeywords []string           `json:"matchedKeywords"`
	MissedPoints    []string           `json:"missedPoints"`
}

// parseVerdict strips incidental markdown fencing, parses the JSON
// verdict and enforces the response schema: score, breakdown and
// feedback are required; the total score is clamped to [0,100].
func parseVerdict(responseText string) (Result, error) {
	cleaned := stripCodeFences(responseText)

	var env verdictEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		return Result{}, fmt.Errorf("%w: parse verdict JSON: %v", domain.ErrInvalidJudgeResponse, err)
	}

	if env.Score == nil {
		return Result{}, fmt.Errorf("%w: missing score", domain.ErrInvalidJudgeResponse)
	}
	if len(env.Breakdown) == 0 {
		return Result{}, fmt.Errorf("%w: missing breakdown", domain.ErrInvalidJudgeResponse)
	}
	if env.Feedback == "" {
		return Result{}, fmt.Errorf("%w: missing feedback", domain.ErrInvalidJudgeResponse)
	}

	return Result{
		Score:           clampScore(*env.Score),
		Breakdown:       env.Breakdown,
		Feedback:        env.Feedback,
		Strengths:       env.Strengths,
		Improvements:    env.Improvements,
		MatchedKeywords: env.MatchedKeywords,
		MissedPoints:    env.MissedPoints,
	}, nil
}

// stripCodeFences removes ```json / ``` wrapping that generative models
// add despite being told not to.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
