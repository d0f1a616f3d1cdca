package evaluate

import (
	"errors"
	"strings"
	"testing"

	"github.com/prepcoach/prepcoach/internal/domain"
)

const validVerdict = `{
  "score": 85,
  "breakdown": {"correctness": 35, "efficiency": 25, "communication": 25},
  "feedback": "Solid solution with clear explanation.",
  "strengths": ["optimal complexity"],
  "improvements": ["mention edge cases"]
}`

func TestParseVerdict_Valid(t *testing.T) {
	res, err := parseVerdict(validVerdict)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 85 {
		t.Errorf("Score = %f, want 85", res.Score)
	}
	if res.Breakdown["correctness"] != 35 {
		t.Errorf("breakdown.correctness = %f", res.Breakdown["correctness"])
	}
	if len(res.Strengths) != 1 || len(res.Improvements) != 1 {
		t.Errorf("strengths/improvements not carried through: %+v", res)
	}
}

func TestParseVerdict_StripsCodeFences(t *testing.T) {
	wrapped := "```json\n" + validVerdict + "\n```\n"
	res, err := parseVerdict(wrapped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Score != 85 {
		t.Errorf("Score = %f, want 85", res.Score)
	}
}

func TestParseVerdict_ClampsScore(t *testing.T) {
	tests := []struct {
		name  string
		score string
		want  float64
	}{
		{"above range", "150", 100},
		{"below range", "-5", 0},
		{"in range", "42", 42},
		{"zero is a valid present score", "0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := strings.Replace(validVerdict, `"score": 85`, `"score": `+tt.score, 1)
			res, err := parseVerdict(raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Score != tt.want {
				t.Errorf("Score = %f, want %f", res.Score, tt.want)
			}
		})
	}
}

func TestParseVerdict_BreakdownPassedThroughUnclamped(t *testing.T) {
	raw := strings.Replace(validVerdict, `"correctness": 35`, `"correctness": 70`, 1)
	res, err := parseVerdict(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Breakdown["correctness"] != 70 {
		t.Errorf("sub-scores must pass through unclamped, got %f", res.Breakdown["correctness"])
	}
}

func TestParseVerdict_NonJSON(t *testing.T) {
	_, err := parseVerdict("I think this deserves an 85 out of 100.")
	if !errors.Is(err, domain.ErrInvalidJudgeResponse) {
		t.Fatalf("err = %v, want ErrInvalidJudgeResponse", err)
	}
}

func TestParseVerdict_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no score", `{"breakdown":{"a":1},"feedback":"x"}`},
		{"no breakdown", `{"score":50,"feedback":"x"}`},
		{"empty breakdown", `{"score":50,"breakdown":{},"feedback":"x"}`},
		{"no feedback", `{"score":50,"breakdown":{"a":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseVerdict(tt.raw)
			if !errors.Is(err, domain.ErrInvalidJudgeResponse) {
				t.Fatalf("err = %v, want ErrInvalidJudgeResponse", err)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFences(tt.in); got != tt.want {
				t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
