package evaluate

import (
	"context"

	"github.com/prepcoach/prepcoach/internal/domain"
)

// QuestionReader resolves corpus questions for judging.
type QuestionReader interface {
	ByID(id string) (*domain.Question, error)
}

// TheoryReader resolves theory bank questions for judging.
type TheoryReader interface {
	ByID(subject, id string) (*domain.TheoryQuestion, error)
}

// Normalizer converts an arbitrary supported audio container into the
// canonical waveform (mono, 16 kHz, 16-bit linear PCM WAV).
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, outputPath string) error
}

// Transcriber turns the canonical waveform into text. An empty string
// is a valid result for silent audio, not an error.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// Judge is the generative scoring oracle. It receives the assembled
// prompt and returns raw response text expected to contain a JSON
// verdict, possibly wrapped in markdown code fences.
type Judge interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
