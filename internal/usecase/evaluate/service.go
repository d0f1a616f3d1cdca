package evaluate

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/domain"
	"github.com/prepcoach/prepcoach/internal/logger"
	"github.com/prepcoach/prepcoach/internal/metrics"
)

// Metadata reports processing telemetry alongside a verdict.
type Metadata struct {
	ProcessingTimeMs int64   `json:"processingTimeMs"`
	TranscriptLength int     `json:"transcriptLength"`
	AudioSizeKB      float64 `json:"audioSizeKB"`
}

// Evaluation is a verdict plus its processing metadata.
type Evaluation struct {
	Result
	Metadata Metadata `json:"metadata"`
}

// Service orchestrates submission evaluation: a strict per-submission
// sequence of normalize → transcribe → judge with no cross-stage
// parallelism, since each stage's output feeds the next.
type Service struct {
	corpus      QuestionReader
	theory      TheoryReader
	normalizer  Normalizer
	transcriber Transcriber
	judge       Judge
	tempDir     string
}

// New creates an evaluation service. tempDir hosts per-submission audio
// artifacts; concurrent submissions get distinct files.
func New(
	corpus QuestionReader,
	theory TheoryReader,
	normalizer Normalizer,
	transcriber Transcriber,
	judge Judge,
	tempDir string,
) *Service {
	return &Service{
		corpus:      corpus,
		theory:      theory,
		normalizer:  normalizer,
		transcriber: transcriber,
		judge:       judge,
		tempDir:     tempDir,
	}
}

// EvaluateSubmission scores one coding submission with its recorded
// explanation. Validation runs before any external call; every stage
// failure aborts this submission only; temp audio files are removed on
// every exit path.
func (s *Service) EvaluateSubmission(
	ctx context.Context, questionID, code string, audio io.Reader, audioSize int64,
) (Evaluation, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	// Cheap validation before expensive work.
	if questionID == "" || code == "" {
		s.countCode("validation_failed")
		return Evaluation{}, fmt.Errorf("%w: questionId and code are required", domain.ErrValidation)
	}
	if audio == nil || audioSize <= 0 {
		s.countCode("validation_failed")
		return Evaluation{}, fmt.Errorf("%w: audio recording is required", domain.ErrValidation)
	}

	question, err := s.corpus.ByID(questionID)
	if err != nil {
		s.countCode("unknown_question")
		return Evaluation{}, fmt.Errorf("load question: %w", err)
	}
	if question.JudgeContext == nil {
		s.countCode("missing_context")
		return Evaluation{}, fmt.Errorf("question %s: %w", questionID, domain.ErrMissingJudgeContext)
	}

	log.Info("Evaluation started",
		zap.String("question_id", questionID),
		zap.Int("code_len", len(code)),
		zap.Int64("audio_bytes", audioSize),
	)

	// Per-submission temp artifacts, removed unconditionally. Removal
	// errors are swallowed: temp audio is not precious.
	rawPath, err := s.spoolAudio(audio)
	if err != nil {
		s.countCode("spool_failed")
		return Evaluation{}, fmt.Errorf("spool audio: %w", err)
	}
	normalizedPath := rawPath + ".wav"
	defer func() {
		_ = os.Remove(rawPath)
		_ = os.Remove(normalizedPath)
	}()

	// Stage 1: normalize. Fatal to the submission, no retry.
	stageStart := time.Now()
	if err := s.normalizer.Normalize(ctx, rawPath, normalizedPath); err != nil {
		s.countCode("normalize_failed")
		return Evaluation{}, fmt.Errorf("normalize audio: %w", err)
	}
	s.observeStage("normalize", stageStart, log)

	// Stage 2: transcribe. An empty transcript is a valid result; a
	// user who codes silently still gets scored.
	stageStart = time.Now()
	transcript, err := s.transcriber.Transcribe(ctx, normalizedPath)
	if err != nil {
		s.countCode("transcribe_failed")
		return Evaluation{}, fmt.Errorf("transcribe audio: %w", err)
	}
	s.observeStage("transcribe", stageStart, log)
	log.Debug("Transcript ready", zap.Int("transcript_len", len(transcript)))

	// Stages 3-4: deterministic prompt assembly, then the oracle.
	prompt := buildJudgePrompt(question, code, transcript)

	stageStart = time.Now()
	responseText, err := s.judge.Generate(ctx, prompt)
	if err != nil {
		s.countCode("judge_failed")
		return Evaluation{}, fmt.Errorf("judge submission: %w", err)
	}
	s.observeStage("judge", stageStart, log)

	result, err := parseVerdict(responseText)
	if err != nil {
		s.countCode("invalid_verdict")
		return Evaluation{}, fmt.Errorf("judge verdict: %w", err)
	}

	s.countCode("ok")
	elapsed := time.Since(start)
	log.Info("Evaluation completed",
		zap.String("question_id", questionID),
		zap.Float64("score", result.Score),
		zap.Duration("elapsed", elapsed),
	)

	return Evaluation{
		Result: result,
		Metadata: Metadata{
			ProcessingTimeMs: elapsed.Milliseconds(),
			TranscriptLength: len(transcript),
			AudioSizeKB:      float64(audioSize) / 1024,
		},
	}, nil
}

// EvaluateTheory scores a free-text theory answer against the bank's
// reference material. No audio stages; prompt assembly and verdict
// validation mirror the code path.
func (s *Service) EvaluateTheory(
	ctx context.Context, subject, questionID, answer string,
) (Evaluation, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if subject == "" || questionID == "" || answer == "" {
		s.countTheory("validation_failed")
		return Evaluation{}, fmt.Errorf("%w: subject, questionId and answer are required", domain.ErrValidation)
	}

	question, err := s.theory.ByID(subject, questionID)
	if err != nil {
		s.countTheory("unknown_question")
		return Evaluation{}, fmt.Errorf("load theory question: %w", err)
	}

	prompt := buildTheoryPrompt(question, answer)

	stageStart := time.Now()
	responseText, err := s.judge.Generate(ctx, prompt)
	if err != nil {
		s.countTheory("judge_failed")
		return Evaluation{}, fmt.Errorf("judge theory answer: %w", err)
	}
	s.observeStage("judge", stageStart, log)

	result, err := parseVerdict(responseText)
	if err != nil {
		s.countTheory("invalid_verdict")
		return Evaluation{}, fmt.Errorf("judge verdict: %w", err)
	}

	s.countTheory("ok")
	elapsed := time.Since(start)
	log.Info("Theory evaluation completed",
		zap.String("subject", subject),
		zap.String("question_id", questionID),
		zap.Float64("score", result.Score),
		zap.Duration("elapsed", elapsed),
	)

	return Evaluation{
		Result: result,
		Metadata: Metadata{
			ProcessingTimeMs: elapsed.Milliseconds(),
			TranscriptLength: len(answer),
		},
	}, nil
}

// spoolAudio writes the uploaded recording to a per-submission temp
// file so ffmpeg can read it.
func (s *Service) spoolAudio(audio io.Reader) (string, error) {
	f, err := os.CreateTemp(s.tempDir, "submission_*.audio")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, audio); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

func (s *Service) observeStage(stage string, start time.Time, log *zap.Logger) {
	d := time.Since(start)
	metrics.EvaluationStageDuration.WithLabelValues(stage).Observe(d.Seconds())
	log.Debug("Evaluation stage completed",
		zap.String("stage", stage),
		zap.Duration("duration", d),
	)
}

func (s *Service) countCode(outcome string) {
	metrics.EvaluationsTotal.WithLabelValues("code", outcome).Inc()
}

func (s *Service) countTheory(outcome string) {
	metrics.EvaluationsTotal.WithLabelValues("theory", outcome).Inc()
}
