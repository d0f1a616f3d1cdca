package domain

import "errors"

var (
	// ErrQuestionNotFound signals a missing corpus or bank entry.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUnknownSubject signals a theory subject with no loaded bank.
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrValidation signals a malformed or incomplete request.
	ErrValidation = errors.New("validation failed")
	// ErrMissingJudgeContext signals a question that cannot be judged.
	ErrMissingJudgeContext = errors.New("question missing judge context")
	// ErrEmbeddingProviderError signals an embedding oracle failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrNormalizationFailed signals an audio normalization failure.
	ErrNormalizationFailed = errors.New("audio normalization failed")
	// ErrTranscriptionFailed signals a speech-to-text failure.
	ErrTranscriptionFailed = errors.New("audio transcription failed")
	// ErrJudgeProviderError signals a judge oracle transport failure.
	ErrJudgeProviderError = errors.New("judge provider error")
	// ErrInvalidJudgeResponse signals a judge verdict that cannot be
	// parsed or is missing required fields.
	ErrInvalidJudgeResponse = errors.New("invalid judge response")
)
