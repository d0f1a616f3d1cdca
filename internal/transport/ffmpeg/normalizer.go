package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/domain"
)

// Normalizer converts uploaded audio into the canonical waveform the
// transcription oracle expects: mono, 16 kHz, 16-bit linear PCM WAV.
type Normalizer struct {
	binPath string
	logger  *zap.Logger
}

// New creates an ffmpeg-backed normalizer. binPath is the ffmpeg
// executable; an empty value falls back to PATH lookup.
func New(binPath string, logger *zap.Logger) *Normalizer {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &Normalizer{binPath: binPath, logger: logger}
}

// Normalize transcodes inputPath into outputPath. The invocation is
// fully deterministic for a given input; any ffmpeg failure aborts the
// submission with the stderr tail attached for diagnostics.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outputPath string) error {
	args := normalizeArgs(inputPath, outputPath)
	cmd := exec.CommandContext(ctx, n.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		n.logger.Warn("Audio normalization failed",
			zap.String("input", inputPath),
			zap.Duration("duration", duration),
			zap.String("stderr", tail(stderr.String(), 512)),
			zap.Error(err),
		)
		return fmt.Errorf("ffmpeg: %v: %s: %w", err, tail(stderr.String(), 256), domain.ErrNormalizationFailed)
	}

	n.logger.Debug("Audio normalized",
		zap.String("output", outputPath),
		zap.Duration("duration", duration),
	)
	return nil
}

// normalizeArgs builds the transcode invocation. -y overwrites a stale
// output file from a previous attempt at the same path.
func normalizeArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outputPath,
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
