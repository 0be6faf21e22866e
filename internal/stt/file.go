package stt

import (
	"context"
	"fmt"

	"github.com/emmett/minutes/internal/audio"
)

// TranscribeFile decodes a WAV recording and transcribes it in one pass with
// voice activity filtering. Segments are joined one per line.
func TranscribeFile(ctx context.Context, engine Engine, path, language string) (string, error) {
	samples, rate, err := audio.ReadWAV(path)
	if err != nil {
		return "", err
	}
	segments, err := engine.Transcribe(ctx, Request{
		Samples:    samples,
		SampleRate: rate,
		Language:   language,
		VADFilter:  true,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", path, err)
	}
	return JoinSegments(segments, "\n"), nil
}
