package stt

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Segment is one span of recognized text.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Request is a single transcription call.
type Request struct {
	// Samples is mono float32 audio in [-1, 1]
	Samples []float32

	// SampleRate of Samples in Hz
	SampleRate int

	// Language is a hint such as "fr" or "en"; "auto" lets the engine detect it
	Language string

	// VADFilter drops non-speech audio before decoding
	VADFilter bool
}

// Duration returns the audio length of the request.
func (r Request) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.Samples)) * time.Second / time.Duration(r.SampleRate)
}

// Engine is the interface for offline speech-to-text engines. Short or
// silent input yields an empty result, not an error.
type Engine interface {
	// Transcribe returns the ordered segments recognized in req
	Transcribe(ctx context.Context, req Request) ([]Segment, error)

	// Close releases the model
	Close() error
}

// Config holds configuration for building an engine
type Config struct {
	// Backend is "whisper" or "vosk"
	Backend string

	// ModelPath is a ggml model file for whisper or a model directory for vosk
	ModelPath string

	// Threads limits CPU threads used by whisper; zero keeps its default
	Threads int
}

// Supported backends.
const (
	BackendWhisper = "whisper"
	BackendVosk    = "vosk"
)

// New builds an engine for cfg.Backend.
func New(cfg Config) (Engine, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendWhisper:
		return NewWhisperEngine(cfg.ModelPath, WithThreads(cfg.Threads))
	case BackendVosk:
		return NewVoskEngine(cfg.ModelPath)
	default:
		return nil, fmt.Errorf("unknown stt backend: %s (valid: whisper, vosk)", cfg.Backend)
	}
}

// JoinSegments trims each segment and joins the non-empty ones with sep.
func JoinSegments(segments []Segment, sep string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, sep))
}
