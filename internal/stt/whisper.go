package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/emmett/minutes/internal/audio"
)

var _ Engine = (*WhisperEngine)(nil)

// whisperRate is the only rate whisper.cpp accepts.
const whisperRate = 16000

// WhisperEngine implements Engine with the whisper.cpp CGO bindings. The
// model is loaded once; each call decodes in a fresh context.
type WhisperEngine struct {
	mu      sync.Mutex
	model   whisperlib.Model
	threads int
	vad     audio.VADConfig
}

// WhisperOption configures a WhisperEngine.
type WhisperOption func(*WhisperEngine)

// WithThreads caps decoder threads. Zero keeps the library default.
func WithThreads(n int) WhisperOption {
	return func(e *WhisperEngine) { e.threads = n }
}

// WithVAD overrides the voice activity settings used by VADFilter.
func WithVAD(cfg audio.VADConfig) WhisperOption {
	return func(e *WhisperEngine) { e.vad = cfg }
}

// NewWhisperEngine loads a ggml model file.
func NewWhisperEngine(modelPath string, opts ...WhisperOption) (*WhisperEngine, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: model path must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	e := &WhisperEngine{model: model, vad: audio.DefaultVADConfig()}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Transcribe implements Engine.
func (e *WhisperEngine) Transcribe(ctx context.Context, req Request) ([]Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples := req.Samples
	if req.SampleRate != whisperRate {
		samples = audio.Resample(samples, req.SampleRate, whisperRate)
	}
	if req.VADFilter {
		samples = audio.NewVAD(e.vad).Filter(samples, whisperRate)
	}
	// Anything under 100ms is noise to whisper and only risks hallucinations.
	if len(samples) < whisperRate/10 {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return nil, errors.New("whisper: engine closed")
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		if err := wctx.SetLanguage(lang); err != nil {
			slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
		}
	}
	if e.threads > 0 {
		wctx.SetThreads(uint(e.threads))
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var segments []Segment
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		segments = append(segments, Segment{
			Text:  strings.TrimSpace(seg.Text),
			Start: seg.Start,
			End:   seg.End,
		})
	}
	return segments, nil
}

// Close releases the model.
func (e *WhisperEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model == nil {
		return nil
	}
	err := e.model.Close()
	e.model = nil
	return err
}
