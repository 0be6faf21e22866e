// Package mock provides test doubles for the stt package interfaces.
//
// Engine returns Text for any request whose audio is louder than
// SilenceThreshold and no segments otherwise, which mirrors how a real
// engine with voice activity filtering behaves on silence.
//
//	eng := &mock.Engine{Text: "test"}
//	segs, _ := eng.Transcribe(ctx, stt.Request{Samples: buf, SampleRate: 16000})
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/stt"
)

// Ensure Engine implements stt.Engine at compile time.
var _ stt.Engine = (*Engine)(nil)

// DefaultSilenceThreshold is the RMS level below which input is silent.
const DefaultSilenceThreshold = 0.001

// Engine is a mock implementation of stt.Engine.
type Engine struct {
	mu sync.Mutex

	// Text is returned as a single segment for non-silent input.
	Text string

	// Segments, if set, is returned instead of Text for non-silent input.
	Segments []stt.Segment

	// Err, if non-nil, is returned from every Transcribe call.
	Err error

	// ErrOnCall, if positive, makes only the n-th call (1-based) fail with Err.
	ErrOnCall int

	// Delay simulates decoding time.
	Delay time.Duration

	// SilenceThreshold overrides DefaultSilenceThreshold when positive.
	SilenceThreshold float64

	// Calls records every request passed to Transcribe.
	Calls []stt.Request

	// Closed is set by Close.
	Closed bool
}

// Transcribe records the call and returns the scripted result.
func (e *Engine) Transcribe(ctx context.Context, req stt.Request) ([]stt.Segment, error) {
	e.mu.Lock()
	e.Calls = append(e.Calls, req)
	n := len(e.Calls)
	delay := e.Delay
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Err != nil && (e.ErrOnCall <= 0 || e.ErrOnCall == n) {
		return nil, e.Err
	}

	threshold := e.SilenceThreshold
	if threshold <= 0 {
		threshold = DefaultSilenceThreshold
	}
	if audio.RMS(req.Samples) < threshold {
		return nil, nil
	}
	if e.Segments != nil {
		out := make([]stt.Segment, len(e.Segments))
		copy(out, e.Segments)
		return out, nil
	}
	return []stt.Segment{{Text: e.Text, End: req.Duration()}}, nil
}

// Close marks the engine closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closed = true
	return nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (e *Engine) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Calls)
}
