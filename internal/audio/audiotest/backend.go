// Package audiotest provides a scripted audio.Backend for tests that must
// run without sound hardware.
package audiotest

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/emmett/minutes/internal/audio"
)

var _ audio.Backend = (*Backend)(nil)

// ErrRejected is returned by Open when Accept refuses a format.
var ErrRejected = errors.New("format rejected")

// Backend is an in-memory audio subsystem. Zero value has no devices.
type Backend struct {
	// Inputs are returned for capture enumeration, Outputs for loopback.
	Inputs  []audio.DeviceInfo
	Outputs []audio.DeviceInfo

	// DevicesErr, when set, fails enumeration.
	DevicesErr error

	// Accept decides whether a stream may open with params. Nil accepts
	// everything.
	Accept func(params audio.StreamParams) bool

	mu       sync.Mutex
	attempts []audio.StreamParams
	streams  map[string]*Stream
}

// Stream is a fake open stream.
type Stream struct {
	Params audio.StreamParams

	mu     sync.Mutex
	fn     audio.FrameFunc
	closed bool
}

// Close implements io.Closer.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream) deliver(interleaved []float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.fn(interleaved)
	return true
}

// Devices implements audio.Backend.
func (b *Backend) Devices(loopback bool) ([]audio.DeviceInfo, error) {
	if b.DevicesErr != nil {
		return nil, b.DevicesErr
	}
	if loopback {
		return b.Outputs, nil
	}
	return b.Inputs, nil
}

// Open implements audio.Backend.
func (b *Backend) Open(params audio.StreamParams, fn audio.FrameFunc) (io.Closer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attempts = append(b.attempts, params)
	if b.Accept != nil && !b.Accept(params) {
		return nil, fmt.Errorf("%d Hz/%d ch: %w", params.SampleRate, params.Channels, ErrRejected)
	}
	if params.Device == nil {
		return nil, fmt.Errorf("no device")
	}

	s := &Stream{Params: params, fn: fn}
	if b.streams == nil {
		b.streams = make(map[string]*Stream)
	}
	b.streams[params.Device.ID] = s
	return s, nil
}

// Attempts returns every Open call in order.
func (b *Backend) Attempts() []audio.StreamParams {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]audio.StreamParams, len(b.attempts))
	copy(out, b.attempts)
	return out
}

// Stream returns the open stream for a device ID, or nil.
func (b *Backend) Stream(deviceID string) *Stream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streams[deviceID]
}

// Feed delivers interleaved samples to the stream opened on deviceID, as the
// audio thread would. It returns false if no open stream exists.
func (b *Backend) Feed(deviceID string, interleaved []float32) bool {
	s := b.Stream(deviceID)
	if s == nil {
		return false
	}
	return s.deliver(interleaved)
}

// FeedTone delivers seconds of a constant non-zero signal to deviceID in
// blocks of blockMillis, at the stream's negotiated format.
func (b *Backend) FeedTone(deviceID string, seconds float64, amplitude float32, blockMillis int) bool {
	s := b.Stream(deviceID)
	if s == nil {
		return false
	}
	rate, ch := s.Params.SampleRate, s.Params.Channels
	total := int(seconds * float64(rate))
	block := rate * blockMillis / 1000
	for sent := 0; sent < total; sent += block {
		n := block
		if sent+n > total {
			n = total - sent
		}
		buf := make([]float32, n*ch)
		for i := range buf {
			buf[i] = amplitude
		}
		if !s.deliver(buf) {
			return false
		}
	}
	return true
}

// Device builds a DeviceInfo for tests.
func Device(index int, name string, inCh, outCh, rate int) audio.DeviceInfo {
	return audio.DeviceInfo{
		ID:                fmt.Sprintf("fake-%d", index),
		Name:              name,
		Index:             index,
		IsDefault:         index == 0,
		MaxInputChannels:  inCh,
		MaxOutputChannels: outCh,
		DefaultSampleRate: rate,
	}
}
