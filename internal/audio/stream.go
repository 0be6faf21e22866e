package audio

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// StreamHandle is one open capture stream feeding a FrameQueue. It is either
// fully open or fully closed.
type StreamHandle struct {
	DeviceID   string
	DeviceName string
	SampleRate int
	Channels   int
	Loopback   bool
	Queue      *FrameQueue

	mu     sync.Mutex
	closer io.Closer
	closed bool
}

// OpenStream resolves deviceID on backend and opens it with the first format
// the backend accepts. Frames are downmixed to mono and pushed to the
// handle's queue from the audio thread. Any failure is reported as
// ErrUnavailable.
func OpenStream(backend Backend, deviceID string, loopback bool) (*StreamHandle, error) {
	devices, err := backend.Devices(loopback)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate devices: %w", ErrUnavailable, err)
	}
	dev, err := ResolveDevice(devices, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	h := &StreamHandle{
		DeviceID:   dev.ID,
		DeviceName: dev.Name,
		Loopback:   loopback,
		Queue:      NewFrameQueue(DefaultQueueCapacity),
	}

	chosen, err := Negotiate(Candidates(*dev, loopback), func(c Candidate) error {
		closer, err := backend.Open(StreamParams{
			Device:     dev,
			SampleRate: c.SampleRate,
			Channels:   c.Channels,
			Loopback:   loopback,
		}, h.callback(c))
		if err != nil {
			return err
		}
		h.closer = closer
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", dev.Name, err)
	}

	h.mu.Lock()
	h.SampleRate = chosen.SampleRate
	h.Channels = chosen.Channels
	h.mu.Unlock()

	slog.Debug("audio stream opened",
		"device", dev.Name,
		"rate", chosen.SampleRate,
		"channels", chosen.Channels,
		"loopback", loopback,
	)
	return h, nil
}

func (h *StreamHandle) callback(c Candidate) FrameFunc {
	return func(interleaved []float32) {
		if len(interleaved) == 0 {
			return
		}
		h.Queue.Push(Frame{
			Samples:    Downmix(interleaved, c.Channels),
			SampleRate: c.SampleRate,
		})
	}
}

// Close stops the stream. Calling it more than once is safe.
func (h *StreamHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if h.closer == nil {
		return nil
	}
	if err := h.closer.Close(); err != nil {
		return fmt.Errorf("close %q: %w", h.DeviceName, err)
	}
	return nil
}

// IsOpen reports whether the stream is still delivering frames.
func (h *StreamHandle) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed
}
