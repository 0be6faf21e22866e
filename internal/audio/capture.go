package audio

import (
	"errors"
	"io"
)

// ErrUnavailable is returned when a device cannot be opened with any
// negotiated format. Callers treat it as a degraded source, not a failure.
var ErrUnavailable = errors.New("audio device unavailable")

// Frame is a block of mono float32 samples captured at SampleRate.
// Frames are never mutated after they are pushed to a queue.
type Frame struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the frame length in seconds.
func (f Frame) Duration() float64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return float64(len(f.Samples)) / float64(f.SampleRate)
}

// StreamParams describes one attempt at opening a hardware stream.
type StreamParams struct {
	// Device is the backend device to open. Nil selects the backend default.
	Device *DeviceInfo

	// SampleRate is the requested rate in Hz
	SampleRate int

	// Channels is the requested interleaved channel count
	Channels int

	// Loopback captures what the device is playing instead of its input
	Loopback bool

	// PeriodFrames is the callback period; zero lets the backend choose
	PeriodFrames int
}

// FrameFunc receives interleaved float32 samples from the audio thread.
// The slice is only valid for the duration of the call.
type FrameFunc func(interleaved []float32)

// Backend is the host audio subsystem.
type Backend interface {
	// Devices enumerates capture devices, or playback devices when loopback
	// is true.
	Devices(loopback bool) ([]DeviceInfo, error)

	// Open starts a stream with exactly the given parameters or fails.
	Open(params StreamParams, fn FrameFunc) (io.Closer, error)
}
