package live

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSource is returned by Start when no enabled device could be opened.
	ErrNoSource = errors.New("no audio source available")

	// ErrStopTimeout is returned by Stop when the run loop did not exit in time.
	ErrStopTimeout = errors.New("timed out waiting for capture to stop")

	// ErrBusy is returned by Start while a previous session is still
	// starting or winding down.
	ErrBusy = errors.New("capture is starting or stopping")
)

// ConfigError wraps the joined validation failures of a Config.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "invalid capture config: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// SinkError reports that the record-through WAV file could not be created.
type SinkError struct {
	Path string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("open wav sink %s: %v", e.Path, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
