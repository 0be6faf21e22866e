package live

import (
	"errors"
	"fmt"
	"time"
)

// Config is supplied to Start and is not modified while a session runs.
type Config struct {
	// SampleRate is the rate of the mixed signal and of every chunk.
	SampleRate int

	// ChunkSeconds is the length of one transcription window.
	ChunkSeconds float64

	Language  string
	ModelSize string

	// MicDevice and SystemDevice select the two sources. An empty string
	// disables a source; "default" picks the backend default device.
	MicDevice    string
	SystemDevice string

	// WAVPath enables record-through of the mixed signal when non-empty.
	WAVPath string

	PollInterval     time.Duration
	MaxFramesPerPoll int

	// MicWeight and SystemWeight are normalised before mixing.
	MicWeight    float64
	SystemWeight float64

	VADFilter   bool
	StopTimeout time.Duration
}

// DefaultConfig returns the pipeline defaults with both sources disabled.
func DefaultConfig() Config {
	return Config{
		SampleRate:       16000,
		ChunkSeconds:     15,
		Language:         "fr",
		ModelSize:        "small",
		PollInterval:     50 * time.Millisecond,
		MaxFramesPerPoll: 32,
		MicWeight:        0.5,
		SystemWeight:     0.5,
		VADFilter:        true,
		StopTimeout:      5 * time.Second,
	}
}

// withTunables fills zero tunables from DefaultConfig.
func (c Config) withTunables() Config {
	d := DefaultConfig()
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxFramesPerPoll == 0 {
		c.MaxFramesPerPoll = d.MaxFramesPerPoll
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = d.StopTimeout
	}
	if c.MicWeight == 0 && c.SystemWeight == 0 {
		c.MicWeight, c.SystemWeight = d.MicWeight, d.SystemWeight
	}
	return c
}

// ChunkSamples is the number of samples in one chunk.
func (c Config) ChunkSamples() int {
	return int(c.ChunkSeconds * float64(c.SampleRate))
}

// Validate reports every problem with c as a *ConfigError.
func (c Config) Validate() error {
	var errs []error
	if c.MicDevice == "" && c.SystemDevice == "" {
		errs = append(errs, errors.New("no audio source selected"))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", c.SampleRate))
	}
	if c.ChunkSeconds <= 0 {
		errs = append(errs, fmt.Errorf("chunk seconds must be positive, got %g", c.ChunkSeconds))
	} else if c.SampleRate > 0 && c.ChunkSamples() == 0 {
		errs = append(errs, fmt.Errorf("chunk of %gs is shorter than one sample", c.ChunkSeconds))
	}
	if c.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("poll interval must not be negative, got %s", c.PollInterval))
	}
	if c.MaxFramesPerPoll < 0 {
		errs = append(errs, fmt.Errorf("max frames per poll must not be negative, got %d", c.MaxFramesPerPoll))
	}
	if c.MicWeight < 0 || c.SystemWeight < 0 || c.MicWeight+c.SystemWeight <= 0 {
		errs = append(errs, fmt.Errorf("mix weights must be non-negative with a positive sum, got %g/%g", c.MicWeight, c.SystemWeight))
	}
	if len(errs) == 0 {
		return nil
	}
	return &ConfigError{Err: errors.Join(errs...)}
}
