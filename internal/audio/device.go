package audio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultDevice selects the backend's default endpoint.
const DefaultDevice = "default"

// fuzzyThreshold is the minimum Jaro-Winkler score for a name match.
const fuzzyThreshold = 0.85

// commonRates are tried after the device's own default rate.
var commonRates = []int{48000, 44100, 32000, 16000}

// DeviceInfo contains information about an audio device
type DeviceInfo struct {
	ID                string `json:"id"`         // Backend device identifier
	Name              string `json:"name"`       // Human-readable device name
	Index             int    `json:"index"`      // Position in the enumeration
	IsDefault         bool   `json:"is_default"` // Whether this is the default device
	MaxInputChannels  int    `json:"max_input_channels"`
	MaxOutputChannels int    `json:"max_output_channels"`
	DefaultSampleRate int    `json:"default_sample_rate"`

	native any // backend handle, e.g. a malgo.DeviceID
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	defaultMarker := ""
	if d.IsDefault {
		defaultMarker = " [DEFAULT]"
	}
	return fmt.Sprintf("%d: %s%s (in: %d, out: %d, rate: %d Hz)",
		d.Index, d.Name, defaultMarker, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
}

// Candidate is one (rate, channels) pair to try when opening a stream.
type Candidate struct {
	SampleRate int
	Channels   int
}

func (c Candidate) String() string {
	return fmt.Sprintf("%d Hz/%d ch", c.SampleRate, c.Channels)
}

// Candidates returns the ordered list of formats to try for dev. Rates start
// with the device default and fall back to common rates; channel counts start
// with the device maximum (output side for loopback) then stereo then mono.
func Candidates(dev DeviceInfo, loopback bool) []Candidate {
	rates := dedupe(append([]int{dev.DefaultSampleRate}, commonRates...))

	maxCh := dev.MaxInputChannels
	if loopback {
		maxCh = dev.MaxOutputChannels
	}
	channels := dedupe([]int{maxCh, 2, 1})

	out := make([]Candidate, 0, len(rates)*len(channels))
	for _, r := range rates {
		for _, ch := range channels {
			out = append(out, Candidate{SampleRate: r, Channels: ch})
		}
	}
	return out
}

func dedupe(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := in[:0:0]
	for _, v := range in {
		if v <= 0 || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Negotiate calls try once per candidate, in order, and returns the first
// candidate it accepts. When every attempt fails the result wraps
// ErrUnavailable together with each attempt's error.
func Negotiate(candidates []Candidate, try func(Candidate) error) (Candidate, error) {
	var errs []error
	for _, c := range candidates {
		err := try(c)
		if err == nil {
			return c, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", c, err))
	}
	if len(errs) == 0 {
		return Candidate{}, fmt.Errorf("%w: no candidate formats", ErrUnavailable)
	}
	return Candidate{}, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

// ResolveDevice finds id among devices. It accepts "default", an enumeration
// index, an exact backend ID, an exact or partial name, and finally a fuzzy
// name match.
func ResolveDevice(devices []DeviceInfo, id string) (*DeviceInfo, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices found")
	}
	id = strings.TrimSpace(id)

	if id == "" || strings.EqualFold(id, DefaultDevice) {
		for i := range devices {
			if devices[i].IsDefault {
				return &devices[i], nil
			}
		}
		return &devices[0], nil
	}

	if n, err := strconv.Atoi(id); err == nil {
		for i := range devices {
			if devices[i].Index == n {
				return &devices[i], nil
			}
		}
		return nil, fmt.Errorf("device index out of range: %d", n)
	}

	for i := range devices {
		if devices[i].ID == id || devices[i].Name == id {
			return &devices[i], nil
		}
	}

	search := strings.ToLower(id)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), search) {
			return &devices[i], nil
		}
	}

	best, bestScore := -1, 0.0
	for i := range devices {
		score := matchr.JaroWinkler(search, strings.ToLower(devices[i].Name), false)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 && bestScore >= fuzzyThreshold {
		return &devices[best], nil
	}

	return nil, fmt.Errorf("no device found matching: %s", id)
}
