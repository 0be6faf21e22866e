package audio_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/audio/audiotest"
)

func TestCandidates_Order(t *testing.T) {
	dev := audio.DeviceInfo{MaxInputChannels: 1, MaxOutputChannels: 8, DefaultSampleRate: 44100}

	got := audio.Candidates(dev, true)
	// rates: 44100, 48000, 32000, 16000 (44100 deduplicated); channels: 8, 2, 1
	if len(got) != 12 {
		t.Fatalf("len = %d, want 12: %v", len(got), got)
	}
	if got[0] != (audio.Candidate{SampleRate: 44100, Channels: 8}) {
		t.Errorf("first = %v", got[0])
	}
	if got[1] != (audio.Candidate{SampleRate: 44100, Channels: 2}) {
		t.Errorf("second = %v", got[1])
	}
	if got[3] != (audio.Candidate{SampleRate: 48000, Channels: 8}) {
		t.Errorf("fourth = %v", got[3])
	}
	if last := got[len(got)-1]; last != (audio.Candidate{SampleRate: 16000, Channels: 1}) {
		t.Errorf("last = %v", last)
	}

	mic := audio.Candidates(dev, false)
	// channels: 1, 2 (1 deduplicated)
	if len(mic) != 8 {
		t.Fatalf("mic len = %d, want 8", len(mic))
	}
	if mic[0].Channels != 1 || mic[1].Channels != 2 {
		t.Errorf("mic channel order = %v", mic[:2])
	}
}

func TestCandidates_UnknownDefaults(t *testing.T) {
	got := audio.Candidates(audio.DeviceInfo{}, false)
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}
	if got[0] != (audio.Candidate{SampleRate: 48000, Channels: 2}) {
		t.Errorf("first = %v", got[0])
	}
}

func TestNegotiate(t *testing.T) {
	cands := []audio.Candidate{{48000, 2}, {44100, 2}, {16000, 1}}

	t.Run("first accepted wins", func(t *testing.T) {
		var tried []audio.Candidate
		got, err := audio.Negotiate(cands, func(c audio.Candidate) error {
			tried = append(tried, c)
			if c.SampleRate == 44100 {
				return nil
			}
			return fmt.Errorf("nope")
		})
		if err != nil {
			t.Fatalf("Negotiate: %v", err)
		}
		if got != cands[1] {
			t.Errorf("got %v, want %v", got, cands[1])
		}
		if len(tried) != 2 {
			t.Errorf("tried %d candidates, want 2", len(tried))
		}
	})

	t.Run("each candidate tried once", func(t *testing.T) {
		calls := 0
		_, err := audio.Negotiate(cands, func(audio.Candidate) error {
			calls++
			return fmt.Errorf("nope")
		})
		if !errors.Is(err, audio.ErrUnavailable) {
			t.Fatalf("err = %v, want ErrUnavailable", err)
		}
		if calls != len(cands) {
			t.Errorf("calls = %d, want %d", calls, len(cands))
		}
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := audio.Negotiate(nil, func(audio.Candidate) error { return nil })
		if !errors.Is(err, audio.ErrUnavailable) {
			t.Errorf("err = %v, want ErrUnavailable", err)
		}
	})
}

func TestResolveDevice(t *testing.T) {
	devices := []audio.DeviceInfo{
		audiotest.Device(0, "Built-in Microphone", 1, 0, 48000),
		audiotest.Device(1, "USB Headset", 2, 0, 44100),
		audiotest.Device(2, "Speakers (Realtek Audio)", 0, 2, 48000),
	}

	tests := []struct {
		id      string
		want    string
		wantErr bool
	}{
		{"", "Built-in Microphone", false},
		{"default", "Built-in Microphone", false},
		{"1", "USB Headset", false},
		{"fake-2", "Speakers (Realtek Audio)", false},
		{"usb", "USB Headset", false},
		{"USB Headsett", "USB Headset", false},
		{"7", "", true},
		{"bluetooth", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := audio.ResolveDevice(devices, tt.id)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got.Name)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveDevice: %v", err)
			}
			if got.Name != tt.want {
				t.Errorf("got %q, want %q", got.Name, tt.want)
			}
		})
	}

	if _, err := audio.ResolveDevice(nil, "0"); err == nil {
		t.Error("expected error for empty device list")
	}
}
