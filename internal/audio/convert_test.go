package audio_test

import (
	"math"
	"testing"

	"github.com/emmett/minutes/internal/audio"
)

func TestResample_SameRateIsIdentity(t *testing.T) {
	in := []float32{0.1, -0.2, 0.3, -0.4, 0.5}
	out := audio.Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
	out[0] = 9
	if in[0] == 9 {
		t.Error("Resample returned the input slice instead of a copy")
	}
}

func TestResample_Empty(t *testing.T) {
	if out := audio.Resample(nil, 48000, 16000); len(out) != 0 {
		t.Errorf("len = %d, want 0", len(out))
	}
}

func TestResample_LengthIsProportional(t *testing.T) {
	tests := []struct {
		n, src, dst int
	}{
		{480, 48000, 16000},
		{441, 44100, 16000},
		{160, 16000, 48000},
		{320, 32000, 16000},
		{1000, 22050, 16000},
		{7, 44100, 48000},
	}
	for _, tt := range tests {
		in := make([]float32, tt.n)
		out := audio.Resample(in, tt.src, tt.dst)
		want := int(math.Round(float64(tt.n) * float64(tt.dst) / float64(tt.src)))
		if len(out) != want {
			t.Errorf("Resample(%d, %d->%d) len = %d, want %d", tt.n, tt.src, tt.dst, len(out), want)
		}
	}
}

func TestResample_LinearRamp(t *testing.T) {
	// A ramp stays a ramp under linear interpolation, endpoints included.
	in := []float32{0, 1, 2, 3, 4, 5, 6, 7, 8}
	out := audio.Resample(in, 9, 5)
	want := []float32{0, 2, 4, 6, 8}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-5 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestDownmix_IsChannelMean(t *testing.T) {
	tests := []struct {
		name     string
		in       []float32
		channels int
		want     []float32
	}{
		{"mono", []float32{0.1, 0.2}, 1, []float32{0.1, 0.2}},
		{"stereo", []float32{1, 0, 0.5, -0.5, -1, -1}, 2, []float32{0.5, 0, -1}},
		{"quad", []float32{1, 1, 1, 1, 0, 0, 0, 0.4}, 4, []float32{1, 0.1}},
		{"partial frame dropped", []float32{1, 1, 1}, 2, []float32{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := audio.Downmix(tt.in, tt.channels)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Errorf("got[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFloatToPCM16_Clips(t *testing.T) {
	got := audio.FloatToPCM16([]float32{2, -2, 0})
	if got[0] != math.MaxInt16 || got[1] != -math.MaxInt16 || got[2] != 0 {
		t.Errorf("FloatToPCM16 = %v", got)
	}
}

func TestRMS(t *testing.T) {
	if got := audio.RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v", got)
	}
	if got := audio.RMS([]float32{0.5, -0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS = %v, want 0.5", got)
	}
}
