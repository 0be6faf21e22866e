package live

import "github.com/emmett/minutes/internal/audio"

// Mixer merges the frames drained from the two sources into one mono signal
// at the target rate.
type Mixer struct {
	rate      int
	micWeight float32
	sysWeight float32
}

// NewMixer returns a Mixer producing samples at rate. Weights are normalised
// to sum to one.
func NewMixer(rate int, micWeight, sysWeight float64) *Mixer {
	sum := micWeight + sysWeight
	if sum <= 0 {
		micWeight, sysWeight, sum = 0.5, 0.5, 1
	}
	return &Mixer{
		rate:      rate,
		micWeight: float32(micWeight / sum),
		sysWeight: float32(sysWeight / sum),
	}
}

// Normalize resamples every frame to the target rate and concatenates them.
func (m *Mixer) Normalize(frames []audio.Frame) []float32 {
	var out []float32
	for _, f := range frames {
		out = append(out, audio.Resample(f.Samples, f.SampleRate, m.rate)...)
	}
	return out
}

// Mix combines one poll's worth of frames from each source. When both
// produced audio the result is their weighted average, truncated to the
// shorter of the two. A single producing source passes through unchanged.
func (m *Mixer) Mix(mic, sys []audio.Frame) []float32 {
	a := m.Normalize(mic)
	b := m.Normalize(sys)
	switch {
	case len(a) == 0:
		return b
	case len(b) == 0:
		return a
	}
	n := min(len(a), len(b))
	out := make([]float32, n)
	for i := range out {
		out[i] = m.micWeight*a[i] + m.sysWeight*b[i]
	}
	return out
}
