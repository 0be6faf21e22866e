package audio

import "math"

// Downmix averages interleaved multi-channel samples into mono. A channel
// count of one or less returns a copy of the input. Trailing samples that do
// not form a whole frame are ignored.
func Downmix(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	out := make([]float32, frames)
	inv := 1 / float32(channels)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += interleaved[base+c]
		}
		out[i] = sum * inv
	}
	return out
}

// Resample converts mono samples from srcRate to dstRate by linear
// interpolation. Both ends of the signal are mapped onto each other, so an
// input of N samples yields round(N*dst/src) samples spanning the same time.
func Resample(in []float32, srcRate, dstRate int) []float32 {
	if len(in) == 0 || srcRate <= 0 || dstRate <= 0 {
		return []float32{}
	}
	if srcRate == dstRate {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}

	n := len(in)
	m := int(math.Round(float64(n) * float64(dstRate) / float64(srcRate)))
	if m <= 0 {
		return []float32{}
	}

	out := make([]float32, m)
	if n == 1 {
		for i := range out {
			out[i] = in[0]
		}
		return out
	}
	if m == 1 {
		out[0] = in[0]
		return out
	}

	step := float64(n-1) / float64(m-1)
	for i := 0; i < m; i++ {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= n-1 {
			out[i] = in[n-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = in[idx] + (in[idx+1]-in[idx])*frac
	}
	return out
}

// FloatToPCM16 clips samples to [-1, 1] and converts them to signed 16-bit.
func FloatToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * math.MaxInt16)
	}
	return out
}

// PCM16ToFloat converts little-endian signed 16-bit bytes to float32.
func PCM16ToFloat(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		out[i] = float32(s) / 32768.0
	}
	return out
}

// RMS returns the root mean square of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
