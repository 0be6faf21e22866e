package audio

// VADConfig holds configuration for Voice Activity Detection
type VADConfig struct {
	// EnergyThreshold is the minimum RMS level to consider as speech
	// Typical values: 0.001 to 0.1 (lower = more sensitive)
	EnergyThreshold float64

	// FrameMillis is the analysis window length
	FrameMillis int

	// SilenceFrames is the number of consecutive silent frames before speech ends
	SilenceFrames int

	// SpeechFrames is the number of consecutive speech frames before speech starts
	SpeechFrames int
}

// DefaultVADConfig returns 30ms frames, 90ms onset and 500ms minimum silence.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 0.01,
		FrameMillis:     30,
		SilenceFrames:   17,
		SpeechFrames:    3,
	}
}

// VAD (Voice Activity Detector) detects speech vs silence in audio
type VAD struct {
	config            VADConfig
	silenceFrameCount int
	speechFrameCount  int
	isSpeaking        bool
}

// NewVAD creates a new voice activity detector
func NewVAD(config VADConfig) *VAD {
	if config.FrameMillis <= 0 {
		config.FrameMillis = 30
	}
	return &VAD{config: config}
}

// ProcessFrame processes one analysis window and reports whether speech is
// active, and whether it started or ended on this window.
func (v *VAD) ProcessFrame(samples []float32) (active, started, ended bool) {
	frameHasSpeech := RMS(samples) > v.config.EnergyThreshold

	if frameHasSpeech {
		v.speechFrameCount++
		v.silenceFrameCount = 0
		if !v.isSpeaking && v.speechFrameCount >= v.config.SpeechFrames {
			v.isSpeaking = true
			started = true
		}
	} else {
		v.silenceFrameCount++
		v.speechFrameCount = 0
		if v.isSpeaking && v.silenceFrameCount >= v.config.SilenceFrames {
			v.isSpeaking = false
			ended = true
		}
	}

	return v.isSpeaking, started, ended
}

// IsSpeaking returns whether speech is currently active
func (v *VAD) IsSpeaking() bool {
	return v.isSpeaking
}

// Reset resets the VAD state
func (v *VAD) Reset() {
	v.silenceFrameCount = 0
	v.speechFrameCount = 0
	v.isSpeaking = false
}

// Filter returns only the speech regions of samples, concatenated. Onset
// windows that led to a speech start are kept, as is trailing silence shorter
// than SilenceFrames. The detector is reset before and after.
func (v *VAD) Filter(samples []float32, sampleRate int) []float32 {
	v.Reset()
	defer v.Reset()

	size := sampleRate * v.config.FrameMillis / 1000
	if size <= 0 || len(samples) == 0 {
		return nil
	}

	var out, pending []float32
	for start := 0; start < len(samples); start += size {
		end := start + size
		if end > len(samples) {
			end = len(samples)
		}
		window := samples[start:end]

		wasSpeaking := v.isSpeaking
		active, started, _ := v.ProcessFrame(window)
		switch {
		case started:
			out = append(out, pending...)
			out = append(out, window...)
			pending = pending[:0]
		case active || wasSpeaking:
			out = append(out, window...)
		case v.speechFrameCount > 0:
			pending = append(pending, window...)
		default:
			pending = pending[:0]
		}
	}
	return out
}
