package stt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/emmett/minutes/internal/audio"
)

var _ Engine = (*VoskEngine)(nil)

// voskRate is the rate audio is resampled to before decoding.
const voskRate = 16000

// VoskEngine implements the Engine interface using Vosk
type VoskEngine struct {
	model *vosk.VoskModel
	mu    sync.Mutex
}

// voskResult represents the JSON result from Vosk
type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		End   float64 `json:"end"`
		Start float64 `json:"start"`
		Word  string  `json:"word"`
	} `json:"result,omitempty"`
}

// NewVoskEngine loads a Vosk model directory.
func NewVoskEngine(modelPath string) (*VoskEngine, error) {
	// Set log level (0 = errors only, higher = more verbose)
	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model from %s: %w", modelPath, err)
	}
	if model == nil {
		return nil, fmt.Errorf("failed to load model from %s: model returned nil", modelPath)
	}
	return &VoskEngine{model: model}, nil
}

// Transcribe feeds the whole request through a fresh recognizer and returns
// one segment per recognized utterance. Vosk has no language switch; the
// language is fixed by the model. VADFilter drops non-speech audio first.
func (v *VoskEngine) Transcribe(ctx context.Context, req Request) ([]Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples := req.Samples
	if req.SampleRate != voskRate {
		samples = audio.Resample(samples, req.SampleRate, voskRate)
	}
	if req.VADFilter {
		samples = audio.NewVAD(audio.DefaultVADConfig()).Filter(samples, voskRate)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.model == nil {
		return nil, fmt.Errorf("engine not initialized")
	}

	rec, err := vosk.NewRecognizer(v.model, float64(voskRate))
	if err != nil {
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}
	defer rec.Free()
	rec.SetWords(1)

	var segments []Segment
	pcm := pcm16Bytes(samples)
	// 0.5 s of PCM16 per call, so utterance boundaries surface as results.
	const block = voskRate
	for off := 0; off < len(pcm); off += block {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := off + block
		if end > len(pcm) {
			end = len(pcm)
		}
		if rec.AcceptWaveform(pcm[off:end]) > 0 {
			seg, err := parseVoskResult(rec.Result())
			if err != nil {
				return nil, err
			}
			if seg.Text != "" {
				segments = append(segments, seg)
			}
		}
	}

	seg, err := parseVoskResult(rec.FinalResult())
	if err != nil {
		return nil, err
	}
	if seg.Text != "" {
		segments = append(segments, seg)
	}
	return segments, nil
}

func parseVoskResult(raw string) (Segment, error) {
	var r voskResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Segment{}, fmt.Errorf("failed to parse result: %w", err)
	}
	seg := Segment{Text: r.Text}
	if n := len(r.Result); n > 0 {
		seg.Start = seconds(r.Result[0].Start)
		seg.End = seconds(r.Result[n-1].End)
	}
	return seg, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func pcm16Bytes(samples []float32) []byte {
	pcm := audio.FloatToPCM16(samples)
	out := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Close releases resources
func (v *VoskEngine) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}
