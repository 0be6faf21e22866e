package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// WAVSink appends mono float samples to a PCM16 WAV file.
type WAVSink struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	enc     *wav.Encoder
	format  *goaudio.Format
	samples int64
	closed  bool
}

// CreateWAV creates (or truncates) path and writes a PCM16 mono header for
// sampleRate. Missing parent directories are created.
func CreateWAV(path string, sampleRate int) (*WAVSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create recording directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create wav file: %w", err)
	}
	return &WAVSink{
		path:   path,
		file:   f,
		enc:    wav.NewEncoder(f, sampleRate, 16, 1, wavFormatPCM),
		format: &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
	}, nil
}

// Path returns the file being written.
func (s *WAVSink) Path() string {
	return s.path
}

// Write appends samples, clipped to [-1, 1].
func (s *WAVSink) Write(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("wav sink closed")
	}

	pcm := FloatToPCM16(samples)
	data := make([]int, len(pcm))
	for i, v := range pcm {
		data[i] = int(v)
	}
	buf := &goaudio.IntBuffer{Format: s.format, Data: data, SourceBitDepth: 16}
	if err := s.enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	s.samples += int64(len(samples))
	return nil
}

// Seconds returns the recorded duration.
func (s *WAVSink) Seconds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.samples) / float64(s.format.SampleRate)
}

// Close finalizes the header and closes the file. It is idempotent.
func (s *WAVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.samples == 0 {
		// The encoder only emits its header on the first write.
		_ = s.enc.Write(&goaudio.IntBuffer{Format: s.format, SourceBitDepth: 16})
	}
	encErr := s.enc.Close()
	fileErr := s.file.Close()
	if encErr != nil {
		return fmt.Errorf("failed to finalize wav file: %w", encErr)
	}
	return fileErr
}

// ReadWAV decodes a PCM WAV file into mono float samples.
func ReadWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode wav file: %w", err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))
	interleaved := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		interleaved[i] = float32(v) / scale
	}

	return Downmix(interleaved, buf.Format.NumChannels), buf.Format.SampleRate, nil
}
