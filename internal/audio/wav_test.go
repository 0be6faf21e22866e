package audio_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/emmett/minutes/internal/audio"
)

func TestWAVSink_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec", "live.wav")

	sink, err := audio.CreateWAV(path, 16000)
	if err != nil {
		t.Fatalf("CreateWAV: %v", err)
	}
	if sink.Path() != path {
		t.Errorf("Path = %q", sink.Path())
	}
	if err := sink.Write(constant(8000, 0.25)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Write(constant(8000, -0.25)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := sink.Seconds(); math.Abs(got-1) > 1e-9 {
		t.Errorf("Seconds = %v, want 1", got)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := sink.Write([]float32{1}); err == nil {
		t.Error("Write after Close should fail")
	}

	samples, rate, err := audio.ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("rate = %d", rate)
	}
	if len(samples) != 16000 {
		t.Fatalf("len = %d, want 16000", len(samples))
	}
	if math.Abs(float64(samples[0]-0.25)) > 1e-3 || math.Abs(float64(samples[15999]+0.25)) > 1e-3 {
		t.Errorf("samples[0] = %v, samples[last] = %v", samples[0], samples[15999])
	}
}

func TestCreateWAV_BadPath(t *testing.T) {
	dir := t.TempDir()
	// A directory cannot be opened as a file.
	if _, err := audio.CreateWAV(dir, 16000); err == nil {
		t.Fatal("expected error creating a wav over a directory")
	}
}
