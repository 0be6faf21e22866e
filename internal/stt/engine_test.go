package stt_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/stt"
	"github.com/emmett/minutes/internal/stt/mock"
)

func TestJoinSegments(t *testing.T) {
	segs := []stt.Segment{{Text: "  bonjour "}, {Text: ""}, {Text: "\tà tous\n"}}
	if got := stt.JoinSegments(segs, " "); got != "bonjour à tous" {
		t.Errorf("JoinSegments = %q", got)
	}
	if got := stt.JoinSegments(segs, "\n"); got != "bonjour\nà tous" {
		t.Errorf("JoinSegments newline = %q", got)
	}
	if got := stt.JoinSegments(nil, " "); got != "" {
		t.Errorf("JoinSegments(nil) = %q", got)
	}
}

func TestRequestDuration(t *testing.T) {
	req := stt.Request{Samples: make([]float32, 24000), SampleRate: 16000}
	if got := req.Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration = %v", got)
	}
	if got := (stt.Request{}).Duration(); got != 0 {
		t.Errorf("zero Duration = %v", got)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := stt.New(stt.Config{Backend: "deepspeech"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestTranscribeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meeting.wav")
	sink, err := audio.CreateWAV(path, 16000)
	if err != nil {
		t.Fatalf("CreateWAV: %v", err)
	}
	tone := make([]float32, 16000)
	for i := range tone {
		tone[i] = 0.2
	}
	if err := sink.Write(tone); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	eng := &mock.Engine{Segments: []stt.Segment{{Text: "première ligne"}, {Text: " seconde "}}}
	got, err := stt.TranscribeFile(context.Background(), eng, path, "fr")
	if err != nil {
		t.Fatalf("TranscribeFile: %v", err)
	}
	if got != "première ligne\nseconde" {
		t.Errorf("text = %q", got)
	}
	if len(eng.Calls) != 1 {
		t.Fatalf("calls = %d", len(eng.Calls))
	}
	call := eng.Calls[0]
	if !call.VADFilter || call.Language != "fr" || call.SampleRate != 16000 {
		t.Errorf("request = %+v", call)
	}
}

func TestTranscribeFile_EngineError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meeting.wav")
	sink, err := audio.CreateWAV(path, 16000)
	if err != nil {
		t.Fatalf("CreateWAV: %v", err)
	}
	_ = sink.Write([]float32{0.5, 0.5})
	_ = sink.Close()

	boom := errors.New("boom")
	_, err = stt.TranscribeFile(context.Background(), &mock.Engine{Err: boom}, path, "fr")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestMockEngine_Silence(t *testing.T) {
	eng := &mock.Engine{Text: "test"}
	segs, err := eng.Transcribe(context.Background(), stt.Request{Samples: make([]float32, 1600), SampleRate: 16000})
	if err != nil || len(segs) != 0 {
		t.Errorf("silence = %v, %v", segs, err)
	}
}
