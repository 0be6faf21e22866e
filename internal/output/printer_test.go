package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/emmett/minutes/internal/live"
	"github.com/emmett/minutes/internal/output"
)

type recorder struct {
	segments []output.Segment
	events   []string
	flushed  int
}

func (r *recorder) WriteSegment(s output.Segment) error { r.segments = append(r.segments, s); return nil }
func (r *recorder) WriteEvent(t, m string) error       { r.events = append(r.events, t+": "+m); return nil }
func (r *recorder) Flush() error                       { r.flushed++; return nil }
func (r *recorder) Close() error                       { return nil }

func TestPrinter(t *testing.T) {
	rec := &recorder{}
	p := output.NewPrinter(rec)

	p.OnUpdate(live.TranscriptState{IsRunning: true, WAVPath: "/tmp/a.wav"})
	p.OnUpdate(live.TranscriptState{IsRunning: true, Transcript: "bonjour", AppendedSegments: 1})
	p.OnUpdate(live.TranscriptState{IsRunning: true, Transcript: "bonjour", AppendedSegments: 1, LastError: "transcription error: boom"})
	p.OnUpdate(live.TranscriptState{IsRunning: true, Transcript: "bonjour à tous", AppendedSegments: 2, LastError: "transcription error: boom"})
	p.OnUpdate(live.TranscriptState{IsRunning: false, Transcript: "bonjour à tous", AppendedSegments: 2, LastError: "transcription error: boom"})

	if len(rec.segments) != 2 {
		t.Fatalf("segments = %+v", rec.segments)
	}
	if rec.segments[0].Text != "bonjour" || rec.segments[1].Text != "à tous" || rec.segments[1].Index != 2 {
		t.Errorf("segments = %+v", rec.segments)
	}
	want := []string{
		"start: capture started, recording to /tmp/a.wav",
		"error: transcription error: boom",
		"stop: capture stopped",
	}
	if strings.Join(rec.events, "|") != strings.Join(want, "|") {
		t.Errorf("events = %q", rec.events)
	}
	if rec.flushed != 1 {
		t.Errorf("flushed %d times", rec.flushed)
	}
}

func TestPrinter_RestartResetsOffsets(t *testing.T) {
	rec := &recorder{}
	p := output.NewPrinter(rec)

	p.OnUpdate(live.TranscriptState{IsRunning: true})
	p.OnUpdate(live.TranscriptState{IsRunning: true, Transcript: "premier", AppendedSegments: 1})
	p.OnUpdate(live.TranscriptState{Transcript: "premier", AppendedSegments: 1})
	p.OnUpdate(live.TranscriptState{IsRunning: true})
	p.OnUpdate(live.TranscriptState{IsRunning: true, Transcript: "second", AppendedSegments: 1})

	if len(rec.segments) != 2 || rec.segments[1].Text != "second" {
		t.Errorf("segments = %+v", rec.segments)
	}
}

func TestNewFormatter(t *testing.T) {
	for _, format := range []string{"console", "json", "text", ""} {
		if _, err := output.NewFormatter(format, &bytes.Buffer{}); err != nil {
			t.Errorf("NewFormatter(%q): %v", format, err)
		}
	}
	if _, err := output.NewFormatter("xml", &bytes.Buffer{}); err == nil {
		t.Error("expected error for xml")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := output.NewJSONFormatter(&buf)
	if err := f.WriteSegment(output.Segment{Index: 1, Text: "salut"}); err != nil {
		t.Fatal(err)
	}
	if err := f.WriteEvent("stop", "capture stopped"); err != nil {
		t.Fatal(err)
	}

	dec := json.NewDecoder(&buf)
	var seg output.Segment
	if err := dec.Decode(&seg); err != nil {
		t.Fatal(err)
	}
	if seg.Text != "salut" || seg.Type != "segment" {
		t.Errorf("segment = %+v", seg)
	}
	var ev output.Event
	if err := dec.Decode(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != "stop" {
		t.Errorf("event = %+v", ev)
	}
	if len(f.Segments()) != 1 {
		t.Errorf("Segments() = %v", f.Segments())
	}
}

func TestConsoleOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	c := output.NewConsoleOutput(output.ConsoleConfig{Writer: &out, ErrWriter: &errOut})
	_ = c.WriteSegment(output.Segment{Index: 3, Text: "test"})
	_ = c.WriteEvent("error", "boom")
	_ = c.WriteEvent("start", "capture started")

	if out.String() != "[3] test\n[INFO] capture started\n" {
		t.Errorf("stdout = %q", out.String())
	}
	if errOut.String() != "[ERROR] boom\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}
