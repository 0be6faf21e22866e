package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emmett/minutes/internal/app"
	"github.com/emmett/minutes/internal/app/apptest"
	"github.com/emmett/minutes/internal/live"
	"github.com/emmett/minutes/internal/stt"
	"github.com/emmett/minutes/internal/stt/mock"
)

func TestSession_StopFilesMeeting(t *testing.T) {
	start := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	env := apptest.New(t, "Alice doit envoyer le devis.", app.WithClock(func() time.Time { return start }))
	s := env.Session
	ctx := context.Background()

	err := s.Start(app.SessionOptions{Theme: "Ops", Project: "minutes", Participants: []string{"Alice", "Bob"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Running() {
		t.Fatal("session should be running")
	}

	env.Speak(t, 2)
	apptest.WaitFor(t, "two segments", func() bool { return s.State().AppendedSegments >= 2 })

	m, err := s.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m == nil {
		t.Fatal("expected a meeting")
	}
	if s.Running() {
		t.Error("session still running after Stop")
	}

	if m.Source != "live" || m.Theme != "Ops" || !m.Date.Equal(start) {
		t.Errorf("meeting = %+v", m)
	}
	if m.Title != "Alice doit envoyer le devis. Alice" {
		t.Errorf("title = %q", m.Title)
	}
	if !strings.HasPrefix(m.Summary, "Alice doit envoyer le devis.") {
		t.Errorf("summary = %q", m.Summary)
	}

	wantName := "20260311_093000_Ops_minutes_Alice_doit_envoyer_le_devis_Alice.txt"
	if filepath.Base(m.TranscriptPath) != wantName {
		t.Errorf("transcript file = %s, want %s", filepath.Base(m.TranscriptPath), wantName)
	}
	data, err := os.ReadFile(m.TranscriptPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != s.State().Transcript {
		t.Errorf("transcript file = %q, state = %q", data, s.State().Transcript)
	}

	saved, err := env.Store.GetMeeting(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMeeting: %v", err)
	}
	if saved.TranscriptPath != m.TranscriptPath {
		t.Errorf("stored meeting = %+v", saved)
	}

	todos, err := env.Store.ListTodos(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(todos) != 1 || todos[0].Actor != "Alice" {
		t.Errorf("todos = %+v", todos)
	}

	autosave, err := os.ReadFile(filepath.Join(env.Paths.Autosave, "live_autosave.txt"))
	if err != nil {
		t.Fatalf("autosave: %v", err)
	}
	if string(autosave) != string(data) {
		t.Errorf("autosave = %q", autosave)
	}
}

func TestSession_RecordUsesDefaultPath(t *testing.T) {
	start := time.Date(2026, 3, 11, 14, 5, 6, 0, time.UTC)
	env := apptest.New(t, "bonjour", app.WithClock(func() time.Time { return start }))

	if err := env.Session.Start(app.SessionOptions{Record: true}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := filepath.Join(env.Paths.Recordings, "live_20260311_140506.wav")
	if got := env.Session.State().WAVPath; got != want {
		t.Errorf("WAVPath = %q, want %q", got, want)
	}

	env.Speak(t, 1)
	apptest.WaitFor(t, "a segment", func() bool { return env.Session.State().AppendedSegments >= 1 })
	if _, err := env.Session.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("recording missing: %v", err)
	}
}

func TestSession_EmptyTranscriptSavesNothing(t *testing.T) {
	env := apptest.New(t, "")
	ctx := context.Background()

	if err := env.Session.Start(app.SessionOptions{}); err != nil {
		t.Fatal(err)
	}
	m, err := env.Session.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m != nil {
		t.Errorf("meeting = %+v, want nil", m)
	}
	meetings, err := env.Store.ListMeetings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(meetings) != 0 {
		t.Errorf("meetings = %+v", meetings)
	}
}

func TestSession_StopWhenIdle(t *testing.T) {
	env := apptest.New(t, "x")
	m, err := env.Session.Stop(context.Background())
	if m != nil || err != nil {
		t.Errorf("Stop() = %v, %v", m, err)
	}
}

func TestSession_StartTwice(t *testing.T) {
	env := apptest.New(t, "x")
	if err := env.Session.Start(app.SessionOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := env.Session.Start(app.SessionOptions{Record: true}); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if env.Session.State().WAVPath != "" {
		t.Error("second Start should not reconfigure the running session")
	}
}

func TestSession_Toggle(t *testing.T) {
	env := apptest.New(t, "point suivant.")
	ctx := context.Background()

	started, m, err := env.Session.Toggle(ctx, app.SessionOptions{Title: "Revue"})
	if err != nil || !started || m != nil {
		t.Fatalf("first Toggle = %v, %v, %v", started, m, err)
	}

	env.Speak(t, 1)
	apptest.WaitFor(t, "a segment", func() bool { return env.Session.State().AppendedSegments >= 1 })

	started, m, err = env.Session.Toggle(ctx, app.SessionOptions{})
	if err != nil || started {
		t.Fatalf("second Toggle = %v, %v, %v", started, m, err)
	}
	if m == nil || m.Title != "Revue" {
		t.Errorf("meeting = %+v", m)
	}
}

func TestSession_PeriodicAutosave(t *testing.T) {
	env := apptest.New(t, "sauvegarde", app.WithAutosaveInterval(10*time.Millisecond))
	if err := env.Session.Start(app.SessionOptions{}); err != nil {
		t.Fatal(err)
	}
	env.Speak(t, 1)

	path := filepath.Join(env.Paths.Autosave, "live_autosave.txt")
	apptest.WaitFor(t, "autosave", func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "sauvegarde"
	})
}

func TestSession_DeviceOverride(t *testing.T) {
	env := apptest.New(t, "x")
	err := env.Session.Start(app.SessionOptions{MicDevice: "no such mic"})
	if err == nil {
		t.Fatal("expected error when no source opens")
	}
	if env.Session.Running() {
		t.Error("failed start must leave the session idle")
	}
}

func TestSession_ModelLoadFailureEndsCapture(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	engine := &mock.Engine{Text: "reprise"}
	loader := live.EngineLoaderFunc(func(context.Context, string) (stt.Engine, error) {
		if fail.Load() {
			return nil, errors.New("model file missing")
		}
		return engine, nil
	})
	env := apptest.NewWithLoader(t, loader)
	s := env.Session

	if err := s.Start(app.SessionOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	apptest.WaitFor(t, "capture to end", func() bool { return !s.Running() })
	if !strings.Contains(s.State().LastError, "model file missing") {
		t.Errorf("LastError = %q", s.State().LastError)
	}

	fail.Store(false)
	if err := s.Start(app.SessionOptions{Title: "Reprise"}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !s.Running() {
		t.Fatal("restart did not run the pipeline")
	}
	env.Speak(t, 1)
	apptest.WaitFor(t, "a segment", func() bool { return s.State().AppendedSegments >= 1 })

	m, err := s.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m == nil || m.Title != "Reprise" {
		t.Errorf("meeting = %+v, want the restarted capture", m)
	}
}

func TestSession_PresetRemembersLastCapture(t *testing.T) {
	env := apptest.New(t, "x")
	s := env.Session
	ctx := context.Background()

	if _, ok, err := s.Preset(ctx); err != nil || ok {
		t.Fatalf("Preset before any capture = %v, %v", ok, err)
	}

	if err := s.Start(app.SessionOptions{SystemDevice: apptest.System, Model: "base"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	p, ok, err := s.Preset(ctx)
	if err != nil || !ok {
		t.Fatalf("Preset = %v, %v", ok, err)
	}
	want := app.Preset{MicDevice: apptest.Mic, SystemDevice: apptest.System, Model: "base"}
	if p != want {
		t.Errorf("preset = %+v, want %+v", p, want)
	}

	// a preset with the microphone disabled is honoured on the next start
	if err := s.SavePreset(ctx, app.Preset{SystemDevice: apptest.System, Model: "base"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(app.SessionOptions{UsePreset: true}); err != nil {
		t.Fatal(err)
	}
	if env.Backend.FeedTone(apptest.Mic, 0.1, 0.5, 100) {
		t.Error("microphone opened although the preset disables it")
	}
	if !env.Backend.FeedTone(apptest.System, 0.1, 0.5, 100) {
		t.Error("loopback not opened from the preset")
	}
}
