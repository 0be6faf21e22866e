// Package apptest builds a Session backed by fake audio, a scripted engine
// and an on-disk badger store, for tests of the front-ends.
package apptest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/emmett/minutes/internal/app"
	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/audio/audiotest"
	"github.com/emmett/minutes/internal/config"
	"github.com/emmett/minutes/internal/live"
	"github.com/emmett/minutes/internal/meeting"
	"github.com/emmett/minutes/internal/stt/mock"
)

// Mic and System are the device IDs of the fake microphone and speakers.
const (
	Mic    = "fake-0"
	System = "fake-1"
)

// Env is a ready-to-use session with handles on its fakes.
type Env struct {
	Session *app.Session
	Backend *audiotest.Backend
	Engine  *mock.Engine
	Store   meeting.Store
	Paths   config.Paths
}

// Backend returns a fake with one 16 kHz mono microphone and one 48 kHz
// stereo loopback device.
func Backend() *audiotest.Backend {
	return &audiotest.Backend{
		Inputs:  []audio.DeviceInfo{audiotest.Device(0, "Built-in Microphone", 1, 0, 16000)},
		Outputs: []audio.DeviceInfo{audiotest.Device(1, "Speakers", 0, 2, 48000)},
	}
}

// LiveConfig is a fast pipeline configuration: one second chunks polled
// every 5 ms, microphone only.
func LiveConfig() live.Config {
	cfg := live.DefaultConfig()
	cfg.ChunkSeconds = 1
	cfg.PollInterval = 5 * time.Millisecond
	cfg.MicDevice = Mic
	cfg.SystemDevice = ""
	return cfg
}

// New returns an Env whose engine answers text. Everything is closed on
// test cleanup.
func New(t *testing.T, text string, opts ...app.SessionOption) *Env {
	t.Helper()
	engine := &mock.Engine{Text: text}
	env := NewWithLoader(t, live.StaticEngine(engine), opts...)
	env.Engine = engine
	return env
}

// NewWithLoader is New with a caller-supplied model loader. Env.Engine is
// nil.
func NewWithLoader(t *testing.T, loader live.EngineLoader, opts ...app.SessionOption) *Env {
	t.Helper()

	paths := config.NewPaths(t.TempDir())
	if err := paths.Ensure(); err != nil {
		t.Fatal(err)
	}
	store, err := meeting.OpenBadger(filepath.Join(paths.Data, "db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	backend := Backend()
	p := live.New(backend, loader)
	s := app.NewSession(p, store, paths, LiveConfig(), opts...)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	return &Env{Session: s, Backend: backend, Store: store, Paths: paths}
}

// Speak feeds seconds of tone into the microphone.
func (e *Env) Speak(t *testing.T, seconds float64) {
	t.Helper()
	if !e.Backend.FeedTone(Mic, seconds, 0.5, 100) {
		t.Fatal("microphone stream is not open")
	}
}

// WaitFor polls cond until it holds or five seconds pass.
func WaitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
