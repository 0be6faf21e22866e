package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/emmett/minutes/internal/actions"
	"github.com/emmett/minutes/internal/config"
	"github.com/emmett/minutes/internal/live"
	"github.com/emmett/minutes/internal/meeting"
)

const (
	// DefaultAutosaveInterval is how often the running transcript is
	// written to the autosave file.
	DefaultAutosaveInterval = 30 * time.Second

	autosaveFile   = "live_autosave.txt"
	summaryLength  = 280
	stampLayout    = "20060102_150405"
	titleWordCount = 6
)

// SessionOptions describe the meeting being captured.
type SessionOptions struct {
	Title        string   `json:"title,omitempty"`
	Theme        string   `json:"theme,omitempty"`
	Project      string   `json:"project,omitempty"`
	Participants []string `json:"participants,omitempty"`

	// Record writes the mixed audio to a WAV file. WAVPath overrides the
	// default recordings location.
	Record  bool   `json:"record,omitempty"`
	WAVPath string `json:"wav_path,omitempty"`

	// MicDevice and SystemDevice override the configured devices when set.
	MicDevice    string `json:"mic_device,omitempty"`
	SystemDevice string `json:"system_device,omitempty"`

	// Model and Language override the configured transcription settings.
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`

	// UsePreset starts from the devices and model of the last capture
	// instead of the configured ones. Fields set above still win.
	UsePreset bool `json:"use_preset,omitempty"`
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithAutosaveInterval sets how often the transcript is autosaved.
func WithAutosaveInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.autosaveEvery = d }
}

// WithSessionLogger sets the logger used for background work.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

type activeSession struct {
	opts    SessionOptions
	started time.Time
	stop    context.CancelFunc
	done    chan struct{}
}

// Session runs one capture at a time and files the result as a meeting.
type Session struct {
	pipeline      *live.Pipeline
	store         meeting.Store
	paths         config.Paths
	base          live.Config
	autosaveEvery time.Duration
	now           func() time.Time
	log           *slog.Logger

	mu     sync.Mutex
	active *activeSession
}

// NewSession wires a pipeline to a store. base supplies every capture
// setting except the WAV path.
func NewSession(p *live.Pipeline, store meeting.Store, paths config.Paths, base live.Config, opts ...SessionOption) *Session {
	s := &Session{
		pipeline:      p,
		store:         store,
		paths:         paths,
		base:          base,
		autosaveEvery: DefaultAutosaveInterval,
		now:           time.Now,
		log:           slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Pipeline exposes the underlying pipeline for subscriptions.
func (s *Session) Pipeline() *live.Pipeline { return s.pipeline }

// Store exposes the meeting store.
func (s *Session) Store() meeting.Store { return s.store }

// State returns the current transcript snapshot.
func (s *Session) State() live.TranscriptState { return s.pipeline.State() }

// Running reports whether a capture is in progress. It follows the
// pipeline, so a capture that ended on its own (a model that failed to
// load, every device lost) reads as not running.
func (s *Session) Running() bool {
	return s.pipeline.Phase() != live.Idle
}

// Start begins a capture. It is a no-op while one is already running. A
// previous capture that ended on its own is filed first.
func (s *Session) Start(opts SessionOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		if s.pipeline.Phase() != live.Idle {
			return nil
		}
		stale := s.active
		s.active = nil
		if _, err := s.finish(context.Background(), stale, nil); err != nil {
			s.log.Error("filing ended capture failed", "err", err)
		}
	}

	started := s.now()
	cfg := s.base
	if opts.UsePreset {
		p, ok, err := s.Preset(context.Background())
		if err != nil {
			return err
		}
		if ok {
			cfg.MicDevice, cfg.SystemDevice, cfg.ModelSize = p.MicDevice, p.SystemDevice, p.Model
		}
	}
	if opts.MicDevice != "" {
		cfg.MicDevice = opts.MicDevice
	}
	if opts.SystemDevice != "" {
		cfg.SystemDevice = opts.SystemDevice
	}
	if opts.Model != "" {
		cfg.ModelSize = opts.Model
	}
	if opts.Language != "" {
		cfg.Language = opts.Language
	}
	cfg.WAVPath = ""
	if opts.Record {
		cfg.WAVPath = opts.WAVPath
		if cfg.WAVPath == "" {
			cfg.WAVPath = filepath.Join(s.paths.Recordings, "live_"+started.Format(stampLayout)+".wav")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.WAVPath), 0o755); err != nil {
			return fmt.Errorf("create recordings directory: %w", err)
		}
	}

	if err := s.pipeline.Start(cfg); err != nil {
		return err
	}
	preset := Preset{MicDevice: cfg.MicDevice, SystemDevice: cfg.SystemDevice, Model: cfg.ModelSize}
	if err := s.SavePreset(context.Background(), preset); err != nil {
		s.log.Warn("remember capture preset", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &activeSession{opts: opts, started: started, stop: cancel, done: make(chan struct{})}
	s.active = a
	go s.autosaveLoop(ctx, a.done)
	return nil
}

func (s *Session) autosaveLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	if s.autosaveEvery <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.autosaveEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Autosave(); err != nil {
				s.log.Error("autosave failed", "err", err)
			}
		}
	}
}

// Autosave writes the current transcript to the autosave file.
func (s *Session) Autosave() error {
	if err := os.MkdirAll(s.paths.Autosave, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.paths.Autosave, autosaveFile)
	return os.WriteFile(path, []byte(s.pipeline.State().Transcript), 0o644)
}

// Stop ends the capture, writes the transcript file and records the
// meeting with its extracted actions. It returns nil when nothing was
// running or nothing was transcribed.
func (s *Session) Stop(ctx context.Context) (*meeting.Meeting, error) {
	s.mu.Lock()
	a := s.active
	s.active = nil
	s.mu.Unlock()
	if a == nil {
		return nil, s.pipeline.Stop()
	}

	return s.finish(ctx, a, s.pipeline.Stop())
}

// finish ends the autosave loop of a and files its transcript. stopErr is
// the result of stopping the pipeline and is joined into the return.
func (s *Session) finish(ctx context.Context, a *activeSession, stopErr error) (*meeting.Meeting, error) {
	a.stop()
	<-a.done

	state := s.pipeline.State()
	if err := s.Autosave(); err != nil {
		s.log.Error("autosave failed", "err", err)
	}
	if strings.TrimSpace(state.Transcript) == "" {
		return nil, stopErr
	}

	m, err := s.file(ctx, a, state)
	return m, errors.Join(stopErr, err)
}

func (s *Session) file(ctx context.Context, a *activeSession, state live.TranscriptState) (*meeting.Meeting, error) {
	title := a.opts.Title
	if title == "" {
		title = firstWords(state.Transcript, titleWordCount)
	}

	if err := os.MkdirAll(s.paths.Transcripts, 0o755); err != nil {
		return nil, fmt.Errorf("create transcripts directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s_%s.txt",
		a.started.Format(stampLayout), sanitize(a.opts.Theme, "NA"), sanitize(a.opts.Project, "NA"), sanitize(title, "CR"))
	path := filepath.Join(s.paths.Transcripts, name)
	if err := os.WriteFile(path, []byte(state.Transcript), 0o644); err != nil {
		return nil, fmt.Errorf("write transcript: %w", err)
	}

	m, err := s.store.CreateMeeting(ctx, meeting.Meeting{
		Title:          title,
		Theme:          a.opts.Theme,
		Project:        a.opts.Project,
		Date:           a.started,
		Participants:   a.opts.Participants,
		Source:         "live",
		TranscriptPath: path,
		Summary:        meeting.Summarize(state.Transcript, summaryLength),
	})
	if err != nil {
		return nil, fmt.Errorf("save meeting: %w", err)
	}

	todos := actions.Extract(state.Transcript, a.started, a.opts.Participants...)
	if len(todos) > 0 {
		if _, err := s.store.AddTodos(ctx, m.ID, todos); err != nil {
			return &m, fmt.Errorf("save actions: %w", err)
		}
	}

	s.log.Info("meeting saved", "id", m.ID, "title", m.Title, "todos", len(todos), "transcript", path)
	return &m, nil
}

// Close stops any capture and releases the pipeline and store.
func (s *Session) Close(ctx context.Context) error {
	_, err := s.Stop(ctx)
	return errors.Join(err, s.pipeline.Close(), s.store.Close())
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

func sanitize(s, fallback string) string {
	s = strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_"), "_")
	if s == "" {
		return fallback
	}
	return s
}

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
