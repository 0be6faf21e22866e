// Package live runs the dual-source capture pipeline: it drains the
// microphone and system loopback streams, mixes them to one mono signal,
// cuts it into fixed windows and transcribes each window in order on a
// single background goroutine.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/observe"
	"github.com/emmett/minutes/internal/stt"
)

// EngineLoader resolves a model size to a ready engine.
type EngineLoader interface {
	LoadEngine(ctx context.Context, modelSize string) (stt.Engine, error)
}

// EngineLoaderFunc adapts a function to EngineLoader.
type EngineLoaderFunc func(ctx context.Context, modelSize string) (stt.Engine, error)

// LoadEngine calls f.
func (f EngineLoaderFunc) LoadEngine(ctx context.Context, modelSize string) (stt.Engine, error) {
	return f(ctx, modelSize)
}

// StaticEngine returns a loader that always yields e.
func StaticEngine(e stt.Engine) EngineLoader {
	return EngineLoaderFunc(func(context.Context, string) (stt.Engine, error) { return e, nil })
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records pipeline metrics on m instead of the defaults.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger used by the run loop.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// source is one opened device stream.
type source struct {
	name    string
	stream  *audio.StreamHandle
	dropped uint64
}

// Pipeline coordinates start and stop of a capture session.
type Pipeline struct {
	backend audio.Backend
	loader  EngineLoader
	metrics *observe.Metrics
	log     *slog.Logger

	phase atomic.Int32

	// lifecycle serialises Start against Stop.
	lifecycle sync.Mutex

	mu          sync.Mutex
	state       TranscriptState
	cancel      context.CancelFunc
	done        chan struct{}
	stopTimeout time.Duration
	observers   map[int]Observer
	nextID      int

	engineMu  sync.Mutex
	engine    stt.Engine
	engineKey string
}

// New returns an idle pipeline capturing from backend.
func New(backend audio.Backend, loader EngineLoader, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend:   backend,
		loader:    loader,
		log:       slog.Default(),
		observers: make(map[int]Observer),
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// Subscribe registers o and returns a function that removes it.
func (p *Pipeline) Subscribe(o Observer) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.observers[id] = o
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.observers, id)
	}
}

// State returns a snapshot of the current session.
func (p *Pipeline) State() TranscriptState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Phase returns the lifecycle phase.
func (p *Pipeline) Phase() Phase {
	return Phase(p.phase.Load())
}

// Start validates cfg, opens the sink and the enabled sources, and launches
// the run loop. It returns nil without doing anything if a session is
// already running, and ErrBusy while the previous one is still winding
// down. Only configuration, sink and total source failures are returned;
// later problems are reported through LastError.
func (p *Pipeline) Start(cfg Config) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	switch p.Phase() {
	case Running:
		return nil
	case Starting, Stopping:
		return ErrBusy
	}
	p.phase.Store(int32(Starting))

	cfg = cfg.withTunables()
	if err := cfg.Validate(); err != nil {
		p.phase.Store(int32(Idle))
		return err
	}

	p.update(func(s *TranscriptState) {
		*s = TranscriptState{WAVPath: cfg.WAVPath}
	})

	var sink *audio.WAVSink
	if cfg.WAVPath != "" {
		var err error
		sink, err = audio.CreateWAV(cfg.WAVPath, cfg.SampleRate)
		if err != nil {
			serr := &SinkError{Path: cfg.WAVPath, Err: err}
			p.update(func(s *TranscriptState) { s.LastError = serr.Error() })
			p.notify()
			p.phase.Store(int32(Idle))
			return serr
		}
	}

	sources, lastErr := p.openSources(cfg)
	if len(sources) == 0 {
		if sink != nil {
			_ = sink.Close()
			_ = os.Remove(cfg.WAVPath)
		}
		err := ErrNoSource
		if lastErr != nil {
			err = fmt.Errorf("%w: %w", ErrNoSource, lastErr)
		}
		p.update(func(s *TranscriptState) { s.LastError = err.Error() })
		p.notify()
		p.phase.Store(int32(Idle))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.stopTimeout = cfg.StopTimeout
	p.state.IsRunning = true
	if lastErr != nil {
		p.state.LastError = lastErr.Error()
	}
	p.mu.Unlock()

	p.metrics.ActiveSessions.Add(ctx, 1)
	p.phase.Store(int32(Running))
	p.notify()

	p.log.Info("capture started",
		"sources", len(sources),
		"rate", cfg.SampleRate,
		"chunk_seconds", cfg.ChunkSeconds,
		"model", cfg.ModelSize,
		"wav", cfg.WAVPath,
	)

	go p.run(ctx, cfg, sources, sink, done)
	return nil
}

// openSources opens every enabled device. Unavailable devices are skipped
// and the last failure is returned alongside the sources that did open.
func (p *Pipeline) openSources(cfg Config) ([]*source, error) {
	wanted := []struct {
		name     string
		device   string
		loopback bool
	}{
		{"mic", cfg.MicDevice, false},
		{"system", cfg.SystemDevice, true},
	}

	var (
		sources []*source
		lastErr error
	)
	for _, w := range wanted {
		if w.device == "" {
			continue
		}
		h, err := audio.OpenStream(p.backend, w.device, w.loopback)
		if err != nil {
			p.log.Warn("audio source unavailable", "source", w.name, "device", w.device, "err", err)
			p.metrics.RecordUnavailable(context.Background(), w.name)
			lastErr = fmt.Errorf("%s source: %w", w.name, err)
			continue
		}
		sources = append(sources, &source{name: w.name, stream: h})
	}
	return sources, lastErr
}

// Stop cancels the run loop and waits for it to exit. A Start in progress
// is allowed to finish first, then stopped. It is safe to call when idle
// and to call repeatedly.
func (p *Pipeline) Stop() error {
	p.lifecycle.Lock()
	p.mu.Lock()
	cancel, done, timeout := p.cancel, p.done, p.stopTimeout
	p.mu.Unlock()
	if done == nil {
		p.lifecycle.Unlock()
		return nil
	}
	p.phase.CompareAndSwap(int32(Running), int32(Stopping))
	cancel()
	p.lifecycle.Unlock()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}

// Close stops any session and releases the cached engine.
func (p *Pipeline) Close() error {
	err := p.Stop()

	p.engineMu.Lock()
	defer p.engineMu.Unlock()
	if p.engine != nil {
		err = errors.Join(err, p.engine.Close())
		p.engine = nil
		p.engineKey = ""
	}
	return err
}

func (p *Pipeline) loadEngine(ctx context.Context, modelSize string) (stt.Engine, error) {
	p.engineMu.Lock()
	defer p.engineMu.Unlock()
	if p.engine != nil && p.engineKey == modelSize {
		return p.engine, nil
	}
	e, err := p.loader.LoadEngine(ctx, modelSize)
	if err != nil {
		return nil, err
	}
	if p.engine != nil {
		_ = p.engine.Close()
	}
	p.engine, p.engineKey = e, modelSize
	return e, nil
}

func (p *Pipeline) run(ctx context.Context, cfg Config, sources []*source, sink *audio.WAVSink, done chan struct{}) {
	defer func() {
		for _, s := range sources {
			_ = s.stream.Close()
		}
		if sink != nil {
			if err := sink.Close(); err != nil {
				p.log.Error("close wav sink", "path", sink.Path(), "err", err)
				p.update(func(s *TranscriptState) { s.LastError = fmt.Sprintf("close wav: %v", err) })
			}
		}
		p.update(func(s *TranscriptState) { s.IsRunning = false })
		p.metrics.ActiveSessions.Add(context.Background(), -1)
		p.notify()

		if !p.phase.CompareAndSwap(int32(Stopping), int32(Idle)) {
			p.phase.CompareAndSwap(int32(Running), int32(Idle))
		}
		close(done)
		p.log.Info("capture stopped")
	}()

	engine, err := p.loadEngine(ctx, cfg.ModelSize)
	if err != nil {
		p.log.Error("load transcription engine", "model", cfg.ModelSize, "err", err)
		p.update(func(s *TranscriptState) { s.LastError = fmt.Sprintf("load model %s: %v", cfg.ModelSize, err) })
		return
	}

	inv := &invoker{
		engine:   engine,
		rate:     cfg.SampleRate,
		language: cfg.Language,
		vad:      cfg.VADFilter,
		metrics:  p.metrics,
	}
	mixer := NewMixer(cfg.SampleRate, cfg.MicWeight, cfg.SystemWeight)
	chunker := NewChunker(cfg.ChunkSamples())

	// In-flight transcription is never interrupted by Stop.
	callCtx := context.WithoutCancel(ctx)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var mic, sys []audio.Frame
		for _, s := range sources {
			frames := s.stream.Queue.PopN(cfg.MaxFramesPerPoll)
			if d := s.stream.Queue.Dropped(); d > s.dropped {
				p.metrics.RecordDropped(ctx, s.name, int64(d-s.dropped))
				s.dropped = d
			}
			if s.name == "mic" {
				mic = frames
			} else {
				sys = frames
			}
		}

		mixed := mixer.Mix(mic, sys)
		if len(mixed) == 0 {
			continue
		}
		if sink != nil {
			if err := sink.Write(mixed); err != nil {
				p.log.Warn("write wav", "err", err)
				p.update(func(s *TranscriptState) { s.LastError = fmt.Sprintf("write wav: %v", err) })
			}
		}
		chunker.Append(mixed)

		for {
			if ctx.Err() != nil {
				return
			}
			chunk, ok := chunker.Next()
			if !ok {
				break
			}
			p.transcribe(callCtx, inv, chunk)
		}
	}
}

func (p *Pipeline) transcribe(ctx context.Context, inv *invoker, chunk []float32) {
	text, err := inv.transcribe(ctx, chunk)
	if err != nil {
		p.log.Warn("transcription failed", "err", err)
		p.update(func(s *TranscriptState) { s.LastError = fmt.Sprintf("transcription error: %v", err) })
		p.notify()
		return
	}
	if text == "" {
		return
	}
	p.update(func(s *TranscriptState) { s.appendText(text) })
	p.notify()
}

func (p *Pipeline) update(fn func(*TranscriptState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
}

// notify delivers the current snapshot to every observer outside the lock.
func (p *Pipeline) notify() {
	p.mu.Lock()
	snap := p.state
	obs := make([]Observer, 0, len(p.observers))
	for _, o := range p.observers {
		obs = append(obs, o)
	}
	p.mu.Unlock()

	for _, o := range obs {
		o.OnUpdate(snap)
	}
}
