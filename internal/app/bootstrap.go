package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/config"
	"github.com/emmett/minutes/internal/live"
	"github.com/emmett/minutes/internal/meeting"
	"github.com/emmett/minutes/internal/models"
	"github.com/emmett/minutes/internal/observe"
)

// Runtime is everything a front-end needs, built from one Config.
type Runtime struct {
	Config  *config.Config
	Paths   config.Paths
	Backend audio.Backend
	Models  *models.Manager
	Loader  *models.Loader
	Session *Session
}

// Build prepares directories, opens the meeting store and assembles the
// pipeline and session around backend. progress may be nil.
func Build(ctx context.Context, cfg *config.Config, backend audio.Backend, progress func(downloaded, total int64), opts ...SessionOption) (*Runtime, error) {
	paths := cfg.Paths()
	if err := paths.Ensure(); err != nil {
		return nil, err
	}

	store, err := meeting.Open(ctx, cfg.Storage.Backend, cfg.Storage.DSN, paths.Data)
	if err != nil {
		return nil, fmt.Errorf("open meeting store: %w", err)
	}

	mgr := models.NewManager(paths.Models)
	if m, err := mgr.Find(cfg.Transcription.Model); err == nil && m.Engine != cfg.Transcription.Engine {
		slog.Warn("model engine differs from configured engine",
			"model", m.Name, "model_engine", m.Engine, "engine", cfg.Transcription.Engine)
	}
	loader := &models.Loader{
		Manager:      mgr,
		AutoDownload: cfg.Transcription.AutoDownload,
		Threads:      cfg.Transcription.Threads,
		Progress:     progress,
	}

	p := live.New(backend, loader,
		live.WithMetrics(observe.DefaultMetrics()),
		live.WithLogger(slog.Default().With("component", "live")),
	)
	session := NewSession(p, store, paths, cfg.Live(), opts...)

	return &Runtime{
		Config:  cfg,
		Paths:   paths,
		Backend: backend,
		Models:  mgr,
		Loader:  loader,
		Session: session,
	}, nil
}

// Close stops any capture and releases the store and pipeline.
func (r *Runtime) Close(ctx context.Context) error {
	err := r.Session.Close(ctx)
	if c, ok := r.Backend.(interface{ Close() error }); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}
