package models

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emmett/minutes/internal/stt"
)

// Loader resolves a model name to a loaded engine. It satisfies
// live.EngineLoader.
type Loader struct {
	Manager      *Manager
	AutoDownload bool
	Threads      int

	// Progress receives download progress when AutoDownload triggers.
	Progress func(downloaded, total int64)

	// New builds the engine; nil uses stt.New.
	New func(stt.Config) (stt.Engine, error)
}

// LoadEngine returns an engine for name, downloading it first when allowed.
func (l *Loader) LoadEngine(ctx context.Context, name string) (stt.Engine, error) {
	model, err := l.Manager.Find(name)
	if err != nil {
		return nil, err
	}

	ok, err := l.Manager.IsDownloaded(name)
	if err != nil {
		return nil, fmt.Errorf("check model %s: %w", name, err)
	}
	if !ok {
		if !l.AutoDownload {
			return nil, fmt.Errorf("model %s is not downloaded (use --download-model %s)", name, name)
		}
		slog.Info("downloading model", "model", name, "size", model.Size)
		if err := l.Manager.Download(ctx, name, l.Progress); err != nil {
			return nil, fmt.Errorf("download model %s: %w", name, err)
		}
	}

	path, err := l.Manager.Path(name)
	if err != nil {
		return nil, err
	}
	build := l.New
	if build == nil {
		build = stt.New
	}
	return build(stt.Config{Backend: model.Engine, ModelPath: path, Threads: l.Threads})
}
