package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/emmett/minutes/internal/models"
)

// ModelManager is the console front-end of models.Manager.
type ModelManager struct {
	mgr *models.Manager
	out io.Writer
}

func NewModelManager(mgr *models.Manager, out io.Writer) *ModelManager {
	return &ModelManager{mgr: mgr, out: out}
}

func (m *ModelManager) ListModels() error {
	fmt.Fprintln(m.out, "Available models:")
	fmt.Fprintln(m.out)

	for i, st := range m.mgr.List() {
		marker := ""
		if st.Default {
			marker = " [DEFAULT]"
		}
		fmt.Fprintf(m.out, "%d. %s%s\n", i+1, st.Name, marker)
		fmt.Fprintf(m.out, "   Engine:   %s\n", st.Engine)
		fmt.Fprintf(m.out, "   Language: %s\n", st.Language)
		fmt.Fprintf(m.out, "   Size:     %s\n", st.Size)
		fmt.Fprintf(m.out, "   Info:     %s\n", st.Description)

		if st.Downloaded {
			if n, err := m.mgr.SizeOnDisk(st.Name); err == nil {
				fmt.Fprintf(m.out, "   Status:   ✓ Downloaded (%.1f MB on disk)\n", float64(n)/(1<<20))
			} else {
				fmt.Fprintf(m.out, "   Status:   ✓ Downloaded\n")
			}
		} else {
			fmt.Fprintf(m.out, "   Status:   Not downloaded\n")
		}
		fmt.Fprintln(m.out)
	}

	fmt.Fprintln(m.out, "To download a model, use:")
	fmt.Fprintln(m.out, "  minutes --download-model <model-name>")
	return nil
}

func (m *ModelManager) Download(ctx context.Context, name string) error {
	model, err := m.mgr.Find(name)
	if err != nil {
		fmt.Fprintf(m.out, "Error: Unknown model '%s'\n\n", name)
		fmt.Fprintln(m.out, "Use 'minutes --list-models' to see available models")
		return err
	}

	downloaded, err := m.mgr.IsDownloaded(name)
	if err != nil {
		return fmt.Errorf("error checking model: %w", err)
	}
	if downloaded {
		fmt.Fprintf(m.out, "Model '%s' is already downloaded.\n", name)
		path, _ := m.mgr.Path(name)
		fmt.Fprintf(m.out, "Location: %s\n", path)
		return nil
	}

	fmt.Fprintf(m.out, "Downloading model: %s (%s)\n", model.Name, model.Size)
	fmt.Fprintf(m.out, "Description: %s\n\n", model.Description)

	if err := m.mgr.Download(ctx, name, m.Progress); err != nil {
		return fmt.Errorf("error downloading model: %w", err)
	}

	fmt.Fprintln(m.out)
	fmt.Fprintf(m.out, "✓ Model '%s' downloaded successfully!\n", name)
	return nil
}

// Progress prints a carriage-return progress line.
func (m *ModelManager) Progress(downloaded, total int64) {
	if total <= 0 {
		fmt.Fprintf(m.out, "\rProgress: %d bytes", downloaded)
		return
	}
	percent := float64(downloaded) / float64(total) * 100
	fmt.Fprintf(m.out, "\rProgress: %.1f%% (%d/%d bytes)", percent, downloaded, total)
}

func (m *ModelManager) SetDefault(name string) error {
	model, err := m.mgr.Find(name)
	if err != nil {
		fmt.Fprintf(m.out, "Error: Unknown model '%s'\n\n", name)
		fmt.Fprintln(m.out, "Use 'minutes --list-models' to see available models")
		return err
	}
	if err := m.mgr.SetDefault(name); err != nil {
		return fmt.Errorf("error setting default model: %w", err)
	}

	fmt.Fprintf(m.out, "✓ Default model set to: %s\n", name)
	fmt.Fprintf(m.out, "  Description: %s\n", model.Description)
	fmt.Fprintf(m.out, "  Size: %s\n\n", model.Size)

	if ok, _ := m.mgr.IsDownloaded(name); !ok {
		fmt.Fprintln(m.out, "Note: This model is not yet downloaded.")
		fmt.Fprintf(m.out, "Run 'minutes --download-model %s' to download it.\n", name)
	}
	return nil
}

// SelectModel returns name, or the stored default when name is empty.
func (m *ModelManager) SelectModel(name string) (string, error) {
	if name != "" {
		if _, err := m.mgr.Find(name); err != nil {
			return "", err
		}
		return name, nil
	}
	def, err := m.mgr.Default()
	if err != nil && !errors.Is(err, models.ErrUnknownModel) {
		return def, fmt.Errorf("read default model: %w", err)
	}
	return def, nil
}
