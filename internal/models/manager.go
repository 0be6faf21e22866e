package models

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnknownModel is returned for names missing from the catalog.
var ErrUnknownModel = errors.New("unknown model")

// Engine kinds a model can be loaded by.
const (
	EngineWhisper = "whisper"
	EngineVosk    = "vosk"
)

// Model is one downloadable speech-to-text model
type Model struct {
	Name        string
	Engine      string
	Language    string
	Size        string
	SizeMB      int
	URL         string
	Description string
}

// fileName is the on-disk name: a ggml file for whisper, a directory for vosk
func (m Model) fileName() string {
	if m.Engine == EngineWhisper {
		return "ggml-" + m.Name + ".bin"
	}
	return m.Name
}

const whisperBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// AvailableModels is the built-in catalog. Whisper models are multilingual.
var AvailableModels = []Model{
	{
		Name:        "tiny",
		Engine:      EngineWhisper,
		Language:    "multi",
		Size:        "75M",
		SizeMB:      75,
		URL:         whisperBaseURL + "ggml-tiny.bin",
		Description: "Fastest whisper model, rough accuracy",
	},
	{
		Name:        "base",
		Engine:      EngineWhisper,
		Language:    "multi",
		Size:        "142M",
		SizeMB:      142,
		URL:         whisperBaseURL + "ggml-base.bin",
		Description: "Small whisper model, fine for clear speech",
	},
	{
		Name:        "small",
		Engine:      EngineWhisper,
		Language:    "multi",
		Size:        "480M",
		SizeMB:      480,
		URL:         whisperBaseURL + "ggml-small.bin",
		Description: "Balanced whisper model for meetings",
	},
	{
		Name:        "medium",
		Engine:      EngineWhisper,
		Language:    "multi",
		Size:        "1.5G",
		SizeMB:      1500,
		URL:         whisperBaseURL + "ggml-medium.bin",
		Description: "Accurate whisper model, needs a fast CPU",
	},
	{
		Name:        "vosk-model-small-fr-0.22",
		Engine:      EngineVosk,
		Language:    "fr-FR",
		Size:        "41M",
		SizeMB:      41,
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-fr-0.22.zip",
		Description: "Lightweight French vosk model",
	},
	{
		Name:        "vosk-model-small-en-us-0.15",
		Engine:      EngineVosk,
		Language:    "en-US",
		Size:        "40M",
		SizeMB:      40,
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Description: "Lightweight English vosk model",
	},
}

// DefaultModelName is used until SetDefault is called
const DefaultModelName = "small"

const defaultFile = ".default_model"

// Manager stores models under Dir
type Manager struct {
	Dir     string
	Catalog []Model
	Client  *http.Client
}

// NewManager returns a manager over the built-in catalog.
func NewManager(dir string) *Manager {
	return &Manager{Dir: dir, Catalog: AvailableModels, Client: http.DefaultClient}
}

// Find looks a model up by name
func (m *Manager) Find(name string) (Model, error) {
	for _, model := range m.Catalog {
		if model.Name == name {
			return model, nil
		}
	}
	return Model{}, fmt.Errorf("%w: %s", ErrUnknownModel, name)
}

// Path returns where name lives once downloaded.
func (m *Manager) Path(name string) (string, error) {
	model, err := m.Find(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.Dir, model.fileName()), nil
}

// IsDownloaded checks if a model is already on disk
func (m *Manager) IsDownloaded(name string) (bool, error) {
	model, err := m.Find(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(filepath.Join(m.Dir, model.fileName()))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if model.Engine == EngineVosk {
		return info.IsDir(), nil
	}
	return info.Mode().IsRegular(), nil
}

// SizeOnDisk returns the bytes used by a downloaded model.
func (m *Manager) SizeOnDisk(name string) (int64, error) {
	path, err := m.Path(name)
	if err != nil {
		return 0, err
	}
	var total int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// Status pairs a catalog entry with its local state
type Status struct {
	Model
	Downloaded bool
	Default    bool
}

// List returns every catalog entry with its download state.
func (m *Manager) List() []Status {
	def, _ := m.Default()
	out := make([]Status, 0, len(m.Catalog))
	for _, model := range m.Catalog {
		ok, _ := m.IsDownloaded(model.Name)
		out = append(out, Status{Model: model, Downloaded: ok, Default: model.Name == def})
	}
	return out
}

// ListDownloaded lists the names of downloaded catalog models
func (m *Manager) ListDownloaded() ([]string, error) {
	var names []string
	for _, model := range m.Catalog {
		ok, err := m.IsDownloaded(model.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			names = append(names, model.Name)
		}
	}
	return names, nil
}

// Default returns the configured default model name
// If no custom default is set, returns DefaultModelName
func (m *Manager) Default() (string, error) {
	data, err := os.ReadFile(filepath.Join(m.Dir, defaultFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultModelName, nil
		}
		return DefaultModelName, err
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return DefaultModelName, nil
	}
	return name, nil
}

// SetDefault records name as the default model
func (m *Manager) SetDefault(name string) error {
	if _, err := m.Find(name); err != nil {
		return err
	}
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.Dir, defaultFile), []byte(name), 0o644); err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}
	return nil
}

// Download fetches a model into Dir. The payload goes to a temp file first so
// an interrupted download never looks like a complete model.
func (m *Manager) Download(ctx context.Context, name string, progress func(downloaded, total int64)) error {
	model, err := m.Find(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	tmp, err := os.CreateTemp(m.Dir, "."+model.Name+"-*.part")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := m.fetch(ctx, model.URL, tmp, progress); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if model.Engine == EngineVosk {
		if err := extractZip(tmp.Name(), m.Dir); err != nil {
			return fmt.Errorf("failed to extract model: %w", err)
		}
		return nil
	}
	return os.Rename(tmp.Name(), filepath.Join(m.Dir, model.fileName()))
}

func (m *Manager) fetch(ctx context.Context, url string, out io.Writer, progress func(downloaded, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write file: %w", werr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("download error: %w", err)
		}
	}
}

// extractZip extracts a zip file to the specified directory
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		// ZipSlip
		if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, path string) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(out, rc)
	return err
}
