package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the on-disk layout of application data.
type Paths struct {
	Data        string
	Models      string
	Recordings  string
	Transcripts string
	Exports     string
	Autosave    string
	Logs        string
}

// NewPaths derives every directory from dataDir.
func NewPaths(dataDir string) Paths {
	return Paths{
		Data:        dataDir,
		Models:      filepath.Join(dataDir, "models"),
		Recordings:  filepath.Join(dataDir, "recordings"),
		Transcripts: filepath.Join(dataDir, "transcripts"),
		Exports:     filepath.Join(dataDir, "exports"),
		Autosave:    filepath.Join(dataDir, "autosave"),
		Logs:        filepath.Join(dataDir, "logs"),
	}
}

// Ensure creates every directory.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Data, p.Models, p.Recordings, p.Transcripts, p.Exports, p.Autosave, p.Logs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
