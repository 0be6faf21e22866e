package app

import (
	"context"
	"encoding/json"
	"fmt"
)

const presetKey = "capture_preset"

// Preset is the capture setup remembered between runs. An empty device
// disables that source.
type Preset struct {
	MicDevice    string `json:"mic_device"`
	SystemDevice string `json:"system_device"`
	Model        string `json:"model"`
}

// Preset returns the stored preset. ok is false when none was saved yet.
func (s *Session) Preset(ctx context.Context) (p Preset, ok bool, err error) {
	raw, err := s.store.Setting(ctx, presetKey)
	if err != nil {
		return Preset{}, false, fmt.Errorf("read preset: %w", err)
	}
	if raw == "" {
		return Preset{}, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Preset{}, false, fmt.Errorf("decode preset: %w", err)
	}
	return p, true, nil
}

// SavePreset stores p. Every successful Start saves the setup it used.
func (s *Session) SavePreset(ctx context.Context, p Preset) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.store.SetSetting(ctx, presetKey, string(data)); err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	return nil
}
