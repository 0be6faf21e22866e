package live_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/emmett/minutes/internal/live"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*live.Config)
		wantErr string
	}{
		{"mic only", func(c *live.Config) { c.MicDevice = "default" }, ""},
		{"system only", func(c *live.Config) { c.SystemDevice = "0" }, ""},
		{"no source", func(c *live.Config) {}, "no audio source"},
		{"zero rate", func(c *live.Config) { c.MicDevice = "0"; c.SampleRate = 0 }, "sample rate"},
		{"zero chunk", func(c *live.Config) { c.MicDevice = "0"; c.ChunkSeconds = 0 }, "chunk seconds"},
		{"negative weight", func(c *live.Config) { c.MicDevice = "0"; c.MicWeight = -1 }, "mix weights"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := live.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			var cerr *live.ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidate_JoinsAllProblems(t *testing.T) {
	cfg := live.DefaultConfig()
	cfg.SampleRate = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"no audio source", "sample rate"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := live.DefaultConfig()
	if cfg.SampleRate != 16000 || cfg.ChunkSeconds != 15 || cfg.Language != "fr" || cfg.ModelSize != "small" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ChunkSamples() != 240000 {
		t.Errorf("ChunkSamples() = %d", cfg.ChunkSamples())
	}
	if live.Running.String() != "running" {
		t.Errorf("Phase string = %q", live.Running)
	}
}
