package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/emmett/minutes/internal/live"
	"github.com/emmett/minutes/internal/observe"
)

// Config represents the application configuration
type Config struct {
	// Capture settings
	Capture struct {
		SampleRate   int           `yaml:"sample_rate"`
		ChunkSeconds float64       `yaml:"chunk_seconds"`
		MicDevice    string        `yaml:"mic_device"`
		SystemDevice string        `yaml:"system_device"`
		RecordWAV    bool          `yaml:"record_wav"`
		PollInterval time.Duration `yaml:"poll_interval"`
		MicWeight    float64       `yaml:"mic_weight"`
		SystemWeight float64       `yaml:"system_weight"`
		StopTimeout  time.Duration `yaml:"stop_timeout"`
	} `yaml:"capture"`

	// Transcription settings
	Transcription struct {
		Engine       string `yaml:"engine"`
		Model        string `yaml:"model"`
		Language     string `yaml:"language"`
		VAD          bool   `yaml:"vad"`
		Threads      int    `yaml:"threads"`
		AutoDownload bool   `yaml:"auto_download"`
	} `yaml:"transcription"`

	// Storage settings
	Storage struct {
		Backend string `yaml:"backend"`
		DSN     string `yaml:"dsn"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"storage"`

	// Server settings
	Server struct {
		GRPCPort int    `yaml:"grpc_port"`
		HTTPAddr string `yaml:"http_addr"`
	} `yaml:"server"`

	// Output settings
	Output struct {
		Format string `yaml:"format"`
	} `yaml:"output"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	// Hotkey toggles capture, e.g. "ctrl+shift+r"
	Hotkey struct {
		Enabled bool   `yaml:"enabled"`
		Keys    string `yaml:"keys"`
	} `yaml:"hotkey"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	lc := live.DefaultConfig()

	// Capture defaults
	cfg.Capture.SampleRate = lc.SampleRate
	cfg.Capture.ChunkSeconds = lc.ChunkSeconds
	cfg.Capture.MicDevice = "default"
	cfg.Capture.SystemDevice = ""
	cfg.Capture.RecordWAV = true
	cfg.Capture.PollInterval = lc.PollInterval
	cfg.Capture.MicWeight = lc.MicWeight
	cfg.Capture.SystemWeight = lc.SystemWeight
	cfg.Capture.StopTimeout = lc.StopTimeout

	// Transcription defaults
	cfg.Transcription.Engine = "whisper"
	cfg.Transcription.Model = lc.ModelSize
	cfg.Transcription.Language = lc.Language
	cfg.Transcription.VAD = true
	cfg.Transcription.AutoDownload = false

	// Storage defaults
	cfg.Storage.Backend = "badger"
	cfg.Storage.DataDir = defaultDataDir()

	// Server defaults
	cfg.Server.GRPCPort = 50051
	cfg.Server.HTTPAddr = "localhost:8080"

	cfg.Output.Format = "console"
	cfg.Log.Level = "info"
	cfg.Hotkey.Keys = "ctrl+shift+r"

	return cfg
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".minutes")
}

// Load loads configuration from file. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// SystemPath is the machine-wide config location.
var SystemPath = "/etc/minutes/config.yaml"

// LoadWithFallback attempts to load configuration from multiple locations
// Priority: explicit path > ~/.minutesrc > /etc/minutes/config.yaml
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ".minutesrc")
		if _, err := os.Stat(userPath); err == nil {
			return Load(userPath)
		}
	}

	if _, err := os.Stat(SystemPath); err == nil {
		return Load(SystemPath)
	}

	// No config file found, return defaults
	return DefaultConfig(), nil
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from MINUTES_* environment variables.
func (c *Config) ApplyEnv() error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	integer("MINUTES_SAMPLE_RATE", &c.Capture.SampleRate)
	float("MINUTES_CHUNK_SECONDS", &c.Capture.ChunkSeconds)
	str("MINUTES_MIC_DEVICE", &c.Capture.MicDevice)
	str("MINUTES_SYSTEM_DEVICE", &c.Capture.SystemDevice)
	boolean("MINUTES_RECORD_WAV", &c.Capture.RecordWAV)
	str("MINUTES_ENGINE", &c.Transcription.Engine)
	str("MINUTES_MODEL", &c.Transcription.Model)
	str("MINUTES_LANGUAGE", &c.Transcription.Language)
	boolean("MINUTES_AUTO_DOWNLOAD", &c.Transcription.AutoDownload)
	str("MINUTES_STORAGE_BACKEND", &c.Storage.Backend)
	str("MINUTES_DATABASE_DSN", &c.Storage.DSN)
	str("MINUTES_DATA_DIR", &c.Storage.DataDir)
	integer("MINUTES_GRPC_PORT", &c.Server.GRPCPort)
	str("MINUTES_HTTP_ADDR", &c.Server.HTTPAddr)
	str("MINUTES_LOG_LEVEL", &c.Log.Level)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Capture.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate must be positive, got %d", c.Capture.SampleRate))
	}
	if c.Capture.ChunkSeconds <= 0 {
		errs = append(errs, fmt.Errorf("capture.chunk_seconds must be positive, got %g", c.Capture.ChunkSeconds))
	}
	if c.Capture.MicWeight < 0 || c.Capture.SystemWeight < 0 {
		errs = append(errs, errors.New("capture mix weights must not be negative"))
	}
	switch c.Transcription.Engine {
	case "whisper", "vosk":
	default:
		errs = append(errs, fmt.Errorf("transcription.engine must be whisper or vosk, got %q", c.Transcription.Engine))
	}
	if c.Transcription.Model == "" {
		errs = append(errs, errors.New("transcription.model is required"))
	}
	switch c.Storage.Backend {
	case "badger":
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be badger or postgres, got %q", c.Storage.Backend))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("server.grpc_port out of range: %d", c.Server.GRPCPort))
	}
	switch c.Output.Format {
	case "console", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("output.format must be console, json or text, got %q", c.Output.Format))
	}
	if _, err := observe.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// Live returns the pipeline settings. The WAV path is chosen per session.
func (c *Config) Live() live.Config {
	lc := live.DefaultConfig()
	lc.SampleRate = c.Capture.SampleRate
	lc.ChunkSeconds = c.Capture.ChunkSeconds
	lc.Language = c.Transcription.Language
	lc.ModelSize = c.Transcription.Model
	lc.MicDevice = c.Capture.MicDevice
	lc.SystemDevice = c.Capture.SystemDevice
	lc.PollInterval = c.Capture.PollInterval
	lc.MicWeight = c.Capture.MicWeight
	lc.SystemWeight = c.Capture.SystemWeight
	lc.VADFilter = c.Transcription.VAD
	lc.StopTimeout = c.Capture.StopTimeout
	return lc
}

// Paths returns the directory layout under storage.data_dir.
func (c *Config) Paths() Paths {
	return NewPaths(c.Storage.DataDir)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
