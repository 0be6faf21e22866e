package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/emmett/minutes/internal/app"
	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/config"
	"github.com/emmett/minutes/internal/export"
	"github.com/emmett/minutes/internal/input"
	"github.com/emmett/minutes/internal/observe"
	"github.com/emmett/minutes/internal/output"
	"github.com/emmett/minutes/internal/stt"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile     = flag.String("config", "", "Path to configuration file (default: ~/.minutesrc or /etc/minutes/config.yaml)")
	listDevices    = flag.Bool("list-devices", false, "List microphones and loopback devices")
	listModels     = flag.Bool("list-models", false, "List all available models for download")
	listDownloaded = flag.Bool("list-downloaded", false, "List all downloaded models")
	downloadModel  = flag.String("download-model", "", "Download a specific model by name")
	setDefault     = flag.String("set-default", "", "Set a model as the default")
	transcribeFile = flag.String("transcribe-file", "", "Transcribe a WAV file and exit")
	exportDir      = flag.String("export", "", "Write meetings and actions to an Excel workbook in this directory and exit")
	exportTheme    = flag.String("export-theme", "", "Only export meetings with this theme")
	exportProject  = flag.String("export-project", "", "Only export meetings of this project")
	exportFormat   = flag.Bool("export-formatted", false, "Export one Label/Value sheet per meeting plus an index")
	modelName      = flag.String("model", "", "Model to use (default: configured or stored default)")
	language       = flag.String("language", "", "Language hint such as fr, en or auto")
	micDevice      = flag.String("mic", "", "Microphone name or index (\"none\" to disable)")
	systemDevice   = flag.String("system", "", "Output device to capture in loopback")
	chunkSeconds   = flag.Float64("chunk-seconds", 0, "Seconds of audio per transcription chunk")
	record         = flag.Bool("record", false, "Also write the mixed audio to a WAV file")
	usePreset      = flag.Bool("last", false, "Reuse the devices and model of the previous capture")
	title          = flag.String("title", "", "Meeting title")
	theme          = flag.String("theme", "", "Meeting theme")
	project        = flag.String("project", "", "Project the meeting belongs to")
	participants   = flag.String("participants", "", "Comma-separated participant names")
	hotkeySpec     = flag.String("hotkey", "", "Wait for this shortcut to start and stop captures, e.g. ctrl+shift+r")
	outputFormat   = flag.String("format", "", "Output format: console, json, text")
	outputFile     = flag.String("output", "", "Output file (default: stdout)")
	duration       = flag.Duration("duration", 0, "Stop automatically after this long")
	logLevel       = flag.String("log-level", "", "Log level: debug, info, warn, error")
	autoDownload   = flag.Bool("auto-download", false, "Download the model if missing")
	showVersion    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Minutes CLI v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := observe.SetupLogging(cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags overrides configuration with the flags given explicitly.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.Transcription.Model = *modelName
		case "language":
			cfg.Transcription.Language = *language
		case "mic":
			cfg.Capture.MicDevice = *micDevice
			if strings.EqualFold(*micDevice, "none") {
				cfg.Capture.MicDevice = ""
			}
		case "system":
			cfg.Capture.SystemDevice = *systemDevice
		case "chunk-seconds":
			cfg.Capture.ChunkSeconds = *chunkSeconds
		case "record":
			cfg.Capture.RecordWAV = *record
		case "format":
			cfg.Output.Format = *outputFormat
		case "log-level":
			cfg.Log.Level = *logLevel
		case "auto-download":
			cfg.Transcription.AutoDownload = *autoDownload
		case "hotkey":
			cfg.Hotkey.Enabled = *hotkeySpec != ""
			cfg.Hotkey.Keys = *hotkeySpec
		}
	})
}

func run(ctx context.Context, cfg *config.Config) error {
	backend, err := audio.NewMalgoBackend()
	if err != nil {
		return fmt.Errorf("failed to initialise audio: %w", err)
	}

	if *listDevices {
		defer backend.Close()
		return app.NewDeviceManager(backend, os.Stdout).ListDevices()
	}

	console := output.DefaultConsoleOutput()
	var mm *app.ModelManager
	rt, err := app.Build(ctx, cfg, backend, func(done, total int64) { mm.Progress(done, total) })
	if err != nil {
		backend.Close()
		return err
	}
	defer rt.Close(context.Background())
	mm = app.NewModelManager(rt.Models, os.Stdout)

	switch {
	case *listModels:
		return mm.ListModels()
	case *listDownloaded:
		names, err := rt.Models.ListDownloaded()
		if err != nil {
			return err
		}
		fmt.Printf("Downloaded models (%d):\n", len(names))
		for _, n := range names {
			fmt.Printf("  - %s\n", n)
		}
		return nil
	case *downloadModel != "":
		return mm.Download(ctx, *downloadModel)
	case *setDefault != "":
		return mm.SetDefault(*setDefault)
	case *exportDir != "":
		path, err := export.Export(ctx, rt.Session.Store(), *exportDir, time.Now(), export.Options{
			Theme:     *exportTheme,
			Project:   *exportProject,
			Formatted: *exportFormat,
		})
		if err != nil {
			return err
		}
		console.Info("Exported to " + path)
		return nil
	}

	model := cfg.Transcription.Model
	if !flagSet("model") && model == config.DefaultConfig().Transcription.Model {
		// nothing configured: the default picked with --set-default wins
		model = ""
	}
	model, err = mm.SelectModel(model)
	if err != nil {
		return err
	}

	if *transcribeFile != "" {
		engine, err := rt.Loader.LoadEngine(ctx, model)
		if err != nil {
			return err
		}
		defer engine.Close()
		text, err := stt.TranscribeFile(ctx, engine, *transcribeFile, cfg.Transcription.Language)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	hotkey := ""
	if cfg.Hotkey.Enabled {
		hotkey = cfg.Hotkey.Keys
	}

	fmt.Printf("Minutes CLI v%s (commit: %s)\n", Version, GitCommit)
	sessionModel := model
	if *usePreset && !flagSet("model") {
		sessionModel = ""
		if p, ok, err := rt.Session.Preset(ctx); err == nil && ok {
			model = p.Model
		}
	}
	console.Info(fmt.Sprintf("Model: %s, language: %s", model, cfg.Transcription.Language))

	t := app.NewTranscriber(rt.Session, console)
	_, err = t.Run(ctx, app.RunConfig{
		Session: app.SessionOptions{
			Title:        *title,
			Theme:        *theme,
			Project:      *project,
			Participants: splitList(*participants),
			Record:       cfg.Capture.RecordWAV,
			Model:        sessionModel,
			UsePreset:    *usePreset,
		},
		OutputFormat: cfg.Output.Format,
		Output:       out,
		Duration:     *duration,
		Hotkey:       hotkey,
		Shortcuts:    input.Binder{},
	})
	return err
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
