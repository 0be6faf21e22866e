package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emmett/minutes/internal/app"
	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/config"
	"github.com/emmett/minutes/internal/observe"
	"github.com/emmett/minutes/internal/server/mcp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.minutesrc or /etc/minutes/config.yaml)")
	modelName   = flag.String("model", "", "Model used for live capture and file transcription")
	language    = flag.String("language", "", "Default language hint")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Minutes MCP v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if *modelName != "" {
		cfg.Transcription.Model = *modelName
	}
	if *language != "" {
		cfg.Transcription.Language = *language
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// stdout carries the protocol; logs stay on stderr
	if err := observe.SetupLogging(cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	fmt.Fprintf(os.Stderr, "Starting MCP server...\n")
	fmt.Fprintf(os.Stderr, "Protocol: Model Context Protocol (stdio transport)\n")
	fmt.Fprintf(os.Stderr, "Version: %s (commit: %s)\n\n", Version, GitCommit)
	printClientConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := audio.NewMalgoBackend()
	if err != nil {
		return fmt.Errorf("failed to initialise audio: %w", err)
	}
	rt, err := app.Build(ctx, cfg, backend, nil)
	if err != nil {
		backend.Close()
		return err
	}
	defer rt.Close(context.Background())

	srv := mcp.NewServer(mcp.Config{
		ServerName:    "minutes",
		ServerVersion: Version,
		Language:      cfg.Transcription.Language,
		DefaultModel:  cfg.Transcription.Model,
	}, mcp.Deps{
		Session: rt.Session,
		Backend: rt.Backend,
		Models:  rt.Models,
		Loader:  rt.Loader,
	})

	fmt.Fprintf(os.Stderr, "MCP server ready. Listening on stdin/stdout...\n")
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop.\n\n")

	err = srv.Run(ctx)
	if ctx.Err() != nil {
		fmt.Fprintf(os.Stderr, "\nShutting down MCP server...\n")
		return nil
	}
	return err
}

// printClientConfig shows how to register this binary with an MCP client.
func printClientConfig() {
	exe, err := os.Executable()
	if err != nil {
		exe = "minutes-mcp"
	}

	type serverConfig struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	clientConfig := struct {
		MCPServers map[string]serverConfig `json:"mcpServers"`
	}{
		MCPServers: map[string]serverConfig{"minutes": {Command: exe, Args: []string{}}},
	}
	if data, err := json.MarshalIndent(clientConfig, "", "  "); err == nil {
		fmt.Fprintf(os.Stderr, "MCP Client Configuration:\n%s\n\n", data)
	}
}
