package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emmett/minutes/internal/app"
	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/config"
	"github.com/emmett/minutes/internal/observe"
	"github.com/emmett/minutes/internal/server/api"
	grpcserver "github.com/emmett/minutes/internal/server/grpc"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file (default: ~/.minutesrc or /etc/minutes/config.yaml)")
	port        = flag.Int("port", 0, "gRPC server port (default from config: 50051)")
	httpAddr    = flag.String("http", "", "HTTP listen address (default from config: localhost:8080)")
	showVersion = flag.Bool("version", false, "Show version information")
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Minutes Server v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		return 0
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *port != 0 {
		cfg.Server.GRPCPort = *port
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return 1
	}
	if err := observe.SetupLogging(cfg.Log.Level); err != nil {
		slog.Warn("bad log level, using info", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "minutes-server",
		ServiceVersion: Version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	backend, err := audio.NewMalgoBackend()
	if err != nil {
		slog.Error("failed to initialise audio", "err", err)
		return 1
	}
	rt, err := app.Build(ctx, cfg, backend, nil)
	if err != nil {
		backend.Close()
		slog.Error("failed to build runtime", "err", err)
		return 1
	}

	grpcSrv := grpcserver.NewServer(grpcserver.Config{Port: cfg.Server.GRPCPort}, rt.Session)
	httpSrv := api.NewServer(api.Config{Addr: cfg.Server.HTTPAddr}, rt.Session, rt.Backend, observe.DefaultMetrics())

	slog.Info("minutes server starting",
		"version", Version,
		"commit", GitCommit,
		"grpc_port", cfg.Server.GRPCPort,
		"http_addr", cfg.Server.HTTPAddr,
		"store", cfg.Storage.Backend,
		"model", cfg.Transcription.Model,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(grpcSrv.Start)
	g.Go(httpSrv.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.Stop()
		return errors.Join(
			httpSrv.Shutdown(shutdownCtx),
			rt.Close(shutdownCtx),
			shutdownTelemetry(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "err", err)
		return 1
	}
	return 0
}
