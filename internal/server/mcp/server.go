// Package mcp exposes live capture and meeting history as Model Context
// Protocol tools over stdio.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/emmett/minutes/internal/app"
	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/live"
	"github.com/emmett/minutes/internal/models"
)

type Config struct {
	ServerName    string
	ServerVersion string

	// Language is the hint used by transcribe_file when none is given
	Language string

	// DefaultModel is used by transcribe_file when none is given
	DefaultModel string
}

// Deps are the components the tools act on.
type Deps struct {
	Session *app.Session
	Backend audio.Backend
	Models  *models.Manager
	Loader  live.EngineLoader
}

type Server struct {
	config    Config
	deps      Deps
	mcpServer *sdk.Server
}

func NewServer(cfg Config, deps Deps) *Server {
	s := &Server{config: cfg, deps: deps}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()
	return s
}

// Run serves on stdin/stdout until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

// Connect serves a single session on t.
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "start_capture",
		Description: "Start capturing microphone and system audio with live transcription",
	}, s.handleStartCapture)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "stop_capture",
		Description: "Stop the capture and save the meeting with its extracted actions",
	}, s.handleStopCapture)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "get_transcript",
		Description: "Return the live transcript and capture state",
	}, s.handleGetTranscript)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_devices",
		Description: "List microphones and loopback-capable output devices",
	}, s.handleListDevices)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_models",
		Description: "List speech recognition models and whether they are downloaded",
	}, s.handleListModels)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "transcribe_file",
		Description: "Transcribe a WAV recording in one pass",
	}, s.handleTranscribeFile)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_meetings",
		Description: "List saved meetings, most recent first",
	}, s.handleListMeetings)
}
