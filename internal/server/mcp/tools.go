package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/emmett/minutes/internal/app"
	"github.com/emmett/minutes/internal/stt"
)

type StartCaptureArgs struct {
	MicDevice    string   `json:"mic_device,omitempty" jsonschema:"microphone name or index, default when empty"`
	SystemDevice string   `json:"system_device,omitempty" jsonschema:"output device to capture in loopback, none when empty"`
	Record       bool     `json:"record,omitempty" jsonschema:"also write the mixed audio to a WAV file"`
	Title        string   `json:"title,omitempty" jsonschema:"meeting title"`
	Theme        string   `json:"theme,omitempty" jsonschema:"meeting theme"`
	Project      string   `json:"project,omitempty" jsonschema:"project the meeting belongs to"`
	Participants []string `json:"participants,omitempty" jsonschema:"participant names, used to attribute actions"`
	Model        string   `json:"model,omitempty" jsonschema:"model name, configured model when empty"`
	Language     string   `json:"language,omitempty" jsonschema:"language hint such as fr, en or auto"`
}

type EmptyArgs struct{}

type TranscribeFileArgs struct {
	Path     string `json:"path" jsonschema:"path of a WAV file"`
	Model    string `json:"model,omitempty" jsonschema:"model name, default model when empty"`
	Language string `json:"language,omitempty" jsonschema:"language hint such as fr, en or auto"`
}

func text(s string) *sdk.CallToolResult {
	return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: s}}}
}

func jsonResult(v any) (*sdk.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return text(string(data)), nil, nil
}

func (s *Server) handleStartCapture(ctx context.Context, req *sdk.CallToolRequest, args StartCaptureArgs) (*sdk.CallToolResult, any, error) {
	if s.deps.Session.Running() {
		return text("A capture is already running"), nil, nil
	}
	err := s.deps.Session.Start(app.SessionOptions{
		Title:        args.Title,
		Theme:        args.Theme,
		Project:      args.Project,
		Participants: args.Participants,
		Record:       args.Record,
		MicDevice:    args.MicDevice,
		SystemDevice: args.SystemDevice,
		Model:        args.Model,
		Language:     args.Language,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start capture: %w", err)
	}

	msg := "Capture started"
	st := s.deps.Session.State()
	if st.WAVPath != "" {
		msg += ", recording to " + st.WAVPath
	}
	if st.LastError != "" {
		msg += " (warning: " + st.LastError + ")"
	}
	return text(msg), nil, nil
}

func (s *Server) handleStopCapture(ctx context.Context, req *sdk.CallToolRequest, args EmptyArgs) (*sdk.CallToolResult, any, error) {
	m, err := s.deps.Session.Stop(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("stop capture: %w", err)
	}
	if m == nil {
		return text("Capture stopped; nothing was transcribed"), nil, nil
	}
	todos, err := s.deps.Session.Store().ListTodos(ctx, m.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list actions: %w", err)
	}
	return jsonResult(map[string]any{"meeting": m, "todos": todos})
}

func (s *Server) handleGetTranscript(ctx context.Context, req *sdk.CallToolRequest, args EmptyArgs) (*sdk.CallToolResult, any, error) {
	return jsonResult(s.deps.Session.State())
}

func (s *Server) handleListDevices(ctx context.Context, req *sdk.CallToolRequest, args EmptyArgs) (*sdk.CallToolResult, any, error) {
	var b strings.Builder
	for _, section := range []struct {
		title    string
		loopback bool
	}{{"Microphones", false}, {"System audio (loopback)", true}} {
		devices, err := s.deps.Backend.Devices(section.loopback)
		if err != nil {
			return nil, nil, fmt.Errorf("list devices: %w", err)
		}
		fmt.Fprintf(&b, "%s (%d):\n", section.title, len(devices))
		for _, d := range devices {
			fmt.Fprintf(&b, "- %s\n", d.String())
		}
	}
	return text(strings.TrimRight(b.String(), "\n")), nil, nil
}

func (s *Server) handleListModels(ctx context.Context, req *sdk.CallToolRequest, args EmptyArgs) (*sdk.CallToolResult, any, error) {
	statuses := s.deps.Models.List()

	content := []sdk.Content{
		&sdk.TextContent{Text: fmt.Sprintf("Models (%d):", len(statuses))},
	}
	for _, st := range statuses {
		line := fmt.Sprintf("- %s (%s, %s)", st.Name, st.Engine, st.Size)
		if st.Downloaded {
			line += " downloaded"
		}
		if st.Default {
			line += " [default]"
		}
		content = append(content, &sdk.TextContent{Text: line})
	}
	return &sdk.CallToolResult{Content: content}, nil, nil
}

func (s *Server) handleTranscribeFile(ctx context.Context, req *sdk.CallToolRequest, args TranscribeFileArgs) (*sdk.CallToolResult, any, error) {
	model := args.Model
	if model == "" {
		model = s.config.DefaultModel
	}
	language := args.Language
	if language == "" {
		language = s.config.Language
	}

	engine, err := s.deps.Loader.LoadEngine(ctx, model)
	if err != nil {
		return nil, nil, fmt.Errorf("load model %s: %w", model, err)
	}
	defer engine.Close()

	out, err := stt.TranscribeFile(ctx, engine, args.Path, language)
	if err != nil {
		return nil, nil, err
	}
	return text(out), nil, nil
}

func (s *Server) handleListMeetings(ctx context.Context, req *sdk.CallToolRequest, args EmptyArgs) (*sdk.CallToolResult, any, error) {
	meetings, err := s.deps.Session.Store().ListMeetings(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list meetings: %w", err)
	}
	return jsonResult(meetings)
}
