package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/emmett/minutes/internal/app"
	"github.com/emmett/minutes/internal/live"
	"github.com/emmett/minutes/internal/meeting"
)

// watchBuffer is how many updates a slow Watch client may lag behind
// before updates are dropped for it.
const watchBuffer = 16

// LiveService implements the Live gRPC service over a Session
type LiveService struct {
	session *app.Session
}

var _ LiveServer = (*LiveService)(nil)

// NewLiveService creates a new Live service
func NewLiveService(session *app.Session) *LiveService {
	return &LiveService{session: session}
}

// Start begins a capture. Recognised fields: mic_device, system_device,
// record, wav_path, title, theme, project, participants, model, language,
// use_preset.
func (s *LiveService) Start(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	opts := optionsFromStruct(req)
	if err := s.session.Start(opts); err != nil {
		return nil, toStatus(err)
	}
	return stateStruct(s.session.State(), nil)
}

// Stop ends the capture. The reply carries the final state and, when a
// meeting was saved, its id under meeting_id.
func (s *LiveService) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	m, err := s.session.Stop(ctx)
	if err != nil && m == nil {
		return nil, toStatus(err)
	}
	if err != nil {
		slog.Warn("capture stopped with errors", "err", err)
	}
	return stateStruct(s.session.State(), m)
}

// State returns the current snapshot.
func (s *LiveService) State(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return stateStruct(s.session.State(), nil)
}

// Watch sends the current state, then every update until the client leaves.
func (s *LiveService) Watch(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	updates := make(chan live.TranscriptState, watchBuffer)
	unsubscribe := s.session.Pipeline().Subscribe(live.ObserverFunc(func(st live.TranscriptState) {
		select {
		case updates <- st:
		default:
			slog.Debug("watch client lagging, update dropped")
		}
	}))
	defer unsubscribe()

	send := func(st live.TranscriptState) error {
		msg, err := stateStruct(st, nil)
		if err != nil {
			return err
		}
		return stream.Send(msg)
	}

	if err := send(s.session.State()); err != nil {
		return err
	}
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-updates:
			if err := send(st); err != nil {
				return err
			}
		}
	}
}

func optionsFromStruct(req *structpb.Struct) app.SessionOptions {
	var opts app.SessionOptions
	if req == nil {
		return opts
	}
	f := req.GetFields()
	str := func(key string) string { return f[key].GetStringValue() }

	opts.MicDevice = str("mic_device")
	opts.SystemDevice = str("system_device")
	opts.WAVPath = str("wav_path")
	opts.Title = str("title")
	opts.Theme = str("theme")
	opts.Project = str("project")
	opts.Model = str("model")
	opts.Language = str("language")
	opts.Record = f["record"].GetBoolValue() || opts.WAVPath != ""
	opts.UsePreset = f["use_preset"].GetBoolValue()
	for _, v := range f["participants"].GetListValue().GetValues() {
		if p := v.GetStringValue(); p != "" {
			opts.Participants = append(opts.Participants, p)
		}
	}
	return opts
}

func stateStruct(st live.TranscriptState, m *meeting.Meeting) (*structpb.Struct, error) {
	fields := map[string]any{
		"is_running":        st.IsRunning,
		"transcript":        st.Transcript,
		"last_error":        st.LastError,
		"appended_segments": st.AppendedSegments,
		"wav_path":          st.WAVPath,
	}
	if m != nil {
		fields["meeting_id"] = m.ID
		fields["meeting_title"] = m.Title
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode state: %v", err)
	}
	return out, nil
}

// toStatus maps capture errors to gRPC codes.
func toStatus(err error) error {
	var cfgErr *live.ConfigError
	var sinkErr *live.SinkError
	switch {
	case errors.As(err, &cfgErr):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, live.ErrNoSource):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, live.ErrStopTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, live.ErrBusy):
		return status.Error(codes.Unavailable, err.Error())
	case errors.As(err, &sinkErr):
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Unknown, err.Error())
	}
}
