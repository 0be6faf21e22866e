package grpc_test

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/emmett/minutes/internal/app/apptest"
	server "github.com/emmett/minutes/internal/server/grpc"
)

func dial(t *testing.T, env *apptest.Env) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := server.NewServer(server.Config{}, env.Session)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func liveHealth(t *testing.T, conn *grpc.ClientConn) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: server.ServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	return resp.GetStatus()
}

func TestLive_StartStop(t *testing.T) {
	env := apptest.New(t, "Carol doit relire le contrat.")
	conn := dial(t, env)
	client := server.NewLiveClient(conn)
	ctx := context.Background()

	if got := liveHealth(t, conn); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("idle health = %v", got)
	}

	req, err := structpb.NewStruct(map[string]any{
		"title":        "Revue",
		"participants": []any{"Carol"},
	})
	if err != nil {
		t.Fatal(err)
	}
	st, err := client.Start(ctx, req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !st.GetFields()["is_running"].GetBoolValue() {
		t.Errorf("start reply = %v", st)
	}
	apptest.WaitFor(t, "health SERVING", func() bool {
		return liveHealth(t, conn) == healthpb.HealthCheckResponse_SERVING
	})

	env.Speak(t, 1)
	apptest.WaitFor(t, "a segment", func() bool { return env.Session.State().AppendedSegments >= 1 })

	st, err = client.State(ctx)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if got := st.GetFields()["transcript"].GetStringValue(); got != "Carol doit relire le contrat." {
		t.Errorf("transcript = %q", got)
	}

	st, err = client.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	id := st.GetFields()["meeting_id"].GetStringValue()
	if id == "" {
		t.Fatalf("stop reply has no meeting_id: %v", st)
	}
	if _, err := env.Store.GetMeeting(ctx, id); err != nil {
		t.Errorf("meeting %s not stored: %v", id, err)
	}
	apptest.WaitFor(t, "health NOT_SERVING", func() bool {
		return liveHealth(t, conn) == healthpb.HealthCheckResponse_NOT_SERVING
	})
}

func TestLive_StartUnknownDevice(t *testing.T) {
	env := apptest.New(t, "x")
	client := server.NewLiveClient(dial(t, env))

	req, _ := structpb.NewStruct(map[string]any{"mic_device": "zzzz"})
	_, err := client.Start(context.Background(), req)
	if err == nil {
		t.Fatal("expected an error for an unknown device")
	}
	if code := status.Code(err); code != codes.FailedPrecondition {
		t.Errorf("code = %v, want FailedPrecondition", code)
	}
}

func TestLive_Watch(t *testing.T) {
	env := apptest.New(t, "bonjour")
	client := server.NewLiveClient(dial(t, env))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	first, err := stream.Recv()
	if err != nil {
		t.Fatalf("first Recv: %v", err)
	}
	if first.GetFields()["is_running"].GetBoolValue() {
		t.Errorf("initial state = %v", first)
	}

	if _, err := client.Start(ctx, &structpb.Struct{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	env.Speak(t, 1)

	for {
		msg, err := stream.Recv()
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if msg.GetFields()["transcript"].GetStringValue() == "bonjour" {
			break
		}
	}
}
