// Package grpc serves the Live capture service and the standard health
// service.
package grpc

import (
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/emmett/minutes/internal/app"
	"github.com/emmett/minutes/internal/live"
)

// Server wraps the gRPC server and services
type Server struct {
	grpcServer  *grpc.Server
	health      *health.Server
	unsubscribe func()
	port        int
}

// Config holds server configuration
type Config struct {
	Port int
}

// NewServer creates a new gRPC server around session
func NewServer(cfg Config, session *app.Session, opts ...grpc.ServerOption) *Server {
	s := &Server{
		grpcServer: grpc.NewServer(opts...),
		health:     health.NewServer(),
		port:       cfg.Port,
	}

	RegisterLiveServer(s.grpcServer, NewLiveService(session))
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	reflection.Register(s.grpcServer)

	// overall health is always SERVING; the Live service only while capturing
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.setLive(session.State().IsRunning)
	s.unsubscribe = session.Pipeline().Subscribe(live.ObserverFunc(func(st live.TranscriptState) {
		s.setLive(st.IsRunning)
	}))

	return s
}

func (s *Server) setLive(running bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if running {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
}

// GRPC exposes the underlying server.
func (s *Server) GRPC() *grpc.Server { return s.grpcServer }

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC server listening", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// Start listens on the configured port and serves
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	return s.Serve(lis)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	s.unsubscribe()
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
