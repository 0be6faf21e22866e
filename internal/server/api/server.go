// Package api is the HTTP front-end: a small JSON API over the capture
// session and the meeting store, a websocket feed of transcript updates,
// Prometheus metrics and health probes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/emmett/minutes/internal/app"
	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/observe"
)

const readHeaderTimeout = 10 * time.Second

// Config holds server configuration
type Config struct {
	Addr string
}

// Server serves the HTTP API.
type Server struct {
	session *app.Session
	backend audio.Backend
	health  *Health
	http    *http.Server
}

// NewServer builds the router. metrics may be nil, in which case the
// process-wide instruments are used.
func NewServer(cfg Config, session *app.Session, backend audio.Backend, metrics *observe.Metrics) *Server {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	s := &Server{
		session: session,
		backend: backend,
		health: NewHealth(Checker{Name: "store", Check: func(ctx context.Context) error {
			_, err := session.Store().Setting(ctx, "default_model")
			return err
		}}),
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           observe.Middleware(metrics)(s.Router()),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Router returns the route table without middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions/start", s.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/sessions/stop", s.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/devices", s.handleDevices).Methods(http.MethodGet)
	api.HandleFunc("/meetings", s.handleListMeetings).Methods(http.MethodGet)
	api.HandleFunc("/meetings/{id}", s.handleGetMeeting).Methods(http.MethodGet)
	api.HandleFunc("/meetings/{id}", s.handleUpdateMeeting).Methods(http.MethodPatch)
	api.HandleFunc("/meetings/{id}/todos", s.handleMeetingTodos).Methods(http.MethodGet)
	api.HandleFunc("/todos", s.handleListTodos).Methods(http.MethodGet)
	api.HandleFunc("/todos/{id}", s.handleSetTodoStatus).Methods(http.MethodPatch)
	api.HandleFunc("/presets", s.handleGetPreset).Methods(http.MethodGet)
	api.HandleFunc("/presets", s.handleSavePreset).Methods(http.MethodPut)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.handleWebSocket)
	r.Handle("/metrics", observe.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.health.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.health.Readyz).Methods(http.MethodGet)
	return r
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Serve accepts connections on lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := s.http.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start listens on the configured address and serves.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}
