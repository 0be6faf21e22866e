package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emmett/minutes/internal/live"
)

const (
	wsBuffer     = 16
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketMessage is every frame exchanged on /ws. The server sends
// "state" frames; clients may send "ping" and get a "pong".
type WebSocketMessage struct {
	Type  string                `json:"type"`
	State *live.TranscriptState `json:"state,omitempty"`
	Error string                `json:"error,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	out := make(chan WebSocketMessage, wsBuffer)
	push := func(msg WebSocketMessage) {
		select {
		case out <- msg:
		default:
			slog.Debug("websocket client lagging, message dropped")
		}
	}

	unsubscribe := s.session.Pipeline().Subscribe(live.ObserverFunc(func(st live.TranscriptState) {
		push(WebSocketMessage{Type: "state", State: &st})
	}))
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg WebSocketMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Type {
			case "ping":
				push(WebSocketMessage{Type: "pong"})
			default:
				push(WebSocketMessage{Type: "error", Error: "unknown message type"})
			}
		}
	}()

	current := s.session.State()
	if err := send(conn, WebSocketMessage{Type: "state", State: &current}); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case msg := <-out:
			if err := send(conn, msg); err != nil {
				return
			}
		}
	}
}

func send(conn *websocket.Conn, msg WebSocketMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}
