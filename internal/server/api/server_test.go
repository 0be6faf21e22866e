package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emmett/minutes/internal/app/apptest"
	"github.com/emmett/minutes/internal/live"
	"github.com/emmett/minutes/internal/meeting"
	"github.com/emmett/minutes/internal/server/api"
)

func newServer(t *testing.T, env *apptest.Env) *httptest.Server {
	t.Helper()
	srv := api.NewServer(api.Config{}, env.Session, env.Backend, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestAPI_SessionLifecycle(t *testing.T) {
	env := apptest.New(t, "Dana doit mettre a jour le planning.")
	ts := newServer(t, env)

	var st live.TranscriptState
	if code := do(t, http.MethodPost, ts.URL+"/api/sessions/start", map[string]any{
		"title":        "Planning",
		"participants": []string{"Dana"},
	}, &st); code != http.StatusOK {
		t.Fatalf("start status = %d", code)
	}
	if !st.IsRunning {
		t.Errorf("start state = %+v", st)
	}
	if code := do(t, http.MethodPost, ts.URL+"/api/sessions/start", nil, nil); code != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", code)
	}

	env.Speak(t, 1)
	apptest.WaitFor(t, "a segment", func() bool { return env.Session.State().AppendedSegments >= 1 })

	do(t, http.MethodGet, ts.URL+"/api/state", nil, &st)
	if st.Transcript != "Dana doit mettre a jour le planning." {
		t.Errorf("state = %+v", st)
	}

	var stopped struct {
		State   live.TranscriptState `json:"state"`
		Meeting *meeting.Meeting     `json:"meeting"`
		Todos   []meeting.Todo       `json:"todos"`
	}
	if code := do(t, http.MethodPost, ts.URL+"/api/sessions/stop", nil, &stopped); code != http.StatusOK {
		t.Fatalf("stop status = %d", code)
	}
	if stopped.Meeting == nil || stopped.Meeting.Title != "Planning" {
		t.Fatalf("stop response = %+v", stopped)
	}
	if stopped.State.IsRunning || len(stopped.Todos) != 1 || stopped.Todos[0].Actor != "Dana" {
		t.Errorf("stop response = %+v", stopped)
	}
	id := stopped.Meeting.ID

	var meetings []meeting.Meeting
	do(t, http.MethodGet, ts.URL+"/api/meetings", nil, &meetings)
	if len(meetings) != 1 || meetings[0].ID != id {
		t.Errorf("meetings = %+v", meetings)
	}

	var m meeting.Meeting
	if code := do(t, http.MethodGet, ts.URL+"/api/meetings/"+id, nil, &m); code != http.StatusOK || m.ID != id {
		t.Errorf("get meeting = %d %+v", code, m)
	}
	if code := do(t, http.MethodGet, ts.URL+"/api/meetings/nope", nil, nil); code != http.StatusNotFound {
		t.Errorf("missing meeting status = %d", code)
	}

	todoID := stopped.Todos[0].ID
	if code := do(t, http.MethodPatch, ts.URL+"/api/todos/"+todoID, map[string]string{"status": meeting.StatusDone}, nil); code != http.StatusNoContent {
		t.Errorf("set status = %d", code)
	}
	if code := do(t, http.MethodPatch, ts.URL+"/api/todos/"+todoID, map[string]string{"status": "later"}, nil); code != http.StatusBadRequest {
		t.Errorf("invalid status = %d", code)
	}
	var todos []meeting.Todo
	do(t, http.MethodGet, ts.URL+"/api/meetings/"+id+"/todos", nil, &todos)
	if len(todos) != 1 || todos[0].Status != meeting.StatusDone {
		t.Errorf("todos = %+v", todos)
	}
}

func TestAPI_StartWithoutSource(t *testing.T) {
	env := apptest.New(t, "x")
	ts := newServer(t, env)

	code := do(t, http.MethodPost, ts.URL+"/api/sessions/start", map[string]string{"mic_device": "zzzz"}, nil)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
}

func TestAPI_Devices(t *testing.T) {
	env := apptest.New(t, "x")
	ts := newServer(t, env)

	var devices struct {
		Microphones []struct {
			Name string `json:"name"`
		} `json:"microphones"`
		Loopback []struct {
			Name string `json:"name"`
		} `json:"loopback"`
	}
	do(t, http.MethodGet, ts.URL+"/api/devices", nil, &devices)
	if len(devices.Microphones) != 1 || devices.Microphones[0].Name != "Built-in Microphone" {
		t.Errorf("microphones = %+v", devices.Microphones)
	}
	if len(devices.Loopback) != 1 || devices.Loopback[0].Name != "Speakers" {
		t.Errorf("loopback = %+v", devices.Loopback)
	}
}

func TestAPI_Health(t *testing.T) {
	env := apptest.New(t, "x")
	ts := newServer(t, env)

	var res struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if code := do(t, http.MethodGet, ts.URL+"/healthz", nil, &res); code != http.StatusOK || res.Status != "ok" {
		t.Errorf("healthz = %d %+v", code, res)
	}
	if code := do(t, http.MethodGet, ts.URL+"/readyz", nil, &res); code != http.StatusOK || res.Checks["store"] != "ok" {
		t.Errorf("readyz = %d %+v", code, res)
	}
}

func TestAPI_WebSocketStreamsState(t *testing.T) {
	env := apptest.New(t, "salut")
	ts := newServer(t, env)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg api.WebSocketMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if msg.Type != "state" || msg.State == nil || msg.State.IsRunning {
		t.Errorf("first frame = %+v", msg)
	}

	if err := conn.WriteJSON(api.WebSocketMessage{Type: "ping"}); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "pong" {
		t.Fatalf("ping reply = %+v, %v", msg, err)
	}

	if code := do(t, http.MethodPost, ts.URL+"/api/sessions/start", nil, nil); code != http.StatusOK {
		t.Fatalf("start status = %d", code)
	}
	env.Speak(t, 1)

	for {
		msg = api.WebSocketMessage{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.State != nil && msg.State.Transcript == "salut" {
			return
		}
	}
}
