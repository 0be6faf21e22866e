package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/emmett/minutes/internal/app"
	"github.com/emmett/minutes/internal/audio"
	"github.com/emmett/minutes/internal/export"
	"github.com/emmett/minutes/internal/live"
	"github.com/emmett/minutes/internal/meeting"
)

type stopResponse struct {
	State   live.TranscriptState `json:"state"`
	Meeting *meeting.Meeting     `json:"meeting,omitempty"`
	Todos   []meeting.Todo       `json:"todos,omitempty"`
}

type devicesResponse struct {
	Microphones []audio.DeviceInfo `json:"microphones"`
	Loopback    []audio.DeviceInfo `json:"loopback"`
}

type todoStatusRequest struct {
	Status string `json:"status"`
}

// meetingPatch carries the fields of a meeting to change. Absent fields
// are left as they are.
type meetingPatch struct {
	Title        *string    `json:"title"`
	Theme        *string    `json:"theme"`
	Project      *string    `json:"project"`
	Date         *time.Time `json:"date"`
	Participants *[]string  `json:"participants"`
	Summary      *string    `json:"summary"`
}

func (p meetingPatch) update() meeting.MeetingUpdate {
	u := meeting.MeetingUpdate{
		Title:   p.Title,
		Theme:   p.Theme,
		Project: p.Project,
		Date:    p.Date,
		Summary: p.Summary,
	}
	if p.Participants != nil {
		u.Participants = *p.Participants
		if u.Participants == nil {
			u.Participants = []string{}
		}
	}
	return u
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var opts app.SessionOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if s.session.Running() {
		writeJSON(w, http.StatusConflict, s.session.State())
		return
	}
	if err := s.session.Start(opts); err != nil {
		writeError(w, startStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.State())
}

func startStatus(err error) int {
	var cfgErr *live.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.Is(err, live.ErrNoSource):
		return http.StatusServiceUnavailable
	case errors.Is(err, live.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	m, err := s.session.Stop(r.Context())
	if err != nil && m == nil {
		status := http.StatusInternalServerError
		if errors.Is(err, live.ErrStopTimeout) {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, err)
		return
	}

	resp := stopResponse{State: s.session.State(), Meeting: m}
	if m != nil {
		todos, err := s.session.Store().ListTodos(r.Context(), m.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.Todos = todos
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	mics, err := s.backend.Devices(false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	loop, err := s.backend.Devices(true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, devicesResponse{Microphones: mics, Loopback: loop})
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := s.session.Store().ListMeetings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if meetings == nil {
		meetings = []meeting.Meeting{}
	}
	writeJSON(w, http.StatusOK, meetings)
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	m, err := s.session.Store().GetMeeting(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleMeetingTodos(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.session.Store().GetMeeting(r.Context(), id); err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	s.writeTodos(w, r, id)
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	s.writeTodos(w, r, "")
}

func (s *Server) writeTodos(w http.ResponseWriter, r *http.Request, meetingID string) {
	todos, err := s.session.Store().ListTodos(r.Context(), meetingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if todos == nil {
		todos = []meeting.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleSetTodoStatus(w http.ResponseWriter, r *http.Request) {
	var req todoStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if err := s.session.Store().SetTodoStatus(r.Context(), mux.Vars(r)["id"], req.Status); err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateMeeting(w http.ResponseWriter, r *http.Request) {
	var req meetingPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	m, err := s.session.Store().UpdateMeeting(r.Context(), mux.Vars(r)["id"], req.update())
	if err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	p, ok, err := s.session.Preset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no capture preset saved yet"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var p app.Preset
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if err := s.session.SavePreset(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleExport builds a workbook and sends it as an attachment. Query
// parameters: theme, project, formatted.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	formatted, _ := strconv.ParseBool(q.Get("formatted"))
	opts := export.Options{Theme: q.Get("theme"), Project: q.Get("project"), Formatted: formatted}

	dir, err := os.MkdirTemp("", "minutes-export-")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer os.RemoveAll(dir)

	path, err := export.Export(r.Context(), s.session.Store(), dir, time.Now(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	name := filepath.Base(path)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, time.Now(), f)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func storeStatus(err error) int {
	if errors.Is(err, meeting.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}
