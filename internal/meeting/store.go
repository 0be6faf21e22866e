// Package meeting persists meeting records and their follow-up actions.
//
// Two backends satisfy [Store]: [BadgerStore], an embedded key-value store
// used by default on a desktop, and [PostgresStore] for shared deployments.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrNotFound is returned when a meeting or todo does not exist.
var ErrNotFound = errors.New("meeting: not found")

// Todo statuses.
const (
	StatusOpen = "open"
	StatusDone = "done"
)

// Meeting is one recorded or imported meeting.
type Meeting struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Theme          string    `json:"theme,omitempty"`
	Project        string    `json:"project,omitempty"`
	Date           time.Time `json:"date"`
	Participants   []string  `json:"participants,omitempty"`
	Source         string    `json:"source,omitempty"`
	TranscriptPath string    `json:"transcript_path,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MeetingUpdate lists the fields to change. Nil fields are left as they are.
type MeetingUpdate struct {
	Title          *string
	Theme          *string
	Project        *string
	Date           *time.Time
	Participants   []string
	Source         *string
	TranscriptPath *string
	Summary        *string
}

func (u MeetingUpdate) apply(m *Meeting) {
	if u.Title != nil {
		m.Title = *u.Title
	}
	if u.Theme != nil {
		m.Theme = *u.Theme
	}
	if u.Project != nil {
		m.Project = *u.Project
	}
	if u.Date != nil {
		m.Date = *u.Date
	}
	if u.Participants != nil {
		m.Participants = u.Participants
	}
	if u.Source != nil {
		m.Source = *u.Source
	}
	if u.TranscriptPath != nil {
		m.TranscriptPath = *u.TranscriptPath
	}
	if u.Summary != nil {
		m.Summary = *u.Summary
	}
}

// Todo is a follow-up action extracted from or attached to a meeting.
type Todo struct {
	ID        string     `json:"id"`
	MeetingID string     `json:"meeting_id"`
	Action    string     `json:"action"`
	Actor     string     `json:"actor,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// Store persists meetings, todos and a small settings table.
type Store interface {
	// CreateMeeting assigns an ID and timestamps and returns the stored record.
	CreateMeeting(ctx context.Context, m Meeting) (Meeting, error)
	UpdateMeeting(ctx context.Context, id string, u MeetingUpdate) (Meeting, error)
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	// ListMeetings returns every meeting, most recent date first.
	ListMeetings(ctx context.Context) ([]Meeting, error)

	// AddTodos stores todos under meetingID and returns them with IDs.
	AddTodos(ctx context.Context, meetingID string, todos []Todo) ([]Todo, error)
	// ListTodos returns the todos of one meeting, or all todos when
	// meetingID is empty, ordered by due date with undated todos last.
	ListTodos(ctx context.Context, meetingID string) ([]Todo, error)
	SetTodoStatus(ctx context.Context, id, status string) error

	// Setting returns "" for a key that was never set.
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	Close() error
}

// Backends accepted by Open.
const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Open builds the store named by backend. Badger keeps its files under
// dataDir; postgres connects to dsn and migrates the schema.
func Open(ctx context.Context, backend, dsn, dataDir string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendBadger:
		s, err := OpenBadger(filepath.Join(dataDir, "db"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendPostgres:
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("meeting: unknown storage backend %q (valid: badger, postgres)", backend)
	}
}

// Summarize returns the first n characters of text, trimmed.
func Summarize(text string, n int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:n]))
}

func validStatus(s string) error {
	switch s {
	case StatusOpen, StatusDone:
		return nil
	default:
		return fmt.Errorf("meeting: invalid todo status %q", s)
	}
}

func sortTodos(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool { return todoBefore(todos[i], todos[j]) })
}

func todoBefore(a, b Todo) bool {
	switch {
	case a.DueDate == nil:
		return false
	case b.DueDate == nil:
		return true
	default:
		return a.DueDate.Before(*b.DueDate)
	}
}
