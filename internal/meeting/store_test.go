package meeting_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/emmett/minutes/internal/meeting"
)

func newBadger(t *testing.T) meeting.Store {
	t.Helper()
	s, err := meeting.OpenBadger(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newPostgres(t *testing.T) meeting.Store {
	t.Helper()
	dsn := os.Getenv("MINUTES_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MINUTES_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	ctx := context.Background()
	s, err := meeting.OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func backends(t *testing.T) map[string]func(*testing.T) meeting.Store {
	return map[string]func(*testing.T) meeting.Store{
		"badger":   newBadger,
		"postgres": newPostgres,
	}
}

func TestStore_MeetingLifecycle(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			older, err := s.CreateMeeting(ctx, meeting.Meeting{Title: "Kickoff", Date: day(2026, 3, 1)})
			if err != nil {
				t.Fatalf("CreateMeeting: %v", err)
			}
			m, err := s.CreateMeeting(ctx, meeting.Meeting{
				Title:        "Weekly",
				Project:      "minutes",
				Date:         day(2026, 3, 8),
				Participants: []string{"Alice", "Bob"},
				Source:       "live",
				Summary:      "short",
			})
			if err != nil {
				t.Fatalf("CreateMeeting: %v", err)
			}
			if m.ID == "" || m.ID == older.ID {
				t.Fatalf("bad id %q", m.ID)
			}

			got, err := s.GetMeeting(ctx, m.ID)
			if err != nil {
				t.Fatalf("GetMeeting: %v", err)
			}
			if got.Title != "Weekly" || len(got.Participants) != 2 || !got.Date.Equal(m.Date) {
				t.Errorf("GetMeeting = %+v", got)
			}

			path := "/tmp/weekly.txt"
			updated, err := s.UpdateMeeting(ctx, m.ID, meeting.MeetingUpdate{TranscriptPath: &path})
			if err != nil {
				t.Fatalf("UpdateMeeting: %v", err)
			}
			if updated.TranscriptPath != path || updated.Title != "Weekly" {
				t.Errorf("UpdateMeeting = %+v", updated)
			}

			list, err := s.ListMeetings(ctx)
			if err != nil {
				t.Fatalf("ListMeetings: %v", err)
			}
			if len(list) < 2 {
				t.Fatalf("ListMeetings returned %d meetings", len(list))
			}
			if name == "badger" && (list[0].ID != m.ID || list[1].ID != older.ID) {
				t.Errorf("ListMeetings not ordered by date desc: %s, %s", list[0].Title, list[1].Title)
			}
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			if _, err := s.GetMeeting(ctx, "nope"); !errors.Is(err, meeting.ErrNotFound) {
				t.Errorf("GetMeeting = %v", err)
			}
			title := "x"
			if _, err := s.UpdateMeeting(ctx, "nope", meeting.MeetingUpdate{Title: &title}); !errors.Is(err, meeting.ErrNotFound) {
				t.Errorf("UpdateMeeting = %v", err)
			}
			if _, err := s.AddTodos(ctx, "nope", []meeting.Todo{{Action: "a"}}); !errors.Is(err, meeting.ErrNotFound) {
				t.Errorf("AddTodos = %v", err)
			}
			if err := s.SetTodoStatus(ctx, "nope", meeting.StatusDone); !errors.Is(err, meeting.ErrNotFound) {
				t.Errorf("SetTodoStatus = %v", err)
			}
		})
	}
}

func TestStore_Todos(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			a, _ := s.CreateMeeting(ctx, meeting.Meeting{Title: "A"})
			b, _ := s.CreateMeeting(ctx, meeting.Meeting{Title: "B"})

			late, early := day(2026, 5, 2), day(2026, 4, 1)
			added, err := s.AddTodos(ctx, a.ID, []meeting.Todo{
				{Action: "no date"},
				{Action: "late", DueDate: &late, Actor: "Alice"},
				{Action: "early", DueDate: &early},
			})
			if err != nil {
				t.Fatalf("AddTodos: %v", err)
			}
			for _, td := range added {
				if td.ID == "" || td.MeetingID != a.ID || td.Status != meeting.StatusOpen {
					t.Errorf("added todo = %+v", td)
				}
			}
			if _, err := s.AddTodos(ctx, b.ID, []meeting.Todo{{Action: "other"}}); err != nil {
				t.Fatalf("AddTodos: %v", err)
			}

			todos, err := s.ListTodos(ctx, a.ID)
			if err != nil {
				t.Fatalf("ListTodos: %v", err)
			}
			want := []string{"early", "late", "no date"}
			if len(todos) != len(want) {
				t.Fatalf("ListTodos returned %d todos", len(todos))
			}
			for i, w := range want {
				if todos[i].Action != w {
					t.Errorf("todos[%d] = %q, want %q", i, todos[i].Action, w)
				}
			}

			all, _ := s.ListTodos(ctx, "")
			if len(all) < 4 {
				t.Errorf("ListTodos(\"\") returned %d todos", len(all))
			}

			if err := s.SetTodoStatus(ctx, todos[0].ID, meeting.StatusDone); err != nil {
				t.Fatalf("SetTodoStatus: %v", err)
			}
			if err := s.SetTodoStatus(ctx, todos[0].ID, "maybe"); err == nil {
				t.Error("invalid status accepted")
			}
			todos, _ = s.ListTodos(ctx, a.ID)
			if todos[0].Status != meeting.StatusDone {
				t.Errorf("status = %q", todos[0].Status)
			}
		})
	}
}

func TestStore_Settings(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			if v, err := s.Setting(ctx, "language"); err != nil || v != "" {
				t.Fatalf("Setting(unset) = %q, %v", v, err)
			}
			if err := s.SetSetting(ctx, "language", "fr"); err != nil {
				t.Fatal(err)
			}
			if err := s.SetSetting(ctx, "language", "en"); err != nil {
				t.Fatal(err)
			}
			if v, _ := s.Setting(ctx, "language"); v != "en" {
				t.Errorf("Setting = %q, want en", v)
			}
		})
	}
}

func TestBadger_Persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := meeting.OpenBadger(dir)
	if err != nil {
		t.Fatal(err)
	}
	m, err := s.CreateMeeting(ctx, meeting.Meeting{Title: "Durable"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = meeting.OpenBadger(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.GetMeeting(ctx, m.ID)
	if err != nil || got.Title != "Durable" {
		t.Errorf("GetMeeting after reopen = %+v, %v", got, err)
	}
}

func TestSummarize(t *testing.T) {
	if got := meeting.Summarize("  court  ", 280); got != "court" {
		t.Errorf("Summarize = %q", got)
	}
	if got := meeting.Summarize("éléphant", 3); got != "élé" {
		t.Errorf("Summarize = %q", got)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := meeting.Open(context.Background(), "sqlite", "", t.TempDir()); err == nil {
		t.Error("expected error")
	}
}
