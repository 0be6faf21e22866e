package export_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/emmett/minutes/internal/export"
	"github.com/emmett/minutes/internal/meeting"
)

func TestWorkbook(t *testing.T) {
	due := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	meetings := []meeting.Meeting{
		{ID: "m1", Title: "Weekly", Theme: "Ops", Project: "minutes", Date: time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), Participants: []string{"Alice", "Bob"}},
	}
	todos := []meeting.Todo{
		{ID: "t1", MeetingID: "m1", Action: "envoyer le devis", Actor: "Alice", DueDate: &due, Status: meeting.StatusOpen},
		{ID: "t2", MeetingID: "m1", Action: "relire", Status: meeting.StatusDone},
		{ID: "t3", MeetingID: "other", Action: "ancien point", Status: meeting.StatusOpen},
	}

	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	if err := export.Workbook(path, meetings, todos); err != nil {
		t.Fatalf("Workbook: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); strings.Join(got, ",") != "CR,ToDo,ToDo_Global" {
		t.Errorf("sheets = %v", got)
	}

	cr, err := f.GetRows(export.SheetCR)
	if err != nil {
		t.Fatal(err)
	}
	if len(cr) != 2 || cr[1][1] != "2026-03-11" || cr[1][5] != "Alice, Bob" {
		t.Errorf("CR rows = %v", cr)
	}

	td, _ := f.GetRows(export.SheetTodo)
	if len(td) != 3 {
		t.Fatalf("ToDo has %d rows, want header + 2", len(td))
	}
	if td[1][4] != "envoyer le devis" || td[1][6] != "2026-03-20" {
		t.Errorf("ToDo row = %v", td[1])
	}

	global, _ := f.GetRows(export.SheetTodoGlobal)
	if len(global) != 3 {
		t.Fatalf("ToDo_Global has %d rows, want header + 2 open todos", len(global))
	}
	if global[1][9] != "Weekly" {
		t.Errorf("global row = %v", global[1])
	}
}

func TestExport(t *testing.T) {
	store, err := meeting.OpenBadger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	m, err := store.CreateMeeting(ctx, meeting.Meeting{Title: "Revue"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddTodos(ctx, m.ID, []meeting.Todo{{Action: "préparer la démo"}}); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 3, 11, 10, 4, 5, 0, time.UTC)
	path, err := export.Export(ctx, store, t.TempDir(), now, export.Options{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(path) != "CR_export_20260311_100405.xlsx" {
		t.Errorf("path = %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, _ := f.GetRows(export.SheetTodo)
	if len(rows) != 2 || rows[1][4] != "préparer la démo" {
		t.Errorf("ToDo rows = %v", rows)
	}
}
