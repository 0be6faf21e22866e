package export_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/emmett/minutes/internal/export"
	"github.com/emmett/minutes/internal/meeting"
)

func TestFormattedWorkbook(t *testing.T) {
	dir := t.TempDir()
	transcript := filepath.Join(dir, "weekly.txt")
	if err := os.WriteFile(transcript, []byte("Alice doit envoyer le devis."), 0o644); err != nil {
		t.Fatal(err)
	}

	day := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	meetings := []meeting.Meeting{
		{ID: "m1", Title: "Weekly", Theme: "Ops", Project: "minutes", Date: day, Participants: []string{"Alice", "Bob"}, TranscriptPath: transcript},
		{ID: "m2", Title: "Weekly", Date: day, Summary: "point rapide"},
		{ID: "m3", Title: "Revue: budget/2026", Date: day},
	}
	todos := []meeting.Todo{
		{ID: "t1", MeetingID: "m1", Action: "envoyer le devis", Actor: "Alice", DueDate: &due, Status: meeting.StatusOpen},
	}

	path := filepath.Join(dir, "out", "cr.xlsx")
	if err := export.FormattedWorkbook(path, meetings, todos); err != nil {
		t.Fatalf("FormattedWorkbook: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	want := "Index,2026-03-11_Weekly,2026-03-11_Weekly_2,2026-03-11_Revue  budget 2026"
	if got := strings.Join(f.GetSheetList(), ","); got != want {
		t.Errorf("sheets = %s, want %s", got, want)
	}

	index, err := f.GetRows(export.SheetIndex)
	if err != nil {
		t.Fatal(err)
	}
	if len(index) != 4 || index[1][0] != "m1" || index[2][5] != "2026-03-11_Weekly_2" {
		t.Errorf("index rows = %v", index)
	}
	if ok, target, _ := f.GetCellHyperLink(export.SheetIndex, "F2"); !ok || !strings.Contains(target, "2026-03-11_Weekly") {
		t.Errorf("index link = %v %q", ok, target)
	}

	cell := func(sheet, ref string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, ref)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
	first := "2026-03-11_Weekly"
	if got := cell(first, "A1"); got != "COMPTE RENDU: Weekly" {
		t.Errorf("title = %q", got)
	}
	if cell(first, "A3") != "Élément" || cell(first, "B3") != "Valeur" {
		t.Error("missing Label/Value header")
	}
	if got := cell(first, "B7"); got != "Alice, Bob" {
		t.Errorf("participants = %q", got)
	}
	if got := cell(first, "B8"); got != "Alice doit envoyer le devis." {
		t.Errorf("text = %q, want the transcript file", got)
	}
	if got := cell(first, "B9"); got != "• envoyer le devis (Acteur: Alice, Échéance: 2026-03-20, Statut: open)" {
		t.Errorf("actions = %q", got)
	}

	second := "2026-03-11_Weekly_2"
	if got := cell(second, "B8"); got != "point rapide" {
		t.Errorf("text = %q, want the summary", got)
	}
	if got := cell(second, "B9"); got != "-" {
		t.Errorf("actions = %q", got)
	}
}

func TestExport_FilterAndFormatted(t *testing.T) {
	store, err := meeting.OpenBadger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	ops, err := store.CreateMeeting(ctx, meeting.Meeting{Title: "Revue", Theme: "Ops", Project: "Alpha"})
	if err != nil {
		t.Fatal(err)
	}
	other, err := store.CreateMeeting(ctx, meeting.Meeting{Title: "Budget", Theme: "Finance", Project: "Alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddTodos(ctx, ops.ID, []meeting.Todo{{Action: "préparer la démo"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddTodos(ctx, other.ID, []meeting.Todo{{Action: "valider le budget"}}); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 3, 11, 10, 4, 5, 0, time.UTC)
	path, err := export.Export(ctx, store, t.TempDir(), now, export.Options{Theme: "ops"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	cr, _ := f.GetRows(export.SheetCR)
	global, _ := f.GetRows(export.SheetTodoGlobal)
	f.Close()
	if len(cr) != 2 || cr[1][0] != ops.ID {
		t.Errorf("CR rows = %v, want only the Ops meeting", cr)
	}
	if len(global) != 2 || global[1][4] != "préparer la démo" {
		t.Errorf("ToDo_Global rows = %v", global)
	}

	path, err = export.Export(ctx, store, t.TempDir(), now, export.Options{Project: "Alpha", Formatted: true})
	if err != nil {
		t.Fatalf("formatted Export: %v", err)
	}
	if filepath.Base(path) != "CR_formates_tableaux_20260311_100405.xlsx" {
		t.Errorf("path = %s", path)
	}
	f, err = excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	index, _ := f.GetRows(export.SheetIndex)
	if len(index) != 3 {
		t.Errorf("index rows = %v, want header + 2 meetings", index)
	}
}
