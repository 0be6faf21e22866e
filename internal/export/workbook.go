// Package export writes meeting reports and their actions to spreadsheets.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/emmett/minutes/internal/meeting"
)

// Sheet names.
const (
	SheetCR         = "CR"
	SheetTodo       = "ToDo"
	SheetTodoGlobal = "ToDo_Global"
)

var (
	crHeader     = []any{"ID", "Date", "Thématique", "Projet", "Titre", "Participants", "Source", "Résumé", "Transcription"}
	todoHeader   = []any{"ID", "Meeting_ID", "Thématique", "Projet", "Action", "Acteur", "Échéance", "Statut"}
	globalHeader = []any{"ID", "Date réunion", "Thématique", "Projet", "Action", "Acteur", "Échéance", "Statut", "Meeting_ID", "Titre"}
)

// Workbook writes meetings to path. The ToDo sheet lists todos belonging to
// those meetings; ToDo_Global lists every open todo in todos.
func Workbook(path string, meetings []meeting.Meeting, todos []meeting.Todo) error {
	f := excelize.NewFile()
	defer f.Close()

	byID := make(map[string]meeting.Meeting, len(meetings))
	for _, m := range meetings {
		byID[m.ID] = m
	}

	if err := f.SetSheetName("Sheet1", SheetCR); err != nil {
		return err
	}
	for _, name := range []string{SheetTodo, SheetTodoGlobal} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	var crRows [][]any
	for _, m := range meetings {
		crRows = append(crRows, []any{
			m.ID, formatDate(&m.Date), m.Theme, m.Project, m.Title,
			strings.Join(m.Participants, ", "), m.Source, m.Summary, m.TranscriptPath,
		})
	}

	var todoRows, globalRows [][]any
	for _, t := range todos {
		m, ok := byID[t.MeetingID]
		if ok {
			todoRows = append(todoRows, []any{
				t.ID, t.MeetingID, m.Theme, m.Project, t.Action, t.Actor, formatDate(t.DueDate), t.Status,
			})
		}
		if t.Status == meeting.StatusOpen {
			var date string
			if ok {
				date = formatDate(&m.Date)
			}
			globalRows = append(globalRows, []any{
				t.ID, date, m.Theme, m.Project, t.Action, t.Actor, formatDate(t.DueDate), t.Status, t.MeetingID, m.Title,
			})
		}
	}

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{SheetCR, crHeader, crRows},
		{SheetTodo, todoHeader, todoRows},
		{SheetTodoGlobal, globalHeader, globalRows},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, header, s.header, s.rows); err != nil {
			return fmt.Errorf("export: sheet %s: %w", s.name, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, style int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}
	return f.AutoFilter(sheet, "A1:"+last, nil)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// Options select what Export writes.
type Options struct {
	// Theme and Project keep only meetings whose theme or project matches,
	// ignoring case. Empty matches everything.
	Theme   string `json:"theme,omitempty"`
	Project string `json:"project,omitempty"`

	// Formatted writes an Index sheet and one Label/Value sheet per meeting
	// instead of the flat tables.
	Formatted bool `json:"formatted,omitempty"`
}

func (o Options) filtered() bool { return o.Theme != "" || o.Project != "" }

func (o Options) match(m meeting.Meeting) bool {
	if o.Theme != "" && !strings.EqualFold(strings.TrimSpace(m.Theme), strings.TrimSpace(o.Theme)) {
		return false
	}
	if o.Project != "" && !strings.EqualFold(strings.TrimSpace(m.Project), strings.TrimSpace(o.Project)) {
		return false
	}
	return true
}

// Export writes the meetings and todos in store selected by opts to a
// timestamped workbook under dir and returns its path.
func Export(ctx context.Context, store meeting.Store, dir string, now time.Time, opts Options) (string, error) {
	all, err := store.ListMeetings(ctx)
	if err != nil {
		return "", err
	}
	todos, err := store.ListTodos(ctx, "")
	if err != nil {
		return "", err
	}

	meetings := all[:0:0]
	keep := make(map[string]bool, len(all))
	for _, m := range all {
		if opts.match(m) {
			meetings = append(meetings, m)
			keep[m.ID] = true
		}
	}
	if opts.filtered() {
		kept := todos[:0:0]
		for _, t := range todos {
			if keep[t.MeetingID] {
				kept = append(kept, t)
			}
		}
		todos = kept
	}

	stamp := now.Format("20060102_150405")
	if opts.Formatted {
		path := filepath.Join(dir, "CR_formates_tableaux_"+stamp+".xlsx")
		if err := FormattedWorkbook(path, meetings, todos); err != nil {
			return "", err
		}
		return path, nil
	}
	path := filepath.Join(dir, "CR_export_"+stamp+".xlsx")
	if err := Workbook(path, meetings, todos); err != nil {
		return "", err
	}
	return path, nil
}
