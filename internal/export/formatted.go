package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/emmett/minutes/internal/meeting"
)

// SheetIndex lists every meeting of a formatted workbook with a link to its
// sheet.
const SheetIndex = "Index"

const maxSheetName = 31

var indexHeader = []any{"MeetingID", "Date", "Thématique", "Projet", "Titre", "Feuille"}

type formatStyles struct {
	bold, title, label, head, value, link int
}

func newFormatStyles(f *excelize.File) (formatStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "B7C1D6", Style: 1},
		{Type: "right", Color: "B7C1D6", Style: 1},
		{Type: "top", Color: "B7C1D6", Style: 1},
		{Type: "bottom", Color: "B7C1D6", Style: 1},
	}
	wrapTop := &excelize.Alignment{WrapText: true, Vertical: "top"}

	var st formatStyles
	var err error
	styles := []struct {
		dst *int
		def *excelize.Style
	}{
		{&st.bold, &excelize.Style{Font: &excelize.Font{Bold: true}}},
		{&st.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}},
		{&st.label, &excelize.Style{Font: &excelize.Font{Bold: true}, Alignment: wrapTop, Border: border}},
		{&st.head, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Alignment: wrapTop,
			Border:    border,
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6EEF9"}},
		}},
		{&st.value, &excelize.Style{Alignment: wrapTop, Border: border}},
		{&st.link, &excelize.Style{Font: &excelize.Font{Color: "1265BE", Underline: "single"}}},
	}
	for _, s := range styles {
		if *s.dst, err = f.NewStyle(s.def); err != nil {
			return st, err
		}
	}
	return st, nil
}

// FormattedWorkbook writes one sheet per meeting holding a two column
// Label/Value table (date, theme, project, participants, transcript text
// and actions), plus an Index sheet linking to each of them. The text is
// read from the transcript file when it exists, the summary otherwise.
func FormattedWorkbook(path string, meetings []meeting.Meeting, todos []meeting.Todo) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetIndex); err != nil {
		return err
	}
	st, err := newFormatStyles(f)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetIndex, "A1", &indexHeader); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetIndex, "A1", "F1", st.bold); err != nil {
		return err
	}

	byMeeting := make(map[string][]meeting.Todo)
	for _, t := range todos {
		byMeeting[t.MeetingID] = append(byMeeting[t.MeetingID], t)
	}

	used := map[string]bool{strings.ToLower(SheetIndex): true}
	for i, m := range meetings {
		name := uniqueSheetName(formatDate(&m.Date)+"_"+m.Title, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export: sheet %s: %w", name, err)
		}
		if err := writeReport(f, name, st, m, byMeeting[m.ID]); err != nil {
			return fmt.Errorf("export: sheet %s: %w", name, err)
		}

		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []any{m.ID, formatDate(&m.Date), m.Theme, m.Project, m.Title, name}
		if err := f.SetSheetRow(SheetIndex, cell, &values); err != nil {
			return err
		}
		link, _ := excelize.CoordinatesToCellName(6, row)
		if err := f.SetCellHyperLink(SheetIndex, link, quoteSheet(name)+"!A1", "Location"); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetIndex, link, link, st.link); err != nil {
			return err
		}
	}

	for col, width := range map[string]float64{"A": 38, "B": 12, "C": 24, "D": 24, "E": 50, "F": 26} {
		if err := f.SetColWidth(SheetIndex, col, col, width); err != nil {
			return err
		}
	}
	if err := freezeAbove(f, SheetIndex, 2); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

func writeReport(f *excelize.File, sheet string, st formatStyles, m meeting.Meeting, todos []meeting.Todo) error {
	if err := f.MergeCell(sheet, "A1", "B1"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A1", "COMPTE RENDU: "+m.Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", st.title); err != nil {
		return err
	}

	head := []any{"Élément", "Valeur"}
	if err := f.SetSheetRow(sheet, "A3", &head); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A3", "B3", st.head); err != nil {
		return err
	}

	rows := [][2]string{
		{"Date", formatDate(&m.Date)},
		{"Thématique", m.Theme},
		{"Projet", m.Project},
		{"Participants", strings.Join(m.Participants, ", ")},
		{"Synthèse", reportText(m)},
		{"Actions", bullets(todos)},
	}
	for i, r := range rows {
		n := i + 4
		label := fmt.Sprintf("A%d", n)
		value := fmt.Sprintf("B%d", n)
		if err := f.SetCellValue(sheet, label, r[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, value, r[1]); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, label, label, st.label); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, value, value, st.value); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", 100); err != nil {
		return err
	}
	return freezeAbove(f, sheet, 4)
}

// reportText is the transcript file content, or the summary when the file
// cannot be read.
func reportText(m meeting.Meeting) string {
	if m.TranscriptPath != "" {
		if data, err := os.ReadFile(m.TranscriptPath); err == nil && strings.TrimSpace(string(data)) != "" {
			return string(data)
		}
	}
	return m.Summary
}

func bullets(todos []meeting.Todo) string {
	if len(todos) == 0 {
		return "-"
	}
	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	lines := make([]string, 0, len(todos))
	for _, t := range todos {
		lines = append(lines, fmt.Sprintf("• %s (Acteur: %s, Échéance: %s, Statut: %s)",
			t.Action, orDash(t.Actor), orDash(formatDate(t.DueDate)), t.Status))
	}
	return strings.Join(lines, "\n")
}

func freezeAbove(f *excelize.File, sheet string, row int) error {
	top := fmt.Sprintf("A%d", row)
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      row - 1,
		TopLeftCell: top,
		ActivePane:  "bottomLeft",
	})
}

var sheetNameReplacer = strings.NewReplacer(
	"[", " ", "]", " ", ":", " ", "*", " ", "?", " ", "/", " ", `\`, " ", "'", " ",
)

// uniqueSheetName makes name a valid sheet name not yet in used, and
// records it.
func uniqueSheetName(name string, used map[string]bool) string {
	base := truncateRunes(strings.TrimSpace(sheetNameReplacer.Replace(name)), maxSheetName)
	if base == "" {
		base = "CR"
	}
	out := base
	for n := 2; used[strings.ToLower(out)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		out = truncateRunes(base, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	used[strings.ToLower(out)] = true
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

func quoteSheet(name string) string {
	return "'" + name + "'"
}
