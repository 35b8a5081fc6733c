package commands

import (
	"encoding/json"
	"io"
	"strings"

	"campusdual-backend/internal/extract"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

func renderJson(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func renderGrades(out io.Writer, records []extract.GradeRecord) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Module", "Grade", "Passed", "ECTS", "Announced", "Period"})
	for _, record := range records {
		t.AppendRow(table.Row{
			record.Name,
			record.Grade,
			record.OverallPassed.String(),
			record.CreditPoints,
			"",
			record.Period,
		})
		for _, sub := range record.Subgrades {
			retake := ""
			if sub.RetakeLabel != nil {
				retake = " (" + *sub.RetakeLabel + ")"
			}
			t.AppendRow(table.Row{
				"  " + sub.Name + retake,
				sub.Grade,
				sub.Passed.String(),
				"",
				sub.AnnouncedDate,
				sub.Period,
			})
		}
		t.AppendSeparator()
	}
	t.Render()
}

func renderExamOptions(out io.Writer, options []extract.ExamOption) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Exam", "Procedure", "Kind", "Status", "Date", "Room", "Deadline", "Warning"})
	for _, option := range options {
		when := strings.TrimSpace(option.Date + " " + option.Time)
		t.AppendRow(table.Row{
			option.Name,
			option.ProcedureType,
			option.ExamKind,
			string(option.Status),
			when,
			option.Room,
			option.Deadline,
			option.WarningText,
		})
	}
	t.Render()
}

func render(out io.Writer, records any) error {
	if *outputJson {
		return renderJson(out, records)
	}
	switch records := records.(type) {
	case []extract.GradeRecord:
		renderGrades(out, records)
	case []extract.ExamOption:
		renderExamOptions(out, records)
	default:
		return renderJson(out, records)
	}
	return nil
}
