// Package export renders exam results as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

const SheetName = "Results"

var Header = []string{
	"Student",
	"Identifier",
	"Score",
	"Total Questions",
	"Percentage",
	"Grade",
	"Passed",
	"Weak Topics",
	"Time Taken (s)",
	"Completed At",
}

// FileName is the suggested download name for an exam's export
func FileName(exam *models.Exam) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, exam.Title)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "exam"
	}
	return fmt.Sprintf("%s-%d-results.xlsx", slug, exam.ID)
}

// WriteResults writes one row per result under a bold header row
func WriteResults(w io.Writer, results []*models.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Header))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range results {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := resultRow(r)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", lastCol, 16); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func resultRow(r *models.Result) []interface{} {
	var name, identifier string
	if r.Student != nil {
		name = r.Student.Name
		identifier = r.Student.Identifier
	} else {
		name = r.StudentID
	}

	topics := make([]string, 0, len(r.WeakTopics))
	for _, wt := range r.WeakTopics {
		topics = append(topics, wt.Topic)
	}

	passed := "No"
	if r.Passed {
		passed = "Yes"
	}

	return []interface{}{
		name,
		identifier,
		r.Score,
		r.TotalQuestions,
		r.Percentage,
		r.Grade,
		passed,
		strings.Join(topics, ", "),
		r.TimeTaken,
		r.CompletedAt.UTC().Format(time.RFC3339),
	}
}
