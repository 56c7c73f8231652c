package export

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

func TestWriteResults(t *testing.T) {
	completed := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	results := []*models.Result{
		{
			StudentID:      "s1",
			Student:        &models.User{Name: "Asha", Identifier: "R-001"},
			Score:          3,
			TotalQuestions: 4,
			Percentage:     75,
			Grade:          "B+",
			Passed:         true,
			WeakTopics:     []models.WeakTopic{{Topic: "Vectors", Score: 0}, {Topic: "Limits", Score: 0.33}},
			TimeTaken:      410,
			CompletedAt:    completed,
		},
		{
			StudentID:      "s2",
			Score:          0,
			TotalQuestions: 4,
			Grade:          "F",
			CompletedAt:    completed,
		},
	}

	var buf bytes.Buffer
	if err := WriteResults(&buf, results); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{SheetName}) {
		t.Fatalf("sheets = %v, want [%s]", got, SheetName)
	}

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if !reflect.DeepEqual(rows[0], Header) {
		t.Errorf("header = %v, want %v", rows[0], Header)
	}

	want := []string{"Asha", "R-001", "3", "4", "75", "B+", "Yes", "Vectors, Limits", "410", "2025-03-01T09:30:00Z"}
	if !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row 1 = %v, want %v", rows[1], want)
	}

	// no student preloaded: the id stands in for the name
	if rows[2][0] != "s2" || rows[2][6] != "No" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestWriteResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, nil); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, _ := f.GetRows(SheetName)
	if len(rows) != 1 {
		t.Errorf("got %d rows, want header only", len(rows))
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		title string
		id    uint
		want  string
	}{
		{"Algebra Midterm", 7, "algebra-midterm-7-results.xlsx"},
		{"  Physics: Unit 2!", 12, "physics--unit-2-12-results.xlsx"},
		{"???", 3, "exam-3-results.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := FileName(&models.Exam{ID: tt.id, Title: tt.title}); got != tt.want {
				t.Errorf("FileName() = %s, want %s", got, tt.want)
			}
		})
	}
}
