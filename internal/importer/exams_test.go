package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

const sample = `
exams:
  - title: "  Algebra basics "
    subject: Maths
    class: 10A
    duration: 40
    total_marks: 20
    passing_marks: 10
    status: Ongoing
    starts_at: 2026-03-01T09:00:00Z
    questions:
      - text: "x + 2 = 5"
        type: MCQ
        options: ["2", "3", "5"]
        correct_answer: "3"
        topic: Equations
        time_limit: 45
      - text: Define a prime
        type: text
        correct_answer: divisible only by one and itself
        topic: Primes
  - title: Mechanics
    subject: Physics
    duration: 30
    total_marks: 10
`

func TestLoad(t *testing.T) {
	reqs, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("got %d exams, want 2", len(reqs))
	}

	first := reqs[0]
	if first.Title != "Algebra basics" || first.Status != models.ExamOngoing || first.TotalMarks != 20 {
		t.Errorf("first exam = %+v", first)
	}
	if first.Class == nil || *first.Class != "10A" || first.Description != nil {
		t.Errorf("class %v description %v", first.Class, first.Description)
	}
	if first.StartsAt == nil || first.StartsAt.Year() != 2026 {
		t.Errorf("startsAt = %v", first.StartsAt)
	}
	if q := first.Questions[0]; q.Type != models.QuestionMCQ || q.TimeLimit == nil || *q.TimeLimit != 45 || len(q.Options) != 3 {
		t.Errorf("first question = %+v", q)
	}
	if q := first.Questions[1]; q.Type != models.QuestionText || q.TimeLimit != nil {
		t.Errorf("second question = %+v", q)
	}

	second := reqs[1]
	if second.Class != nil || second.Status != "" || len(second.Questions) != 0 {
		t.Errorf("second exam = %+v", second)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty document", input: "", wantErr: ErrNoExams},
		{name: "empty list", input: "exams: []", wantErr: ErrNoExams},
		{name: "unknown key", input: "exams:\n  - titel: typo\n"},
		{name: "wrong type", input: "exams:\n  - duration: long\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
