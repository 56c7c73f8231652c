// Package importer reads exam definitions from YAML files.
package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// File is the top level of an exam import document
type File struct {
	Exams []Exam `yaml:"exams"`
}

type Exam struct {
	Title        string     `yaml:"title"`
	Description  string     `yaml:"description"`
	Subject      string     `yaml:"subject"`
	Class        string     `yaml:"class"`
	Duration     int        `yaml:"duration"`
	TotalMarks   int        `yaml:"total_marks"`
	PassingMarks int        `yaml:"passing_marks"`
	Status       string     `yaml:"status"`
	StartsAt     *time.Time `yaml:"starts_at"`
	Questions    []Question `yaml:"questions"`
}

type Question struct {
	Text          string   `yaml:"text"`
	Type          string   `yaml:"type"`
	Options       []string `yaml:"options"`
	CorrectAnswer string   `yaml:"correct_answer"`
	Topic         string   `yaml:"topic"`
	TimeLimit     *int     `yaml:"time_limit"`
}

var ErrNoExams = errors.New("import file contains no exams")

// LoadFile decodes the exams in the YAML file at path
func LoadFile(path string) ([]*validator.ExamCreateRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load decodes exams from r. Unknown keys are rejected.
func Load(r io.Reader) ([]*validator.ExamCreateRequest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoExams
		}
		return nil, fmt.Errorf("failed to decode import file: %w", err)
	}
	if len(file.Exams) == 0 {
		return nil, ErrNoExams
	}

	reqs := make([]*validator.ExamCreateRequest, len(file.Exams))
	for i, e := range file.Exams {
		reqs[i] = e.toRequest()
	}
	return reqs, nil
}

func (e Exam) toRequest() *validator.ExamCreateRequest {
	req := &validator.ExamCreateRequest{
		Title:        strings.TrimSpace(e.Title),
		Description:  optional(e.Description),
		Subject:      strings.TrimSpace(e.Subject),
		Class:        optional(e.Class),
		Duration:     e.Duration,
		TotalMarks:   e.TotalMarks,
		PassingMarks: e.PassingMarks,
		Status:       models.ExamStatus(strings.ToLower(e.Status)),
		StartsAt:     e.StartsAt,
		Questions:    make([]validator.QuestionRequest, len(e.Questions)),
	}
	for i, q := range e.Questions {
		req.Questions[i] = validator.QuestionRequest{
			Text:          q.Text,
			Type:          models.QuestionType(strings.ToLower(q.Type)),
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Topic:         q.Topic,
			TimeLimit:     q.TimeLimit,
		}
	}
	return req
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
