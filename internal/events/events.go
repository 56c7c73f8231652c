package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "exam-service"
	EventVersion = "1.0"
)

// Event types
const (
	ExamCreated     = "exam.created"
	ExamUpdated     = "exam.updated"
	ExamDeleted     = "exam.deleted"
	ResultSubmitted = "result.submitted"
)

// Event is the envelope written to the message bus
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent stamps data with a fresh id and the current time
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type ExamEvent struct {
	ExamID    uint   `json:"examId"`
	TeacherID string `json:"teacherId"`
	Title     string `json:"title"`
	Subject   string `json:"subject"`
}

type ResultSubmittedEvent struct {
	ResultID       uint    `json:"resultId"`
	ExamID         uint    `json:"examId"`
	StudentID      string  `json:"studentId"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
	Percentage     float64 `json:"percentage"`
	Grade          string  `json:"grade"`
	Passed         bool    `json:"passed"`
}

// EventPublisher delivers domain events. Publishing is best effort:
// callers log failures and never fail the originating request.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
