package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExamStatus string

const (
	ExamUpcoming  ExamStatus = "upcoming"
	ExamOngoing   ExamStatus = "ongoing"
	ExamCompleted ExamStatus = "completed"
)

type QuestionType string

const (
	QuestionMCQ  QuestionType = "mcq"
	QuestionText QuestionType = "text"
)

// Default per-question time limits in seconds
const (
	DefaultMCQTimeLimit  = 120
	DefaultTextTimeLimit = 300
)

// DefaultTimeLimit returns the time limit applied when a question omits one
func DefaultTimeLimit(t QuestionType) int {
	if t == QuestionText {
		return DefaultTextTimeLimit
	}
	return DefaultMCQTimeLimit
}

type Exam struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Title        string     `json:"title" gorm:"not null;size:200;index"`
	Description  *string    `json:"description,omitempty" gorm:"type:text"`
	Subject      string     `json:"subject" gorm:"not null;size:100;index"`
	Class        *string    `json:"class,omitempty" gorm:"size:20;index"`
	TeacherID    string     `json:"teacherId" gorm:"not null;index;size:36"`
	Duration     int        `json:"duration" gorm:"not null"` // minutes
	TotalMarks   int        `json:"totalMarks" gorm:"not null"`
	PassingMarks int        `json:"passingMarks" gorm:"not null"`
	Status       ExamStatus `json:"status" gorm:"size:20;default:upcoming;index"`
	StartsAt     *time.Time `json:"startsAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
	Teacher   *User      `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questionsCount" gorm:"-"`
}

type Question struct {
	ID            uint                        `json:"id" gorm:"primaryKey"`
	ExamID        uint                        `json:"examId" gorm:"not null;index"`
	Position      int                         `json:"position" gorm:"not null"`
	Text          string                      `json:"text" gorm:"type:text;not null"`
	Type          QuestionType                `json:"type" gorm:"size:10;not null"`
	Options       datatypes.JSONSlice[string] `json:"options,omitempty" gorm:"type:jsonb"`
	CorrectAnswer string                      `json:"correctAnswer,omitempty" gorm:"type:text;not null"`
	Topic         string                      `json:"topic" gorm:"size:100;not null;index"`
	TimeLimit     int                         `json:"timeLimit" gorm:"not null"` // seconds
}

func (Exam) TableName() string {
	return "exams"
}

func (Question) TableName() string {
	return "exam_questions"
}

// ForStudent returns a copy of the exam with every correct answer blanked
func (e *Exam) ForStudent() *Exam {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Questions = make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		q.CorrectAnswer = ""
		cp.Questions[i] = q
	}
	return &cp
}
