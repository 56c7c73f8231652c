package validator

import (
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// RegisterRequest creates a local account
type RegisterRequest struct {
	Name       string          `json:"name" validate:"required,min=1,max=100"`
	Identifier string          `json:"identifier" validate:"required,min=3,max=50"`
	Email      *string         `json:"email" validate:"omitempty,email"`
	Password   string          `json:"password" validate:"required,min=6,max=72"`
	Role       models.UserRole `json:"role" validate:"required,user_role"`
	Class      *string         `json:"class" validate:"omitempty,max=50"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
	Class *string `json:"class" validate:"omitempty,max=50"`
}

// ExamCreateRequest represents the request structure for creating exams
type ExamCreateRequest struct {
	Title        string            `json:"title" validate:"required,exam_title"`
	Description  *string           `json:"description" validate:"omitempty,max=1000"`
	Subject      string            `json:"subject" validate:"required,min=1,max=100"`
	Class        *string           `json:"class" validate:"omitempty,max=50"`
	Duration     int               `json:"duration" validate:"required,exam_duration"`
	TotalMarks   int               `json:"totalMarks" validate:"required,min=1,max=1000"`
	PassingMarks int               `json:"passingMarks" validate:"min=0"`
	Status       models.ExamStatus `json:"status" validate:"omitempty,exam_status"`
	StartsAt     *time.Time        `json:"startsAt"`
	Questions    []QuestionRequest `json:"questions" validate:"max=200,dive"`
}

// ExamUpdateRequest is a partial update. A nil Questions leaves the questions untouched.
type ExamUpdateRequest struct {
	Title        *string            `json:"title" validate:"omitempty,exam_title"`
	Description  *string            `json:"description" validate:"omitempty,max=1000"`
	Subject      *string            `json:"subject" validate:"omitempty,min=1,max=100"`
	Class        *string            `json:"class" validate:"omitempty,max=50"`
	Duration     *int               `json:"duration" validate:"omitempty,exam_duration"`
	TotalMarks   *int               `json:"totalMarks" validate:"omitempty,min=1,max=1000"`
	PassingMarks *int               `json:"passingMarks" validate:"omitempty,min=0"`
	Status       *models.ExamStatus `json:"status" validate:"omitempty,exam_status"`
	StartsAt     *time.Time         `json:"startsAt"`
	Questions    []QuestionRequest  `json:"questions" validate:"omitempty,max=200,dive"`
}

type QuestionRequest struct {
	Text          string              `json:"text" validate:"required,min=1,max=2000"`
	Type          models.QuestionType `json:"type" validate:"required,question_type"`
	Options       []string            `json:"options" validate:"omitempty,max=10,dive,required,max=500"`
	CorrectAnswer string              `json:"correctAnswer" validate:"required,max=2000"`
	Topic         string              `json:"topic" validate:"required,min=1,max=100"`
	TimeLimit     *int                `json:"timeLimit" validate:"omitempty,min=5,max=3600"`
}

// SubmitResultRequest carries one student's answers aligned by question position
type SubmitResultRequest struct {
	ExamID    uint     `json:"examId" validate:"required"`
	Answers   []string `json:"answers" validate:"required,max=500"`
	TimeTaken []int    `json:"timeTaken" validate:"omitempty,max=500,dive,min=0"`
}
