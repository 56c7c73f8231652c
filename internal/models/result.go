package models

import (
	"time"

	"gorm.io/datatypes"
)

type WeakTopic struct {
	Topic string  `json:"topic"`
	Score float64 `json:"score"`
}

type QuestionResult struct {
	ID         uint   `json:"-" gorm:"primaryKey"`
	ResultID   uint   `json:"-" gorm:"not null;index"`
	QuestionID uint   `json:"questionId" gorm:"not null"`
	Position   int    `json:"position" gorm:"not null"`
	UserAnswer string `json:"userAnswer" gorm:"type:text"`
	IsCorrect  bool   `json:"isCorrect" gorm:"not null"`
	TimeTaken  int    `json:"timeTaken" gorm:"not null;default:0"` // seconds
}

type Result struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	StudentID string `json:"studentId" gorm:"not null;size:36;index:idx_results_student_exam"`
	ExamID    uint   `json:"examId" gorm:"not null;index:idx_results_student_exam"`

	// Scoring
	Score          int                            `json:"score" gorm:"not null"`
	TotalQuestions int                            `json:"totalQuestions" gorm:"not null"`
	Percentage     float64                        `json:"percentage"`
	MarksObtained  float64                        `json:"marksObtained"`
	Grade          string                         `json:"grade" gorm:"size:2"`
	Passed         bool                           `json:"passed"`
	WeakTopics     datatypes.JSONSlice[WeakTopic] `json:"weakTopics" gorm:"type:jsonb"`

	// Timing
	TimeTaken   int       `json:"timeTaken"` // seconds, sum of per-question times
	CompletedAt time.Time `json:"completedAt" gorm:"not null;index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	QuestionResults []QuestionResult `json:"questionResults" gorm:"foreignKey:ResultID;constraint:OnDelete:CASCADE"`
	Student         *User            `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Exam            *Exam            `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
}

func (Result) TableName() string {
	return "results"
}

func (QuestionResult) TableName() string {
	return "question_results"
}
