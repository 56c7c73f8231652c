package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// ExamRepository interface for exam and question operations
type ExamRepository interface {
	// Create inserts the exam with its questions
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	// GetByID loads the exam with questions ordered by position
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	// Update saves scalar fields only
	Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	// ReplaceQuestions drops the exam's questions and inserts the given ones
	ReplaceQuestions(ctx context.Context, tx *gorm.DB, examID uint, questions []models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// LockForUpdate holds the exam row exclusively until tx ends. Writers of
	// questions take it so no submission can commit against the old set.
	LockForUpdate(ctx context.Context, tx *gorm.DB, id uint) error
	// LockForShare holds the exam row against LockForUpdate until tx ends and
	// reports the exam's current update time
	LockForShare(ctx context.Context, tx *gorm.DB, id uint) (time.Time, error)

	// List returns exams without questions; QuestionsCount is filled in
	List(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]*models.Exam, int64, error)
}
