package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// ResultRepository interface for submitted results
type ResultRepository interface {
	// Create inserts the result with its question results
	Create(ctx context.Context, tx *gorm.DB, result *models.Result) error
	// GetByID loads the result with question results, exam and student
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Result, error)

	// LockSubmission serializes submissions of one student for one exam
	// until the surrounding transaction ends
	LockSubmission(ctx context.Context, tx *gorm.DB, studentID string, examID uint) error
	ExistsByStudentAndExam(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (bool, error)
	CountByExam(ctx context.Context, tx *gorm.DB, examID uint) (int64, error)

	// Lists preload Exam and Student but not question results
	List(ctx context.Context, tx *gorm.DB, filters ResultFilters) ([]*models.Result, int64, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters ResultFilters) ([]*models.Result, int64, error)
	ListByExam(ctx context.Context, tx *gorm.DB, examID uint, filters ResultFilters) ([]*models.Result, int64, error)
}
