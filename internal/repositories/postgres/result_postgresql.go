package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type ResultPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewResultPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ResultRepository {
	return &ResultPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (r *ResultPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Create inserts the result with its question results
func (r *ResultPostgreSQL) Create(ctx context.Context, tx *gorm.DB, result *models.Result) error {
	if err := r.getDB(tx).WithContext(ctx).Omit("Exam", "Student").Create(result).Error; err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}

	teacherID := ""
	if result.Exam != nil {
		teacherID = result.Exam.TeacherID
	}
	afterCommit(tx, func() { cache.InvalidateStatsCache(ctx, r.cacheManager, teacherID) })
	return nil
}

func (r *ResultPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Result, error) {
	var result models.Result
	err := r.getDB(tx).WithContext(ctx).
		Preload("QuestionResults", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_results.position ASC")
		}).
		Preload("Exam").
		Preload("Student").
		First(&result, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return &result, nil
}

// LockSubmission takes a transaction scoped advisory lock keyed on (student, exam)
func (r *ResultPostgreSQL) LockSubmission(ctx context.Context, tx *gorm.DB, studentID string, examID uint) error {
	if tx == nil {
		return errors.New("submission lock requires a transaction")
	}

	key := fmt.Sprintf("result:%s:%d", studentID, examID)
	if err := tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("failed to lock submission: %w", err)
	}
	return nil
}

func (r *ResultPostgreSQL) ExistsByStudentAndExam(ctx context.Context, tx *gorm.DB, studentID string, examID uint) (bool, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Result{}).
		Where("student_id = ? AND exam_id = ?", studentID, examID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check existing result: %w", err)
	}
	return count > 0, nil
}

func (r *ResultPostgreSQL) CountByExam(ctx context.Context, tx *gorm.DB, examID uint) (int64, error) {
	count, err := r.helpers.CountResults(ctx, r.getDB(tx), examID)
	if err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}

func (r *ResultPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	query := r.getDB(tx).WithContext(ctx).Model(&models.Result{})
	query = r.helpers.ApplyResultFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	query = r.helpers.ApplyPaginationAndSort(query, resultSortColumns, "completed_at", filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var results []*models.Result
	if err := query.Preload("Exam").Preload("Student").Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list results: %w", err)
	}
	return results, total, nil
}

func (r *ResultPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	filters.StudentID = &studentID
	return r.List(ctx, tx, filters)
}

func (r *ResultPostgreSQL) ListByExam(ctx context.Context, tx *gorm.DB, examID uint, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	filters.ExamID = &examID
	return r.List(ctx, tx, filters)
}
