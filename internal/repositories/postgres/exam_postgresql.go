package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (e *ExamPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

// Create inserts the exam and its questions in one statement batch
func (e *ExamPostgreSQL) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if err := e.getDB(tx).WithContext(ctx).Create(exam).Error; err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	afterCommit(tx, func() { cache.InvalidateStatsCache(ctx, e.cacheManager, exam.TeacherID) })
	return nil
}

// GetByID retrieves an exam with its questions, with caching
func (e *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	var exam models.Exam

	err := e.cacheManager.Exam.CacheOrExecute(ctx, cache.ExamKey(id), &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var dbExam models.Exam
		err := e.getDB(tx).WithContext(ctx).
			Preload("Questions", func(db *gorm.DB) *gorm.DB {
				return db.Order("exam_questions.position ASC")
			}).
			First(&dbExam, id).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get exam: %w", err)
		}
		dbExam.QuestionsCount = len(dbExam.Questions)
		return &dbExam, nil
	})
	if err != nil {
		return nil, err
	}

	return &exam, nil
}

// Update updates scalar exam fields and invalidates cache
func (e *ExamPostgreSQL) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	if err := e.getDB(tx).WithContext(ctx).Model(&models.Exam{}).Where("id = ?", exam.ID).Updates(map[string]interface{}{
		"title":         exam.Title,
		"description":   exam.Description,
		"subject":       exam.Subject,
		"class":         exam.Class,
		"duration":      exam.Duration,
		"total_marks":   exam.TotalMarks,
		"passing_marks": exam.PassingMarks,
		"status":        exam.Status,
		"starts_at":     exam.StartsAt,
		"updated_at":    exam.UpdatedAt,
	}).Error; err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}

	afterCommit(tx, func() { cache.InvalidateExamCache(ctx, e.cacheManager, exam.ID, exam.TeacherID) })
	return nil
}

func (e *ExamPostgreSQL) ReplaceQuestions(ctx context.Context, tx *gorm.DB, examID uint, questions []models.Question) error {
	db := e.getDB(tx).WithContext(ctx)

	if err := db.Where("exam_id = ?", examID).Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("failed to delete exam questions: %w", err)
	}

	if len(questions) > 0 {
		for i := range questions {
			questions[i].ID = 0
			questions[i].ExamID = examID
		}
		if err := db.Create(&questions).Error; err != nil {
			return fmt.Errorf("failed to insert exam questions: %w", err)
		}
	}

	afterCommit(tx, func() { cache.SafeDelete(ctx, e.cacheManager.Exam, cache.ExamKey(examID)) })
	return nil
}

// Delete hard deletes an exam and its questions
func (e *ExamPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := e.getDB(tx).WithContext(ctx)

	var exam models.Exam
	if err := db.Select("id, teacher_id").First(&exam, id).Error; err != nil {
		return fmt.Errorf("failed to get exam before delete: %w", err)
	}

	if err := db.Where("exam_id = ?", id).Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("failed to delete exam questions: %w", err)
	}
	if err := db.Unscoped().Delete(&models.Exam{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}

	afterCommit(tx, func() { cache.InvalidateExamCache(ctx, e.cacheManager, id, exam.TeacherID) })
	return nil
}

// LockForUpdate takes SELECT ... FOR UPDATE on the exam row
func (e *ExamPostgreSQL) LockForUpdate(ctx context.Context, tx *gorm.DB, id uint) error {
	_, err := e.lockRow(ctx, tx, id, "UPDATE")
	return err
}

// LockForShare takes SELECT ... FOR SHARE, which conflicts only with FOR UPDATE
func (e *ExamPostgreSQL) LockForShare(ctx context.Context, tx *gorm.DB, id uint) (time.Time, error) {
	exam, err := e.lockRow(ctx, tx, id, "SHARE")
	if err != nil {
		return time.Time{}, err
	}
	return exam.UpdatedAt, nil
}

func (e *ExamPostgreSQL) lockRow(ctx context.Context, tx *gorm.DB, id uint, strength string) (*models.Exam, error) {
	if tx == nil {
		return nil, errors.New("exam lock requires a transaction")
	}

	var exam models.Exam
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: strength}).
		Select("id, updated_at").
		First(&exam, id).Error; err != nil {
		return nil, fmt.Errorf("failed to lock exam: %w", err)
	}
	return &exam, nil
}

// List retrieves exams with filters and pagination
func (e *ExamPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	query := e.getDB(tx).WithContext(ctx).Model(&models.Exam{})
	query = e.helpers.ApplyExamFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	query = e.helpers.ApplyPaginationAndSort(query, examSortColumns, "created_at", filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var exams []*models.Exam
	if err := query.Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}

	if err := e.fillQuestionCounts(ctx, tx, exams); err != nil {
		return nil, 0, err
	}
	return exams, total, nil
}

func (e *ExamPostgreSQL) fillQuestionCounts(ctx context.Context, tx *gorm.DB, exams []*models.Exam) error {
	if len(exams) == 0 {
		return nil
	}

	ids := make([]uint, len(exams))
	for i, exam := range exams {
		ids[i] = exam.ID
	}

	var rows []struct {
		ExamID uint
		Count  int
	}
	if err := e.getDB(tx).WithContext(ctx).
		Model(&models.Question{}).
		Select("exam_id, COUNT(*) AS count").
		Where("exam_id IN ?", ids).
		Group("exam_id").
		Scan(&rows).Error; err != nil {
		return fmt.Errorf("failed to count exam questions: %w", err)
	}

	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.ExamID] = row.Count
	}
	for _, exam := range exams {
		exam.QuestionsCount = counts[exam.ID]
	}
	return nil
}
