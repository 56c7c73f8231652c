package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// CountResults counts results submitted for an exam
func (h *SharedHelpers) CountResults(ctx context.Context, db *gorm.DB, examID uint) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Result{}).
		Where("exam_id = ?", examID).
		Count(&count).Error
	return count, err
}

// ApplyExamFilters applies common filters to exam queries
func (h *SharedHelpers) ApplyExamFilters(query *gorm.DB, filters repositories.ExamFilters) *gorm.DB {
	if filters.Subject != nil {
		query = query.Where("exams.subject = ?", *filters.Subject)
	}
	if filters.Class != nil {
		if filters.IncludeUnassigned {
			query = query.Where("(exams.class = ? OR exams.class IS NULL)", *filters.Class)
		} else {
			query = query.Where("exams.class = ?", *filters.Class)
		}
	}
	if filters.Status != nil {
		query = query.Where("exams.status = ?", *filters.Status)
	}
	if filters.TeacherID != nil {
		query = query.Where("exams.teacher_id = ?", *filters.TeacherID)
	}
	return query
}

// ApplyResultFilters applies common filters to result queries
func (h *SharedHelpers) ApplyResultFilters(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	if filters.ExamID != nil {
		query = query.Where("results.exam_id = ?", *filters.ExamID)
	}
	if filters.StudentID != nil {
		query = query.Where("results.student_id = ?", *filters.StudentID)
	}
	if filters.TeacherID != nil {
		query = query.Where("results.exam_id IN (?)",
			query.Session(&gorm.Session{NewDB: true}).
				Model(&models.Exam{}).
				Select("id").
				Where("teacher_id = ?", *filters.TeacherID))
	}
	if filters.Passed != nil {
		query = query.Where("results.passed = ?", *filters.Passed)
	}
	if filters.DateFrom != nil {
		query = query.Where("results.completed_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("results.completed_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection.
// allowed maps accepted sortBy values to qualified column names.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, allowed map[string]string, defaultSort, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := allowed[sortBy]
	if !ok {
		column = allowed[defaultSort]
	}

	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}

	query = query.Order(column + " " + sortOrder)

	limit, offset = repositories.NormalizePagination(limit, offset)
	return query.Limit(limit).Offset(offset)
}

var examSortColumns = map[string]string{
	"created_at": "exams.created_at",
	"createdAt":  "exams.created_at",
	"title":      "exams.title",
	"subject":    "exams.subject",
	"starts_at":  "exams.starts_at",
	"startsAt":   "exams.starts_at",
	"status":     "exams.status",
	"id":         "exams.id",
}

var resultSortColumns = map[string]string{
	"completed_at": "results.completed_at",
	"completedAt":  "results.completed_at",
	"percentage":   "results.percentage",
	"score":        "results.score",
	"id":           "results.id",
}
