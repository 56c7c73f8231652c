package repositories

import (
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	Subject   *string            `json:"subject"`
	Class     *string            `json:"class"`
	Status    *models.ExamStatus `json:"status"`
	TeacherID *string            `json:"teacherId"`
	// IncludeUnassigned also matches exams with no class when Class is set
	IncludeUnassigned bool   `json:"-"`
	Limit             int    `json:"limit"`
	Offset            int    `json:"offset"`
	SortBy            string `json:"sortBy"`    // "created_at", "title", "starts_at", "subject"
	SortOrder         string `json:"sortOrder"` // "asc", "desc"
}

type ResultFilters struct {
	ExamID    *uint      `json:"examId"`
	StudentID *string    `json:"studentId"`
	TeacherID *string    `json:"teacherId"`
	Passed    *bool      `json:"passed"`
	DateFrom  *time.Time `json:"dateFrom"`
	DateTo    *time.Time `json:"dateTo"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sortBy"` // "completed_at", "percentage", "score"
	SortOrder string     `json:"sortOrder"`
}

// ===== SHARED STATISTICS STRUCTS =====

type TeacherStats struct {
	TotalExams     int64   `json:"totalExams"`
	TotalQuestions int64   `json:"totalQuestions"`
	TotalResults   int64   `json:"totalResults"`
	TotalStudents  int64   `json:"totalStudents"`
	AverageScore   float64 `json:"averageScore"`
	PassRate       float64 `json:"passRate"`
}

type SubjectPerformance struct {
	Subject      string  `json:"subject"`
	ExamCount    int64   `json:"examCount"`
	ResultCount  int64   `json:"resultCount"`
	AverageScore float64 `json:"averageScore"`
	PassRate     float64 `json:"passRate"`
}

// NormalizePagination clamps limit and offset to sane values
func NormalizePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
