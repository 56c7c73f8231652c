package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type dashboardRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewDashboardRepository(db *gorm.DB, cacheManager *cache.CacheManager) repositories.DashboardRepository {
	return &dashboardRepository{db: db, cacheManager: cacheManager}
}

func (r *dashboardRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// GetTeacherStats aggregates over the teacher's exams; an empty teacherID covers every exam
func (r *dashboardRepository) GetTeacherStats(ctx context.Context, tx *gorm.DB, teacherID string) (*repositories.TeacherStats, error) {
	var stats repositories.TeacherStats

	err := r.cacheManager.Stats.CacheOrExecute(ctx, cache.TeacherStatsKey(teacherID), &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		db := r.getDB(tx).WithContext(ctx)
		var s repositories.TeacherStats

		exams := db.Model(&models.Exam{})
		if teacherID != "" {
			exams = exams.Where("teacher_id = ?", teacherID)
		}
		if err := exams.Count(&s.TotalExams).Error; err != nil {
			return nil, fmt.Errorf("failed to count exams: %w", err)
		}

		questions := db.Model(&models.Question{}).
			Joins("JOIN exams ON exams.id = exam_questions.exam_id AND exams.deleted_at IS NULL")
		if teacherID != "" {
			questions = questions.Where("exams.teacher_id = ?", teacherID)
		}
		if err := questions.Count(&s.TotalQuestions).Error; err != nil {
			return nil, fmt.Errorf("failed to count questions: %w", err)
		}

		var agg struct {
			TotalResults  int64
			TotalStudents int64
			AverageScore  float64
			PassRate      float64
		}
		results := db.Table("results").
			Select(`COUNT(results.id) AS total_results,
				COUNT(DISTINCT results.student_id) AS total_students,
				COALESCE(AVG(results.percentage), 0) AS average_score,
				COALESCE(AVG(CASE WHEN results.passed THEN 100.0 ELSE 0 END), 0) AS pass_rate`).
			Joins("JOIN exams ON exams.id = results.exam_id AND exams.deleted_at IS NULL")
		if teacherID != "" {
			results = results.Where("exams.teacher_id = ?", teacherID)
		}
		if err := results.Scan(&agg).Error; err != nil {
			return nil, fmt.Errorf("failed to aggregate results: %w", err)
		}

		s.TotalResults = agg.TotalResults
		s.TotalStudents = agg.TotalStudents
		s.AverageScore = agg.AverageScore
		s.PassRate = agg.PassRate
		return &s, nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *dashboardRepository) GetPerformanceBySubject(ctx context.Context, tx *gorm.DB, teacherID string) ([]repositories.SubjectPerformance, error) {
	var rows []repositories.SubjectPerformance

	query := r.getDB(tx).WithContext(ctx).
		Table("exams").
		Select(`exams.subject AS subject,
			COUNT(DISTINCT exams.id) AS exam_count,
			COUNT(results.id) AS result_count,
			COALESCE(AVG(results.percentage), 0) AS average_score,
			COALESCE(AVG(CASE WHEN results.id IS NULL THEN NULL WHEN results.passed THEN 100.0 ELSE 0 END), 0) AS pass_rate`).
		Joins("LEFT JOIN results ON results.exam_id = exams.id").
		Where("exams.deleted_at IS NULL")
	if teacherID != "" {
		query = query.Where("exams.teacher_id = ?", teacherID)
	}

	if err := query.Group("exams.subject").Order("exams.subject ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get performance by subject: %w", err)
	}
	if rows == nil {
		rows = []repositories.SubjectPerformance{}
	}
	return rows, nil
}
