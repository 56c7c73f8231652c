package repositories

import (
	"context"

	"gorm.io/gorm"
)

// DashboardRepository interface for teacher analytics
type DashboardRepository interface {
	GetTeacherStats(ctx context.Context, tx *gorm.DB, teacherID string) (*TeacherStats, error)
	GetPerformanceBySubject(ctx context.Context, tx *gorm.DB, teacherID string) ([]SubjectPerformance, error)
}
