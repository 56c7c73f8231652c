package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/scoring"
)

type dashboardService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		logger: logger,
	}
}

// GetStats covers the caller's own exams; admins see every exam
func (s *dashboardService) GetStats(ctx context.Context, userID string) (*repositories.TeacherStats, error) {
	teacherID, err := s.scope(ctx, userID, "stats")
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.Dashboard().GetTeacherStats(ctx, nil, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard stats: %w", err)
	}
	stats.AverageScore = scoring.Round2(stats.AverageScore)
	stats.PassRate = scoring.Round2(stats.PassRate)

	s.logger.Debug("Dashboard stats computed", "teacher_id", teacherID, "exams", stats.TotalExams, "results", stats.TotalResults)
	return stats, nil
}

func (s *dashboardService) GetPerformanceBySubject(ctx context.Context, userID string) ([]repositories.SubjectPerformance, error) {
	teacherID, err := s.scope(ctx, userID, "performance")
	if err != nil {
		return nil, err
	}

	perf, err := s.repo.Dashboard().GetPerformanceBySubject(ctx, nil, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subject performance: %w", err)
	}
	if perf == nil {
		perf = []repositories.SubjectPerformance{}
	}
	for i := range perf {
		perf[i].AverageScore = scoring.Round2(perf[i].AverageScore)
		perf[i].PassRate = scoring.Round2(perf[i].PassRate)
	}
	return perf, nil
}

// scope returns the teacher id to aggregate over, or "" for all exams
func (s *dashboardService) scope(ctx context.Context, userID, action string) (string, error) {
	user, err := requireRole(ctx, s.repo, userID, "dashboard", action, models.RoleTeacher)
	if err != nil {
		return "", err
	}
	if user.Role == models.RoleAdmin {
		return "", nil
	}
	return user.ID, nil
}
