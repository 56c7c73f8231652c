package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/SAP-F-2025/exam-service/internal/export"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

func (s *exportService) ExportExamResults(ctx context.Context, examID uint, userID string, w io.Writer) (string, error) {
	user, err := requireRole(ctx, s.repo, userID, "exam", "export", models.RoleTeacher)
	if err != nil {
		return "", err
	}

	exam, err := getExam(ctx, s.repo, examID)
	if err != nil {
		return "", err
	}
	if !ownsExam(user, exam) {
		return "", NewPermissionError(userID, examID, "exam", "export", "not owner of exam")
	}

	filters := repositories.ResultFilters{SortBy: "completed_at", SortOrder: "asc", Limit: 100}
	var results []*models.Result
	for {
		page, total, err := s.repo.Result().ListByExam(ctx, nil, examID, filters)
		if err != nil {
			return "", fmt.Errorf("failed to list exam results: %w", err)
		}
		results = append(results, page...)
		filters.Offset += len(page)
		if len(page) == 0 || int64(filters.Offset) >= total {
			break
		}
	}

	if err := export.WriteResults(w, results); err != nil {
		return "", err
	}

	s.logger.Info("Exam results exported", "exam_id", examID, "rows", len(results))
	return export.FileName(exam), nil
}
