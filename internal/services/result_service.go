package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/scoring"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type resultService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	config    config.ExamConfig
	now       func() time.Time
}

func NewResultService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator, cfg config.ExamConfig) ResultService {
	return &resultService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		config:    cfg,
		now:       time.Now,
	}
}

// Submit scores the answers against the stored exam and persists the result.
// Order matters: the role gate runs before the payload is looked at, and the
// exam must exist before anything is scored.
func (s *resultService) Submit(ctx context.Context, req *SubmitResultRequest, studentID string) (*models.Result, error) {
	user, err := getUser(ctx, s.repo, studentID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleStudent {
		return nil, NewPermissionError(studentID, req.ExamID, "result", "submit", "only students can submit exams")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := getExam(ctx, s.repo, req.ExamID)
	if err != nil {
		return nil, err
	}

	evaluation := scoring.Evaluate(exam, req.Answers, req.TimeTaken)
	result := &models.Result{
		StudentID:   studentID,
		ExamID:      exam.ID,
		Exam:        exam,
		CompletedAt: s.now().UTC(),
	}
	evaluation.Apply(result)

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Result().LockSubmission(ctx, tx, studentID, exam.ID); err != nil {
			return fmt.Errorf("failed to lock submission: %w", err)
		}
		updatedAt, err := s.repo.Exam().LockForShare(ctx, tx, exam.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrExamNotFound
			}
			return fmt.Errorf("failed to lock exam: %w", err)
		}
		// Scored against a version an edit has since replaced
		if !updatedAt.Equal(exam.UpdatedAt) {
			return ErrExamChanged
		}

		if !s.config.AllowResubmission {
			exists, err := s.repo.Result().ExistsByStudentAndExam(ctx, tx, studentID, exam.ID)
			if err != nil {
				return fmt.Errorf("failed to check previous submission: %w", err)
			}
			if exists {
				return ErrAlreadySubmitted
			}
		}

		if err := s.repo.Result().Create(ctx, tx, result); err != nil {
			return fmt.Errorf("failed to create result: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exam submitted",
		"result_id", result.ID,
		"exam_id", exam.ID,
		"student_id", studentID,
		"score", result.Score,
		"total_questions", result.TotalQuestions,
		"passed", result.Passed)

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.ResultSubmitted, events.ResultSubmittedEvent{
		ResultID:       result.ID,
		ExamID:         result.ExamID,
		StudentID:      result.StudentID,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		Percentage:     result.Percentage,
		Grade:          result.Grade,
		Passed:         result.Passed,
	}))

	return redactResult(user, result), nil
}

func (s *resultService) GetByID(ctx context.Context, id uint, userID string) (*models.Result, error) {
	user, err := getUser(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.Result().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	if !isTeacher(user) && result.StudentID != user.ID {
		return nil, NewPermissionError(userID, id, "result", "read", "result belongs to another student")
	}

	return redactResult(user, result), nil
}

// ===== LIST OPERATIONS =====

func (s *resultService) ListAll(ctx context.Context, filters repositories.ResultFilters, userID string) (*ResultListResponse, error) {
	if _, err := requireRole(ctx, s.repo, userID, "result", "list", models.RoleTeacher); err != nil {
		return nil, err
	}

	filters.Limit, filters.Offset = repositories.NormalizePagination(filters.Limit, filters.Offset)
	results, total, err := s.repo.Result().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return newResultList(results, total, filters), nil
}

func (s *resultService) ListByStudent(ctx context.Context, studentID string, filters repositories.ResultFilters, userID string) (*ResultListResponse, error) {
	user, err := getUser(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	if !isTeacher(user) && user.ID != studentID {
		return nil, NewPermissionError(userID, 0, "result", "list", "cannot read another student's results")
	}

	filters.Limit, filters.Offset = repositories.NormalizePagination(filters.Limit, filters.Offset)
	results, total, err := s.repo.Result().ListByStudent(ctx, nil, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list student results: %w", err)
	}
	for i, r := range results {
		results[i] = redactResult(user, r)
	}
	return newResultList(results, total, filters), nil
}

func (s *resultService) ListByExam(ctx context.Context, examID uint, filters repositories.ResultFilters, userID string) (*ResultListResponse, error) {
	user, err := requireRole(ctx, s.repo, userID, "result", "list", models.RoleTeacher)
	if err != nil {
		return nil, err
	}

	exam, err := getExam(ctx, s.repo, examID)
	if err != nil {
		return nil, err
	}
	if !ownsExam(user, exam) {
		return nil, NewPermissionError(userID, examID, "exam", "list_results", "not owner of exam")
	}

	filters.Limit, filters.Offset = repositories.NormalizePagination(filters.Limit, filters.Offset)
	results, total, err := s.repo.Result().ListByExam(ctx, nil, examID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exam results: %w", err)
	}
	return newResultList(results, total, filters), nil
}

func newResultList(results []*models.Result, total int64, filters repositories.ResultFilters) *ResultListResponse {
	if results == nil {
		results = []*models.Result{}
	}
	return &ResultListResponse{
		Results: results,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}
}
