package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewExamService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) ExamService {
	return &examService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		now:       time.Now,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *examService) Create(ctx context.Context, req *CreateExamRequest, teacherID string) (*ExamResponse, error) {
	s.logger.Info("Creating exam", "teacher_id", teacherID, "title", req.Title)

	user, err := requireRole(ctx, s.repo, teacherID, "exam", "create", models.RoleTeacher)
	if err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateExamCreate(req); len(errs) > 0 {
		return nil, errs
	}

	exam := buildExam(req, teacherID)
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Exam().Create(ctx, tx, exam); err != nil {
			return fmt.Errorf("failed to create exam: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exam created successfully", "exam_id", exam.ID, "questions", len(exam.Questions))
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.ExamCreated, examEvent(exam)))

	return s.buildExamResponse(ctx, exam, user), nil
}

func (s *examService) GetByID(ctx context.Context, id uint, userID string) (*ExamResponse, error) {
	user, err := getUser(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	exam, err := getExam(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	return s.buildExamResponse(ctx, exam, user), nil
}

func (s *examService) Update(ctx context.Context, id uint, req *UpdateExamRequest, userID string) (*ExamResponse, error) {
	s.logger.Info("Updating exam", "exam_id", id, "user_id", userID)

	user, err := requireRole(ctx, s.repo, userID, "exam", "update", models.RoleTeacher)
	if err != nil {
		return nil, err
	}

	exam, err := getExam(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !ownsExam(user, exam) {
		return nil, NewPermissionError(userID, id, "exam", "update", "not owner of exam")
	}

	if errs := s.validator.GetBusinessValidator().ValidateExamUpdate(req, exam); len(errs) > 0 {
		return nil, errs
	}

	replaceQuestions := req.Questions != nil
	applyExamUpdate(exam, req)
	exam.UpdatedAt = s.now().UTC().Truncate(time.Microsecond)

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Exam().LockForUpdate(ctx, tx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrExamNotFound
			}
			return fmt.Errorf("failed to lock exam: %w", err)
		}
		if replaceQuestions {
			count, err := s.repo.Result().CountByExam(ctx, tx, id)
			if err != nil {
				return fmt.Errorf("failed to count results: %w", err)
			}
			if count > 0 {
				return NewBusinessRuleError(
					"EXAM-HAS-SUBMISSIONS",
					"questions cannot change once results exist",
					map[string]interface{}{"exam_id": id, "results": count},
				).WithCause(ErrExamHasSubmissions)
			}
		}

		if err := s.repo.Exam().Update(ctx, tx, exam); err != nil {
			return fmt.Errorf("failed to update exam: %w", err)
		}
		if replaceQuestions {
			if err := s.repo.Exam().ReplaceQuestions(ctx, tx, id, buildQuestions(req.Questions)); err != nil {
				return fmt.Errorf("failed to replace questions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := getExam(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exam updated successfully", "exam_id", id, "questions_replaced", replaceQuestions)
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.ExamUpdated, examEvent(updated)))

	return s.buildExamResponse(ctx, updated, user), nil
}

func (s *examService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting exam", "exam_id", id, "user_id", userID)

	user, err := requireRole(ctx, s.repo, userID, "exam", "delete", models.RoleTeacher)
	if err != nil {
		return err
	}

	exam, err := getExam(ctx, s.repo, id)
	if err != nil {
		return err
	}
	if !ownsExam(user, exam) {
		return NewPermissionError(userID, id, "exam", "delete", "not owner of exam")
	}

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Exam().LockForUpdate(ctx, tx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrExamNotFound
			}
			return fmt.Errorf("failed to lock exam: %w", err)
		}
		count, err := s.repo.Result().CountByExam(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to count results: %w", err)
		}
		if errs := s.validator.GetBusinessValidator().ValidateDeletePermission(count); len(errs) > 0 {
			return NewBusinessRuleError(
				"EXAM-HAS-SUBMISSIONS",
				errs[0].Message,
				map[string]interface{}{"exam_id": id, "results": count},
			).WithCause(ErrExamHasSubmissions)
		}
		if err := s.repo.Exam().Delete(ctx, tx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrExamNotFound
			}
			return fmt.Errorf("failed to delete exam: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Exam deleted successfully", "exam_id", id)
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.ExamDeleted, examEvent(exam)))
	return nil
}

// ===== LIST OPERATIONS =====

func (s *examService) List(ctx context.Context, filters repositories.ExamFilters, userID string) (*ExamListResponse, error) {
	user, err := getUser(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	// Students only browse exams of their class plus unassigned ones
	if user.Role == models.RoleStudent && user.Class != nil && *user.Class != "" {
		filters.Class = user.Class
		filters.IncludeUnassigned = true
	}
	filters.Limit, filters.Offset = repositories.NormalizePagination(filters.Limit, filters.Offset)

	exams, total, err := s.repo.Exam().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	out := make([]*ExamResponse, 0, len(exams))
	for _, exam := range exams {
		out = append(out, s.buildExamResponse(ctx, exam, user))
	}

	return &ExamListResponse{
		Exams:  out,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

// ===== IMPORT =====

func (s *examService) Import(ctx context.Context, reqs []*CreateExamRequest, teacherID string) ([]*models.Exam, error) {
	if _, err := requireRole(ctx, s.repo, teacherID, "exam", "import", models.RoleTeacher); err != nil {
		return nil, err
	}

	var all ValidationErrors
	for i, req := range reqs {
		for _, e := range s.validator.GetBusinessValidator().ValidateExamCreate(req) {
			e.Field = fmt.Sprintf("exams[%d].%s", i, e.Field)
			all = append(all, e)
		}
	}
	if len(all) > 0 {
		return nil, all
	}

	exams := make([]*models.Exam, 0, len(reqs))
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		for _, req := range reqs {
			exam := buildExam(req, teacherID)
			if err := s.repo.Exam().Create(ctx, tx, exam); err != nil {
				return fmt.Errorf("failed to create exam %q: %w", req.Title, err)
			}
			exams = append(exams, exam)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, exam := range exams {
		publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.ExamCreated, examEvent(exam)))
	}
	s.logger.Info("Exams imported", "teacher_id", teacherID, "count", len(exams))
	return exams, nil
}

// ===== HELPERS =====

func (s *examService) buildExamResponse(ctx context.Context, exam *models.Exam, user *models.User) *ExamResponse {
	resp := &ExamResponse{Exam: exam}

	if ownsExam(user, exam) {
		resp.CanEdit = true
		resp.CanDelete = true
		return resp
	}

	if user.Role == models.RoleStudent {
		resp.Exam = exam.ForStudent()
		if exam.Status != models.ExamCompleted {
			submitted, err := s.repo.Result().ExistsByStudentAndExam(ctx, nil, user.ID, exam.ID)
			if err != nil {
				s.logger.Warn("Failed to check submission", "exam_id", exam.ID, "error", err)
			}
			resp.CanSubmit = err == nil && !submitted
		}
	}
	return resp
}

func buildExam(req *CreateExamRequest, teacherID string) *models.Exam {
	status := req.Status
	if status == "" {
		status = models.ExamUpcoming
	}
	return &models.Exam{
		Title:        req.Title,
		Description:  req.Description,
		Subject:      req.Subject,
		Class:        req.Class,
		TeacherID:    teacherID,
		Duration:     req.Duration,
		TotalMarks:   req.TotalMarks,
		PassingMarks: req.PassingMarks,
		Status:       status,
		StartsAt:     req.StartsAt,
		Questions:    buildQuestions(req.Questions),
	}
}

// buildQuestions assigns positions in request order and fills default time limits
func buildQuestions(reqs []QuestionRequest) []models.Question {
	questions := make([]models.Question, 0, len(reqs))
	for i, q := range reqs {
		timeLimit := models.DefaultTimeLimit(q.Type)
		if q.TimeLimit != nil {
			timeLimit = *q.TimeLimit
		}

		var options datatypes.JSONSlice[string]
		if q.Type == models.QuestionMCQ {
			options = datatypes.JSONSlice[string](q.Options)
		}

		questions = append(questions, models.Question{
			Position:      i,
			Text:          q.Text,
			Type:          q.Type,
			Options:       options,
			CorrectAnswer: q.CorrectAnswer,
			Topic:         q.Topic,
			TimeLimit:     timeLimit,
		})
	}
	return questions
}

func applyExamUpdate(exam *models.Exam, req *UpdateExamRequest) {
	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Description != nil {
		exam.Description = req.Description
	}
	if req.Subject != nil {
		exam.Subject = *req.Subject
	}
	if req.Class != nil {
		exam.Class = req.Class
	}
	if req.Duration != nil {
		exam.Duration = *req.Duration
	}
	if req.TotalMarks != nil {
		exam.TotalMarks = *req.TotalMarks
	}
	if req.PassingMarks != nil {
		exam.PassingMarks = *req.PassingMarks
	}
	if req.Status != nil {
		exam.Status = *req.Status
	}
	if req.StartsAt != nil {
		exam.StartsAt = req.StartsAt
	}
}

func examEvent(exam *models.Exam) events.ExamEvent {
	return events.ExamEvent{
		ExamID:    exam.ID,
		TeacherID: exam.TeacherID,
		Title:     exam.Title,
		Subject:   exam.Subject,
	}
}
