package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

// getUser loads the acting user; an unknown id maps to ErrUserNotFound
func getUser(ctx context.Context, repo repositories.Repository, userID string) (*models.User, error) {
	user, err := repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// requireRole loads the user and checks the role. Admins pass every gate.
func requireRole(ctx context.Context, repo repositories.Repository, userID, resource, action string, roles ...models.UserRole) (*models.User, error) {
	user, err := getUser(ctx, repo, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		return user, nil
	}
	for _, role := range roles {
		if user.Role == role {
			return user, nil
		}
	}
	return nil, NewPermissionError(userID, 0, resource, action, "insufficient role permissions")
}

func getExam(ctx context.Context, repo repositories.Repository, examID uint) (*models.Exam, error) {
	exam, err := repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

func isTeacher(user *models.User) bool {
	return user.Role == models.RoleTeacher || user.Role == models.RoleAdmin
}

func ownsExam(user *models.User, exam *models.Exam) bool {
	return user.Role == models.RoleAdmin || (user.Role == models.RoleTeacher && exam.TeacherID == user.ID)
}

// redactResult hides correct answers from anything a student receives
func redactResult(user *models.User, result *models.Result) *models.Result {
	if result == nil || isTeacher(user) || result.Exam == nil {
		return result
	}
	cp := *result
	cp.Exam = result.Exam.ForStudent()
	return &cp
}

// publishEvent is best effort; a failed publish is logged and swallowed
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish event", "event_type", event.Type, "event_id", event.ID, "error", err)
	}
}
