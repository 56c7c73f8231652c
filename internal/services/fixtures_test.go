package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories/memory"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

type testEnv struct {
	repo      *memory.Repository
	publisher *events.MockEventPublisher
	tokens    *auth.TokenManager
	services  ServiceManager
}

func newTestEnv(t *testing.T, examCfg config.ExamConfig) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		repo:      memory.NewRepository(),
		publisher: events.NewMockEventPublisher(logger),
		tokens:    auth.NewTokenManager(config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "exam-service-test"}),
	}
	env.services = NewServiceManager(Dependencies{
		Repo:      env.repo,
		Tokens:    env.tokens,
		Publisher: env.publisher,
		Logger:    logger,
		Validator: validator.New(),
	}, ServiceManagerConfig{Exam: examCfg})

	if err := env.services.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return env
}

func (e *testEnv) seedUser(t *testing.T, identifier string, role models.UserRole, class *string) *models.User {
	t.Helper()
	u := &models.User{Name: identifier, Identifier: identifier, Role: role, Class: class}
	if err := e.repo.User().Create(context.Background(), nil, u); err != nil {
		t.Fatalf("seed user %s: %v", identifier, err)
	}
	return u
}

func (e *testEnv) seedExam(t *testing.T, teacher *models.User, req *CreateExamRequest) *ExamResponse {
	t.Helper()
	exam, err := e.services.Exam().Create(context.Background(), req, teacher.ID)
	if err != nil {
		t.Fatalf("seed exam: %v", err)
	}
	return exam
}

func (e *testEnv) eventTypes() []string {
	var out []string
	for _, ev := range e.publisher.GetPublishedEvents() {
		out = append(out, ev.Type)
	}
	return out
}

// sampleExam has two Algebra questions and one Geometry question
func sampleExam() *CreateExamRequest {
	return &CreateExamRequest{
		Title:        "Unit Test",
		Subject:      "Maths",
		Class:        strPtr("10A"),
		Duration:     45,
		TotalMarks:   30,
		PassingMarks: 15,
		Status:       models.ExamOngoing,
		Questions: []QuestionRequest{
			{Text: "x+1=2", Type: models.QuestionMCQ, Options: []string{"0", "1", "2"}, CorrectAnswer: "1", Topic: "Algebra"},
			{Text: "2x=6", Type: models.QuestionMCQ, Options: []string{"2", "3"}, CorrectAnswer: "3", Topic: "Algebra", TimeLimit: intPtr(60)},
			{Text: "Sides of a hexagon", Type: models.QuestionText, CorrectAnswer: "6", Topic: "Geometry"},
		},
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
