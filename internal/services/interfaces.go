package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type RegisterRequest = validator.RegisterRequest
type LoginRequest = validator.LoginRequest
type UpdateProfileRequest = validator.UpdateProfileRequest

type CreateExamRequest = validator.ExamCreateRequest
type UpdateExamRequest = validator.ExamUpdateRequest
type QuestionRequest = validator.QuestionRequest

type SubmitResultRequest = validator.SubmitResultRequest

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type ExamResponse struct {
	*models.Exam
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
	CanSubmit bool `json:"canSubmit"`
}

type ExamListResponse struct {
	Exams  []*ExamResponse `json:"exams"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type ResultListResponse struct {
	Results []*models.Result `json:"results"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// StudentExam is an exam as shown to a student, with that student's results
type StudentExam struct {
	*models.Exam
	Results []*models.Result `json:"results"`
}

type StudentExamsResponse struct {
	UpcomingExams  []*models.Exam `json:"upcomingExams"`
	AvailableExams []*models.Exam `json:"availableExams"`
	CompletedExams []*StudentExam `json:"completedExams"`
}

// PerformanceSummary aggregates percentages; every field is zero without results
type PerformanceSummary struct {
	TotalExams   int     `json:"totalExams"`
	AverageScore float64 `json:"averageScore"`
	HighestScore float64 `json:"highestScore"`
	LowestScore  float64 `json:"lowestScore"`
	PassRate     float64 `json:"passRate"`
}

type StudentResultsResponse struct {
	Results            []*models.Result   `json:"results"`
	PerformanceSummary PerformanceSummary `json:"performanceSummary"`
}

type PerformancePoint struct {
	Date    time.Time `json:"date"`
	Score   float64   `json:"score"`
	Subject string    `json:"subject"`
	ExamID  uint      `json:"examId"`
}

type WeakTopicFrequency struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type StudentAnalyticsResponse struct {
	Performance []PerformancePoint   `json:"performance"`
	WeakTopics  []WeakTopicFrequency `json:"weakTopics"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error)
}

type ExamService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateExamRequest, teacherID string) (*ExamResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*ExamResponse, error)
	Update(ctx context.Context, id uint, req *UpdateExamRequest, userID string) (*ExamResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	List(ctx context.Context, filters repositories.ExamFilters, userID string) (*ExamListResponse, error)

	// Import creates all exams for teacherID in one transaction
	Import(ctx context.Context, reqs []*CreateExamRequest, teacherID string) ([]*models.Exam, error)
}

type ResultService interface {
	Submit(ctx context.Context, req *SubmitResultRequest, studentID string) (*models.Result, error)
	GetByID(ctx context.Context, id uint, userID string) (*models.Result, error)

	ListAll(ctx context.Context, filters repositories.ResultFilters, userID string) (*ResultListResponse, error)
	ListByStudent(ctx context.Context, studentID string, filters repositories.ResultFilters, userID string) (*ResultListResponse, error)
	ListByExam(ctx context.Context, examID uint, filters repositories.ResultFilters, userID string) (*ResultListResponse, error)
}

type StudentService interface {
	MyExams(ctx context.Context, studentID string) (*StudentExamsResponse, error)
	MyResults(ctx context.Context, studentID string) (*StudentResultsResponse, error)
	Analytics(ctx context.Context, studentID string) (*StudentAnalyticsResponse, error)
}

type DashboardService interface {
	GetStats(ctx context.Context, userID string) (*repositories.TeacherStats, error)
	GetPerformanceBySubject(ctx context.Context, userID string) ([]repositories.SubjectPerformance, error)
}

type ExportService interface {
	// ExportExamResults writes the exam's results as an xlsx workbook and
	// returns a suggested file name
	ExportExamResults(ctx context.Context, examID uint, userID string, w io.Writer) (string, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Auth() AuthService
	Exam() ExamService
	Result() ResultService
	Student() StudentService
	Dashboard() DashboardService
	Export() ExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
