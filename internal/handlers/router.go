package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

const healthCheckTimeout = 3 * time.Second

// HealthCheck is one dependency probed by /health. A failing critical check
// makes the service unhealthy, any other failure only degrades it.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

type HandlerManager struct {
	authHandler      *AuthHandler
	examHandler      *ExamHandler
	resultHandler    *ResultHandler
	studentHandler   *StudentHandler
	dashboardHandler *DashboardHandler
	authMiddleware   *AuthMiddleware
	healthChecks     []HealthCheck
	logger           utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	verifier auth.TokenVerifier,
	userRepo repositories.UserRepository,
	logger utils.Logger,
	healthChecks ...HealthCheck,
) *HandlerManager {
	return &HandlerManager{
		authHandler:      NewAuthHandler(serviceManager.Auth(), logger),
		examHandler:      NewExamHandler(serviceManager.Exam(), serviceManager.Result(), serviceManager.Export(), logger),
		resultHandler:    NewResultHandler(serviceManager.Result(), logger),
		studentHandler:   NewStudentHandler(serviceManager.Student(), logger),
		dashboardHandler: NewDashboardHandler(serviceManager.Dashboard(), logger),
		authMiddleware:   NewAuthMiddleware(verifier, userRepo, logger),
		healthChecks:     healthChecks,
		logger:           logger,
	}
}

// SetupRoutes mounts the API under /api and /api/v1
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	for _, prefix := range []string{"/api", "/api/v1"} {
		hm.mountAPI(router.Group(prefix))
	}

	router.GET("/health", hm.health)
}

func (hm *HandlerManager) mountAPI(api *gin.RouterGroup) {
	teacherOnly := hm.authMiddleware.RequireRole(models.RoleTeacher)
	studentOnly := hm.authMiddleware.RequireRole(models.RoleStudent)

	// Public auth routes
	api.POST("/auth/register", hm.authHandler.Register)
	api.POST("/auth/login", hm.authHandler.Login)

	protected := api.Group("")
	protected.Use(hm.authMiddleware.Authenticate())

	authed := protected.Group("/auth")
	{
		authed.GET("/me", hm.authHandler.Me)
		authed.PUT("/me", hm.authHandler.UpdateMe)
	}

	// Exam routes, singular and plural
	for _, path := range []string{"/exams", "/exam"} {
		exams := protected.Group(path)
		exams.GET("", hm.examHandler.ListExams)
		exams.GET("/:id", hm.examHandler.GetExam)
		exams.POST("", teacherOnly, hm.examHandler.CreateExam)
		exams.PUT("/:id", teacherOnly, hm.examHandler.UpdateExam)
		exams.DELETE("/:id", teacherOnly, hm.examHandler.DeleteExam)

		exams.POST("/:id/submit", studentOnly, hm.examHandler.SubmitExam)
		exams.GET("/:id/results", teacherOnly, hm.examHandler.ListExamResults)
		exams.GET("/:id/results/export", teacherOnly, hm.examHandler.ExportExamResults)
	}

	// Result routes, singular and plural
	for _, path := range []string{"/result", "/results"} {
		results := protected.Group(path)
		results.POST("", studentOnly, hm.resultHandler.SubmitResult)
		results.GET("/all", teacherOnly, hm.resultHandler.ListAllResults)
		results.GET("/student/:studentId", hm.resultHandler.ListStudentResults)
		results.GET("/:id", hm.resultHandler.GetResult)
	}

	// Student routes - Students only
	students := protected.Group("/student")
	students.Use(studentOnly)
	{
		students.GET("/exams", hm.studentHandler.GetMyExams)
		students.GET("/results", hm.studentHandler.GetMyResults)
		students.GET("/analytics", hm.studentHandler.GetMyAnalytics)
	}

	// Dashboard routes - Teachers and Admins only
	dashboard := protected.Group("/dashboard")
	dashboard.Use(teacherOnly)
	{
		dashboard.GET("/stats", hm.dashboardHandler.GetDashboardStats)
		dashboard.GET("/performance-by-subject", hm.dashboardHandler.GetPerformanceBySubject)
	}
}

// health reports every registered dependency check
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (hm *HandlerManager) health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	checks := make(map[string]string, len(hm.healthChecks))

	for _, hc := range hm.healthChecks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		err := hc.Check(ctx)
		cancel()

		if err == nil {
			checks[hc.Name] = "ok"
			continue
		}
		checks[hc.Name] = err.Error()
		utils.GetLogger(c, hm.logger).Warn("Health check failed", "check", hc.Name, "error", err)
		if hc.Critical {
			status, code = "unhealthy", http.StatusServiceUnavailable
		} else if status == "healthy" {
			status = "degraded"
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   "exam-service",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
