package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Exam           config.ExamConfig
	DefaultTimeout time.Duration
}

// Dependencies are the collaborators shared by every service
type Dependencies struct {
	Repo      repositories.Repository
	Tokens    *auth.TokenManager
	Publisher events.EventPublisher
	Logger    *slog.Logger
	Validator *validator.Validator
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	// Service instances
	authService      AuthService
	examService      ExamService
	resultService    ResultService
	studentService   StudentService
	dashboardService DashboardService
	exportService    ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewNoopEventPublisher()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 30 * time.Second
	}
	return &serviceManager{deps: deps, config: config}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	if sm.deps.Repo == nil {
		return fmt.Errorf("failed to initialize services: repository is required")
	}
	if sm.deps.Tokens == nil {
		return fmt.Errorf("failed to initialize services: token manager is required")
	}

	d := sm.deps
	sm.authService = NewAuthService(d.Repo, d.Tokens, d.Logger, d.Validator)
	sm.examService = NewExamService(d.Repo, d.Publisher, d.Logger, d.Validator)
	sm.resultService = NewResultService(d.Repo, d.Publisher, d.Logger, d.Validator, sm.config.Exam)
	sm.studentService = NewStudentService(d.Repo, d.Logger, sm.config.Exam)
	sm.dashboardService = NewDashboardService(d.Repo, d.Logger)
	sm.exportService = NewExportService(d.Repo, d.Logger)

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully",
		"allow_resubmission", sm.config.Exam.AllowResubmission)

	return nil
}

// ready guards the getters. Using a service before Initialize is a wiring bug.
func (sm *serviceManager) ready() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
}

func (sm *serviceManager) Auth() AuthService {
	sm.ready()
	return sm.authService
}

func (sm *serviceManager) Exam() ExamService {
	sm.ready()
	return sm.examService
}

func (sm *serviceManager) Result() ResultService {
	sm.ready()
	return sm.resultService
}

func (sm *serviceManager) Student() StudentService {
	sm.ready()
	return sm.studentService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.ready()
	return sm.dashboardService
}

func (sm *serviceManager) Export() ExportService {
	sm.ready()
	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	ctx, cancel := context.WithTimeout(ctx, sm.config.DefaultTimeout)
	defer cancel()

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting work and closes the event publisher. The
// repository is owned by the caller and closed separately.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if err := sm.deps.Publisher.Close(); err != nil {
		sm.deps.Logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}
