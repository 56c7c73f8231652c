package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repository aggregates every store the service depends on
type Repository interface {
	User() UserRepository
	Exam() ExamRepository
	Result() ResultRepository
	Dashboard() DashboardRepository

	// WithTransaction runs fn inside one database transaction. tx is nil
	// for stores that are not backed by gorm; repositories accept a nil tx.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
