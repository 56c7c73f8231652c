package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/cache"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
)

const defaultPingTimeout = 5 * time.Second

// PostgreSQLRepository is the gorm backed Repository. Exam and user reads go
// through redis when a client is configured.
type PostgreSQLRepository struct {
	db    *gorm.DB
	redis *redis.Client

	user      repositories.UserRepository
	exam      repositories.ExamRepository
	result    repositories.ResultRepository
	dashboard repositories.DashboardRepository
}

// RepositoryConfig holds the connections the repositories share. RedisClient
// may be nil, in which case every read goes to postgres.
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	PingTimeout time.Duration
}

func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	cm := cache.NewCacheManager(config.RedisClient)

	return &PostgreSQLRepository{
		db:        config.DB,
		redis:     config.RedisClient,
		user:      NewUserPostgreSQL(config.DB, cm),
		exam:      NewExamPostgreSQL(config.DB, cm),
		result:    NewResultPostgreSQL(config.DB, cm),
		dashboard: NewDashboardRepository(config.DB, cm),
	}
}

func (r *PostgreSQLRepository) User() repositories.UserRepository           { return r.user }
func (r *PostgreSQLRepository) Exam() repositories.ExamRepository           { return r.exam }
func (r *PostgreSQLRepository) Result() repositories.ResultRepository       { return r.result }
func (r *PostgreSQLRepository) Dashboard() repositories.DashboardRepository { return r.dashboard }

// WithTransaction executes fn within a database transaction. Cache
// invalidations registered by the repositories run only after a commit.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	txCtx, hooks := withCommitHooks(ctx)
	if err := r.db.WithContext(txCtx).Transaction(fn); err != nil {
		return err
	}
	hooks.run()
	return nil
}

// Ping reports database reachability only. The cache is optional and is
// checked on its own by the health endpoint.
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the connection pool and the redis client, reporting every failure
func (r *PostgreSQLRepository) Close() error {
	var errs []error
	if sqlDB, err := r.db.DB(); err != nil {
		errs = append(errs, fmt.Errorf("failed to get database instance: %w", err))
	} else if err := sqlDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	if config.PingTimeout <= 0 {
		config.PingTimeout = defaultPingTimeout
	}
	return &RepositoryManager{config: config}
}

// Initialize fails fast when postgres is unreachable
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return errors.New("database connection is required")
	}
	if rm.repo != nil {
		return nil
	}

	repo := NewPostgreSQLRepository(rm.config)

	ctx, cancel := context.WithTimeout(context.Background(), rm.config.PingTimeout)
	defer cancel()
	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	rm.repo = repo
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return errors.New("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

// Shutdown closes the connections once; later calls are no-ops
func (rm *RepositoryManager) Shutdown(_ context.Context) error {
	if rm.repo == nil {
		return nil
	}
	repo := rm.repo
	rm.repo = nil
	return repo.Close()
}
