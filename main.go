package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-service/internal/auth"
	"github.com/SAP-F-2025/exam-service/internal/config"
	"github.com/SAP-F-2025/exam-service/internal/events"
	"github.com/SAP-F-2025/exam-service/internal/handlers"
	"github.com/SAP-F-2025/exam-service/internal/repositories"
	"github.com/SAP-F-2025/exam-service/internal/repositories/memory"
	"github.com/SAP-F-2025/exam-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
	"github.com/SAP-F-2025/exam-service/internal/validator"
	"github.com/SAP-F-2025/exam-service/pkg"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "exam-service",
		Short:        "Exam authoring, submission and scoring API",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, migrateCmd(), importCmd(), exportCmd())

	// "serve" is the default when no subcommand is given
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().Bool("auto-migrate", true, "Migrate the postgres schema before serving")
	return cmd
}

// application holds everything a command needs after bootstrap
type application struct {
	cfg         *config.Config
	logger      *slog.Logger
	db          *gorm.DB
	redisClient *redis.Client
	repoManager repositories.RepositoryManager
	repo        repositories.Repository
	services    services.ServiceManager
	verifier    auth.TokenVerifier
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// bootstrap loads configuration and wires storage, events and services
func bootstrap(ctx context.Context, migrate bool) (*application, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	app := &application{cfg: cfg, logger: newLogger(cfg)}
	slog.SetDefault(app.logger)

	if err := app.openStorage(migrate); err != nil {
		return nil, err
	}

	publisher := events.EventPublisher(events.NewNoopEventPublisher())
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := events.NewKafkaEventPublisher(cfg.Kafka, app.logger)
		if err != nil {
			app.closeStorage(ctx)
			return nil, err
		}
		publisher = kafkaPublisher
		app.logger.Info("Publishing events to Kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	tokens := auth.NewTokenManager(cfg.JWT)
	app.verifier = tokens
	if cfg.AuthProvider == config.AuthProviderCasdoor {
		app.verifier = auth.NewCasdoorVerifier(cfg.Casdoor)
	}

	app.services = services.NewServiceManager(services.Dependencies{
		Repo:      app.repo,
		Tokens:    tokens,
		Publisher: publisher,
		Logger:    app.logger,
		Validator: validator.New(),
	}, services.ServiceManagerConfig{Exam: cfg.Exam})
	if err := app.services.Initialize(ctx); err != nil {
		app.closeStorage(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return app, nil
}

func (app *application) openStorage(migrate bool) error {
	if app.cfg.StorageDriver == config.StorageDriverMemory {
		app.logger.Warn("Using in-memory storage; data is lost on restart")
		app.repoManager = memory.NewRepositoryManager()
		if err := app.repoManager.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize repositories: %w", err)
		}
		app.repo = app.repoManager.GetRepository()
		return nil
	}

	db, err := pkg.InitDatabase(app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	if migrate {
		if err := pkg.Migrate(db); err != nil {
			app.releaseConnections()
			return err
		}
	}

	if app.cfg.RedisURL != "" {
		app.redisClient, err = pkg.NewRedisClient(app.cfg)
		if err != nil {
			app.logger.Warn("Redis unavailable, continuing without cache", "error", err)
			app.redisClient = nil
		}
	}

	app.repoManager = postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: app.redisClient,
	})
	if err := app.repoManager.Initialize(); err != nil {
		app.releaseConnections()
		app.repoManager = nil
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}
	app.repo = app.repoManager.GetRepository()
	return nil
}

// releaseConnections closes the raw pool and redis client before a repository owns them
func (app *application) releaseConnections() {
	if sqlDB, err := app.db.DB(); err == nil {
		sqlDB.Close()
	}
	if app.redisClient != nil {
		app.redisClient.Close()
	}
}

func (app *application) closeStorage(ctx context.Context) {
	if app.repoManager == nil {
		return
	}
	if err := app.repoManager.Shutdown(ctx); err != nil {
		app.logger.Error("Failed to close storage", "error", err)
	}
}

// close stops services, then the publisher, DB pool and redis
func (app *application) close(ctx context.Context) {
	if err := app.services.Shutdown(ctx); err != nil {
		app.logger.Error("Failed to shutdown services", "error", err)
	}
	app.closeStorage(ctx)
}

func (app *application) healthChecks() []handlers.HealthCheck {
	checks := []handlers.HealthCheck{{
		Name:     "database",
		Critical: true,
		Check: func(ctx context.Context) error {
			if app.db == nil {
				return app.repo.Ping(ctx)
			}
			sqlDB, err := app.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if app.redisClient != nil {
		checks = append(checks, handlers.HealthCheck{
			Name: "cache",
			Check: func(ctx context.Context) error {
				return app.redisClient.Ping(ctx).Err()
			},
		})
	}
	return checks
}

func runServe(cmd *cobra.Command, _ []string) error {
	autoMigrate, _ := cmd.Flags().GetBool("auto-migrate")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx, autoMigrate)
	if err != nil {
		return err
	}
	logger := utils.NewSlogLogger(app.logger)

	if app.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlers.NewHandlerManager(app.services, app.verifier, app.repo.User(), logger, app.healthChecks()...).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + app.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", app.cfg.Port, "environment", app.cfg.Environment, "storage", app.cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			app.close(context.Background())
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	app.close(shutdownCtx)

	logger.Info("Server exited")
	return nil
}
