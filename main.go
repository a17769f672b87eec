package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/taskflow-app/taskflow/pkg/audit"
	"github.com/taskflow-app/taskflow/pkg/auth"
	"github.com/taskflow-app/taskflow/pkg/config"
	"github.com/taskflow-app/taskflow/pkg/database"
	"github.com/taskflow-app/taskflow/pkg/handlers"
	"github.com/taskflow-app/taskflow/pkg/logging"
	"github.com/taskflow-app/taskflow/pkg/middleware"
	"github.com/taskflow-app/taskflow/pkg/repositories"
	"github.com/taskflow-app/taskflow/pkg/retry"
	"github.com/taskflow-app/taskflow/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.String("error", logging.SanitizeError(err)))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsLocal() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("redis", cfg.Redis.Host != ""))

	retryCfg := retry.DefaultConfig()
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("Database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error", logging.SanitizeError(err)))
	}
	db, err := retry.DoWithResult(ctx, retryCfg, func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := migrate(cfg, logger); err != nil {
		return err
	}

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return err
	}
	var revoker auth.Revoker = auth.NoopRevoker{}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		revoker = auth.NewRedisRevoker(redisClient, "")
	} else {
		logger.Info("Redis not configured; logout will not revoke tokens server-side")
	}

	tokens := auth.NewTokens(auth.TokenConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TokenTTL,
	})

	// Repositories
	userRepo := repositories.NewUserRepository()
	projectRepo := repositories.NewProjectRepository()
	visibilityRepo := repositories.NewVisibilityRepository()
	taskRepo := repositories.NewTaskRepository()
	commentRepo := repositories.NewCommentRepository()
	notificationRepo := repositories.NewNotificationRepository()
	tx := database.NewTransactor()

	// Services
	visibilityService := services.NewVisibilityService(visibilityRepo)
	userService := services.NewUserService(userRepo, tx, logger)
	accountService := services.NewAuthService(userRepo, tx, tokens, logger)
	projectService := services.NewProjectService(projectRepo, userRepo, visibilityService, tx, logger)
	notificationService := services.NewNotificationService(notificationRepo, projectRepo, taskRepo, visibilityService, tx, logger)
	taskService := services.NewTaskService(taskRepo, projectRepo, userRepo, visibilityService, logger)
	commentService := services.NewCommentService(commentRepo, taskRepo, visibilityService, notificationService, tx, logger)

	if cfg.Bootstrap.Enabled() {
		if err := bootstrapAdmin(ctx, db, userService, &cfg.Bootstrap, logger); err != nil {
			return err
		}
	}

	// Authentication
	cookieSettings := auth.DeriveCookieSettings(cfg.BaseURL, cfg.Auth.CookieDomain)
	sessions := auth.NewSessionStore(cfg.Auth.SessionSecret, cookieSettings, cfg.Auth.TokenTTL)
	authService := auth.NewAuthService(tokens, sessions, revoker, logger)
	auditor := audit.NewSecurityAuditor(logger)
	authMiddleware := auth.NewMiddleware(authService, auditor, logger)
	scope := handlers.ScopeMiddleware(database.WithScope(db, logger))

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(accountService, userService, authService, auditor, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewProjectsHandler(projectService, taskService, auditor, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewTasksHandler(taskService, auditor, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewCommentsHandler(commentService, auditor, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewNotificationsHandler(notificationService, auditor, logger).RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewUsersHandler(userService, auditor, logger).RegisterRoutes(mux, authMiddleware, scope)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.Recoverer(logger)(middleware.RequestLogger(logger)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		useTLS := cfg.TLSCertPath != "" && cfg.TLSKeyPath != ""
		logger.Info("Starting taskflow server",
			zap.String("addr", server.Addr),
			zap.Bool("tls", useTLS))

		var err error
		if useTLS {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// migrate applies embedded migrations over a short-lived database/sql handle.
func migrate(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return err
	}
	return nil
}

// bootstrapAdmin ensures the configured admin account exists. Service calls
// need a connection scope in the context, the same as request handlers.
func bootstrapAdmin(ctx context.Context, db *database.DB, users services.UserService, cfg *config.BootstrapConfig, logger *zap.Logger) error {
	scope, err := db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire bootstrap connection: %w", err)
	}
	defer scope.Close()

	admin, err := users.EnsureAdmin(database.SetScope(ctx, scope), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	logger.Info("Bootstrap admin ready",
		zap.String("user_id", admin.ID.String()),
		zap.String("username", admin.Username))
	return nil
}
