package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cv-platform-backend/config"
	_ "cv-platform-backend/docs" // Important for Swagger
	v1 "cv-platform-backend/internal/delivery/http/v1"
	"cv-platform-backend/internal/repository/postgres"
	"cv-platform-backend/internal/usecase"
	"cv-platform-backend/pkg/auth"
	"cv-platform-backend/pkg/database"
	"cv-platform-backend/pkg/logger"
	"cv-platform-backend/pkg/redis"
	"cv-platform-backend/pkg/security"
	"cv-platform-backend/pkg/validation"

	"github.com/gin-gonic/gin"
)

// @title           CV Platform API
// @version         1.0
// @description     Registration, login and role-gated routes for the standardized CV platform.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.Environment)
	events := security.InitSecurityLogger(cfg.ServiceName, cfg.Environment)
	defer func() { _ = events.Sync() }()
	logger.Log.Info("Starting CV platform backend", "port", cfg.Port)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. Setup Database
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 15*time.Second)
	dbPool, err := database.NewPostgresConnection(startupCtx, cfg.DBUrl)
	if err != nil {
		cancelStartup()
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := postgres.EnsureSchema(startupCtx, dbPool); err != nil {
		cancelStartup()
		logger.Log.Error("Failed to prepare schema", "error", err)
		os.Exit(1)
	}
	cancelStartup()

	// 4. Setup Redis (optional)
	var redisCheck func(context.Context) error
	if err := redis.Initialize(redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword}); err != nil {
		if errors.Is(err, redis.ErrNotConfigured) {
			logger.Log.Warn("Redis disabled, using in-memory rate limiting without login lockout")
		} else {
			logger.Log.Warn("Redis unavailable, continuing without it", "error", err)
		}
	} else {
		defer func() { _ = redis.Close() }()
		redisCheck = redis.HealthCheck
	}

	// 5. Setup Repositories
	userRepo := postgres.NewUserRepository(dbPool)

	// 6. Setup UseCases
	tracker := security.NewLoginTracker(security.LockoutConfig{
		MaxAttempts:   cfg.FailedLoginMaxAttempts,
		IPMaxAttempts: cfg.FailedLoginIPMaxAttempts,
		Window:        cfg.FailedLoginWindow(),
		BlockDuration: cfg.FailedLoginBlock(),
	}, events)

	authUC := usecase.NewAuthUsecase(
		userRepo,
		auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn),
		auth.NewPasswordHasher(cfg.BcryptCost),
		tracker,
		events,
	)
	cvUC := usecase.NewCVUsecase(validation.New())
	healthUC := usecase.NewHealthUsecase(dbPool, redisCheck)

	// 7. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		AuthUC:   authUC,
		CVUC:     cvUC,
		HealthUC: healthUC,
		Events:   events,
		Config:   cfg,
	})

	// 8. Start Server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
