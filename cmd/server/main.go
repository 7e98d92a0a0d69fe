package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prepline/testprep-backend/internal/config"
	"github.com/prepline/testprep-backend/internal/database"
	"github.com/prepline/testprep-backend/internal/handler"
	"github.com/prepline/testprep-backend/internal/logger"
	"github.com/prepline/testprep-backend/internal/repository"
	"github.com/prepline/testprep-backend/internal/router"
	"github.com/prepline/testprep-backend/internal/service"
	"github.com/prepline/testprep-backend/internal/validator"
	"github.com/prepline/testprep-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting TestPrep Backend")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Repositories
	studentRepo := repository.NewStudentRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)

	// Services
	authService := service.NewAuthService(cfg, rdb)
	testService := service.NewTestService(testRepo, questionRepo, subjectRepo, rdb, log)
	sessionService := service.NewSessionService(testService, subjectRepo, rdb, log)

	// Handlers
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService, studentRepo, adminRepo),
		Portal:  handler.NewPortalHandler(testService, sessionService, submissionRepo, log),
		Test:    handler.NewTestHandler(testService, submissionRepo, log),
		Subject: handler.NewSubjectHandler(subjectRepo, log),
		WS:      handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// Background workers drain the Redis persistence queues into Postgres.
	workerCtx, workerCancel := context.WithCancel(context.Background())

	submissionWorker := worker.NewSubmissionWorker(pool, rdb, log)
	integrityWorker := worker.NewIntegrityWorker(pool, rdb, log)

	go submissionWorker.Start(workerCtx)
	go integrityWorker.Start(workerCtx)

	// Load all published tests into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := testService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	r := router.SetupRouter(authService, handlers, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop live session timers, then stop the workers and let the
	// persistence queues drain.
	sessionService.TeardownAll()
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
