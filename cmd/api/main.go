package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/callvault-team/callvault/pkg/validator"

	"github.com/callvault-team/callvault/internal/adapter/handler"
	"github.com/callvault-team/callvault/internal/adapter/repository"
	"github.com/callvault-team/callvault/internal/infrastructure/cache"
	"github.com/callvault-team/callvault/internal/infrastructure/database"
	"github.com/callvault-team/callvault/internal/infrastructure/queue"
	"github.com/callvault-team/callvault/internal/infrastructure/storage"
	"github.com/callvault-team/callvault/internal/usecase/ingest"
	"github.com/callvault-team/callvault/internal/usecase/transcription"
	pkgai "github.com/callvault-team/callvault/pkg/ai"
	"github.com/callvault-team/callvault/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// Large audio uploads
	e.Use(middleware.BodyLimit("500M"))

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run migrations only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping migrations; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Initialize file storage
	log.Println("📦 Initializing file storage...")
	store, err := buildFileStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	// Initialize job queue
	log.Println("📦 Initializing job queue...")
	jobs, err := buildQueue(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize job queue: %v", err)
	}

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	recordingRepo := repository.NewRecordingRepository(db)
	transcriptionRepo := repository.NewTranscriptionRepository(db)
	pipelineRepo := repository.NewPipelineStateRepository(db)

	// Initialize services
	log.Println("✨ Initializing services...")
	ingestService := ingest.NewIngestService(recordingRepo, store, cache.NewMemoryStore(), logger)
	transcriptionService := transcription.NewTranscriptionService(
		recordingRepo,
		transcriptionRepo,
		pipelineRepo,
		jobs,
		cfg.ElevenLabs.Language,
		cfg.ElevenLabs.ModelID,
		logger,
	)

	// The memory queue only exists in this process, so consume it here too.
	// With the redis driver a separate worker binary consumes jobs.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if cfg.Queue.Driver == "memory" {
		log.Println("⚠️  Queue running in MEMORY mode, consuming jobs in-process")
		provider, err := buildProvider(cfg, logger)
		if err != nil {
			log.Fatalf("Failed to initialize transcription provider: %v", err)
		}
		worker := transcription.NewWorker(recordingRepo, transcriptionRepo, pipelineRepo, store, provider, logger)
		go func() {
			if err := worker.Run(workerCtx, jobs); err != nil && err != context.Canceled {
				logger.Error("in-process worker stopped", zap.Error(err))
			}
		}()
	}

	// Serve local uploads directly when using local storage
	if cfg.Storage.Type == "local" {
		e.Static("/uploads", cfg.Storage.LocalDir)
	}

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	recordingHandler := handler.NewRecording(ingestService, logger)
	transcriptionHandler := handler.NewTranscription(transcriptionService, logger)

	router := handler.NewRouter(cfg, recordingHandler, transcriptionHandler, jobs)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

// buildFileStore selects the FileStore implementation from config
func buildFileStore(cfg *config.Config) (storage.FileStore, error) {
	switch cfg.Storage.Type {
	case "minio":
		return storage.NewMinIOStore(&cfg.Storage)
	default:
		return storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Server.BaseURL+"/uploads")
	}
}

// buildQueue selects the Queue implementation from config
func buildQueue(cfg *config.Config) (queue.Queue, error) {
	if cfg.Queue.Driver == "memory" {
		return queue.NewMemoryQueue(cfg.Queue.MaxAttempts, cfg.Queue.BackoffBase, cfg.Queue.Concurrency), nil
	}
	return queue.NewRedisQueue(cfg)
}

// buildProvider selects the transcription provider from config
func buildProvider(cfg *config.Config, logger *zap.Logger) (pkgai.Provider, error) {
	if cfg.ElevenLabs.UseMock {
		log.Println("⚠️  Transcription provider running in MOCK mode")
		return pkgai.NewMockProvider(cfg.ElevenLabs.MockDelay), nil
	}
	return pkgai.NewElevenLabsClient(&cfg.ElevenLabs, logger)
}
