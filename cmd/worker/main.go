package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/callvault-team/callvault/internal/adapter/repository"
	"github.com/callvault-team/callvault/internal/infrastructure/database"
	"github.com/callvault-team/callvault/internal/infrastructure/queue"
	"github.com/callvault-team/callvault/internal/infrastructure/storage"
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

	// The memory queue lives inside the API process; a standalone worker can
	// only consume the shared Redis queue.
	if cfg.Queue.Driver != "redis" {
		log.Fatalf("Worker requires QUEUE_DRIVER=redis, got %q", cfg.Queue.Driver)
	}

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

	// Initialize file storage
	log.Println("📦 Initializing file storage...")
	var store storage.FileStore
	if cfg.Storage.Type == "minio" {
		store, err = storage.NewMinIOStore(&cfg.Storage)
	} else {
		store, err = storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Server.BaseURL+"/uploads")
	}
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	// Initialize transcription provider
	var provider pkgai.Provider
	if cfg.ElevenLabs.UseMock {
		log.Println("⚠️  Transcription provider running in MOCK mode")
		provider = pkgai.NewMockProvider(cfg.ElevenLabs.MockDelay)
	} else {
		provider, err = pkgai.NewElevenLabsClient(&cfg.ElevenLabs, logger)
		if err != nil {
			log.Fatalf("Failed to initialize transcription provider: %v", err)
		}
	}

	// Initialize queue
	log.Println("📦 Connecting to Redis queue...")
	jobs, err := queue.NewRedisQueue(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize job queue: %v", err)
	}
	defer jobs.Close()

	// Initialize worker
	recordingRepo := repository.NewRecordingRepository(db)
	transcriptionRepo := repository.NewTranscriptionRepository(db)
	pipelineRepo := repository.NewPipelineStateRepository(db)
	worker := transcription.NewWorker(recordingRepo, transcriptionRepo, pipelineRepo, store, provider, logger)

	ctx, cancel := context.WithCancel(context.Background())

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("🛑 Shutting down worker...")
		cancel()
	}()

	log.Printf("🚀 Worker started (concurrency=%d, max_attempts=%d)", cfg.Queue.Concurrency, cfg.Queue.MaxAttempts)
	if err := worker.Run(ctx, jobs); err != nil && err != context.Canceled {
		log.Fatalf("Worker stopped with error: %v", err)
	}

	log.Println("✅ Worker stopped gracefully")
}
