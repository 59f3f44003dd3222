package main

import (
	"context"
	"os/signal"
	"syscall"

	"app/internal/api/v1/router"
	"app/internal/config"
	"app/internal/logger"
	"app/internal/pgmq"
	"app/internal/repository"
	"app/internal/service"
	"app/internal/storage"
	"app/internal/worker/analysis"

	"github.com/joho/godotenv"
)

func main() {
	log := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Msgf("Error loading config: %v", err)
	}

	// Initialize DB connection
	db, err := router.OpenDB(cfg, log)
	if err != nil {
		log.Fatal().Msgf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	// Blob storage must match the API's backend so workers can read uploads
	var blobs storage.Blobs
	switch cfg.StorageBackend {
	case "s3":
		blobs, err = storage.NewS3(context.Background(), storage.S3Config{
			URL:       cfg.S3URL,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		blobs, err = storage.NewDisk(cfg.UploadDir)
	}
	if err != nil {
		log.Fatal().Msgf("Failed to initialize blob storage: %v", err)
	}

	// Initialize PGMQ client
	pgmqClient := pgmq.New(db)
	log.Info().Msg("PGMQ client initialized")

	// Wire the analysis service the worker runs jobs through
	userRepo := repository.NewUserRepo(db)
	fileRepo := repository.NewFileRepo(db)
	analysisRepo := repository.NewAnalysisRepo(db)

	analysisSvc := service.NewAnalysisService(cfg, fileRepo, analysisRepo, userRepo, blobs, pgmqClient, log)

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := analysis.Run(ctx, cfg, log, pgmqClient, analysisSvc); err != nil {
		log.Fatal().Msgf("Analysis worker failed: %v", err)
	}
	log.Info().Msg("Analysis worker stopped gracefully")
}
