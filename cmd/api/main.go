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

	"github.com/go-resty/resty/v2"
	"github.com/timmy/pitchtrack/internal/api"
	"github.com/timmy/pitchtrack/internal/config"
	"github.com/timmy/pitchtrack/internal/detector"
	"github.com/timmy/pitchtrack/internal/logger"
	"github.com/timmy/pitchtrack/internal/repository"
	"github.com/timmy/pitchtrack/internal/service"
	"github.com/timmy/pitchtrack/internal/storage"
	"github.com/timmy/pitchtrack/internal/video"
)

func main() {
	// Initialize logger first (with defaults from environment)
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	jobRepo := repository.NewJobRepository(db)

	// Initialize object storage when configured; storage:// locators stay
	// disabled without it
	var objectStorage storage.ObjectStorage
	if cfg.Storage.Endpoint != "" {
		objectStorage, err = storage.NewStorage(&storage.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize storage")
		}
		if err := objectStorage.EnsureBucket(context.Background()); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}

	// Video pipeline components
	prober := video.NewFFProbe()
	opener := video.NewFFmpegOpener(prober)
	fetcher := video.NewScratchFetcher(cfg.Jobs.ScratchDir, resty.New(), objectStorage)

	// Detection providers: synthetic always works, the remote model is
	// preferred when configured and reachable
	var det detector.Provider = detector.NewSynthetic(time.Now().UnixNano())
	if cfg.Detector.UseReal {
		remote := detector.NewRemote(&detector.RemoteConfig{
			BaseURL: cfg.Detector.BaseURL,
			APIKey:  cfg.Detector.APIKey,
			Model:   cfg.Detector.Model,
			Timeout: cfg.Detector.Timeout,
		})
		det = detector.NewFallback(remote, det)
	}

	orchestrator := service.NewOrchestrator(jobRepo, fetcher, prober, opener, det, service.OrchestratorConfig{
		MaxConcurrent:      cfg.Jobs.MaxConcurrent,
		MaxVideoDuration:   cfg.Jobs.MaxVideoDuration,
		CheckpointInterval: cfg.Jobs.CheckpointInterval,
	})

	// Setup router
	router := api.SetupRouter(orchestrator, jobRepo, objectStorage, appLogger, &cfg.Server)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout: stop accepting requests, then let
	// active jobs write their final checkpoints
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Orchestrator shutdown incomplete")
	}

	appLogger.Info("Server exited")
}
