package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/pitchtrack/internal/config"
	"github.com/timmy/pitchtrack/internal/detector"
	"github.com/timmy/pitchtrack/internal/domain"
	"github.com/timmy/pitchtrack/internal/logger"
	"github.com/timmy/pitchtrack/internal/repository"
	"github.com/timmy/pitchtrack/internal/service"
	"github.com/timmy/pitchtrack/internal/storage"
	"github.com/timmy/pitchtrack/internal/video"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "pitchtrack-worker",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	pollInterval := flag.Duration("poll", 5*time.Second, "Interval between pending job polls")
	maxErrors := flag.Int("max-errors", 5, "Consecutive poll errors before the worker exits")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.WithFields(logger.Fields{
		"poll":       pollInterval.String(),
		"max_errors": *maxErrors,
	}).Info("Starting detection worker")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	jobRepo := repository.NewJobRepository(db)

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

	prober := video.NewFFProbe()
	opener := video.NewFFmpegOpener(prober)
	fetcher := video.NewScratchFetcher(cfg.Jobs.ScratchDir, resty.New(), objectStorage)

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

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	runPollLoop(ctx, appLogger, jobRepo, orchestrator, *pollInterval, *maxErrors)

	// Let adopted jobs write their final checkpoints
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Orchestrator shutdown incomplete")
	}

	appLogger.Info("Worker exited")
}

// runPollLoop repeatedly adopts the oldest pending job. Transient poll
// failures back off linearly; persistent ones stop the worker so the
// supervisor can restart it with a clean database connection.
func runPollLoop(ctx context.Context, appLogger *logger.Logger, jobRepo *repository.JobRepository, orchestrator *service.Orchestrator, pollInterval time.Duration, maxErrors int) {
	consecutiveErrors := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}

		job, err := jobRepo.OldestPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveErrors++
			if consecutiveErrors >= maxErrors {
				appLogger.WithError(err).Error("Too many consecutive poll failures, exiting")
				return
			}
			backoff := time.Duration(consecutiveErrors) * 10 * time.Second
			if backoff > time.Minute {
				backoff = time.Minute
			}
			appLogger.WithError(err).WithFields(logger.Fields{
				"backoff": backoff.String(),
			}).Warn("Poll failed, backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}
		consecutiveErrors = 0

		if job == nil {
			continue
		}

		err = orchestrator.Resume(ctx, job)
		switch {
		case err == nil:
			appLogger.WithField(logger.FieldJobID, job.ID).Info("Adopted pending job")
		case isCapacityError(err):
			// All slots busy, the job stays pending for the next poll
		case errors.Is(err, domain.ErrJobFinished):
			// Finished between poll and resume, nothing to do
		default:
			appLogger.WithError(err).WithField(logger.FieldJobID, job.ID).Warn("Failed to resume job")
		}
	}
}

func isCapacityError(err error) bool {
	var capacityErr *domain.CapacityError
	return errors.As(err, &capacityErr)
}
