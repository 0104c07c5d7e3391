package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"clippilot/internal/config"
	"clippilot/internal/domain"
	"clippilot/internal/pkg/logger"
	"clippilot/internal/repository/redis"
	"clippilot/internal/service/pipeline"
	"clippilot/internal/service/worker"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate worker-specific configuration
	if err := cfg.ValidateForWorker(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting worker service...")

	// Connect to Redis
	redisClient, err := redis.NewClient(context.Background(), cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	queueRepo := redis.NewQueueRepository(redisClient, log,
		redis.WithMaxRetries(cfg.JobMaxRetries),
		redis.WithDequeueTimeout(cfg.QueueBlockTimeout),
	)

	// Caption pipeline; the worker exposes no metrics endpoint
	captions, err := pipeline.Build(cfg, log, nil)
	if err != nil {
		log.Error("Failed to build caption pipeline", "error", err)
		os.Exit(1)
	}
	defer captions.Close()

	// Discord notifications (optional)
	var notifier worker.Notifier
	if cfg.DiscordToken != "" {
		discordNotifier, err := worker.NewDiscordNotifier(cfg.DiscordToken, log)
		if err != nil {
			log.Warn("Failed to create Discord notifier", "error", err)
		} else {
			notifier = discordNotifier
		}
	}

	// Create worker service
	workerService := worker.New(cfg, log, queueRepo, captions.Resolver, notifier)

	healthCtx, healthCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = workerService.HealthCheck(healthCtx)
	healthCancel()
	if err != nil {
		log.Error("Worker health check failed", "error", err)
		os.Exit(1)
	}
	logQueueStats(log, queueRepo, "Queue state at startup")

	// Create a channel to track shutdown completion
	done := make(chan struct{})

	// Start worker service in a goroutine
	go func() {
		defer close(done)
		if err := workerService.Start(); err != nil {
			log.Error("Worker service failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for either shutdown signal or service completion
	select {
	case <-quit:
		log.Info("Shutdown signal received, stopping worker service...")
	case <-done:
		log.Info("Worker service completed")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop worker service
	if err := workerService.Stop(ctx); err != nil {
		log.Error("Error stopping worker service", "error", err)
	}

	stats := workerService.GetStats()
	log.Info("Worker service shutdown complete",
		"jobs_processed", stats.JobsProcessed,
		"jobs_succeeded", stats.JobsSucceeded,
		"jobs_failed", stats.JobsFailed,
		"average_job_time", stats.AverageJobTime,
	)
	logQueueStats(log, queueRepo, "Queue state at shutdown")
}

func logQueueStats(log *slog.Logger, queueRepo *redis.QueueRepository, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := queueRepo.GetQueueStats(ctx, domain.JobTypeExtractCaption)
	if err != nil {
		log.Warn("Failed to read queue stats", "error", err)
		return
	}

	attrs := make([]any, 0, len(stats)*2)
	for _, key := range slices.Sorted(maps.Keys(stats)) {
		attrs = append(attrs, key, stats[key])
	}
	log.Info(msg, attrs...)
}
