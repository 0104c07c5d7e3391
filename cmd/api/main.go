package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clippilot/internal/config"
	"clippilot/internal/domain"
	httpapi "clippilot/internal/http"
	"clippilot/internal/http/handlers"
	"clippilot/internal/pkg/logger"
	"clippilot/internal/repository/redis"
	"clippilot/internal/service/api"
	"clippilot/internal/service/pipeline"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate API-specific configuration
	if err := cfg.ValidateForAPI(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting API service...")

	// Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Caption pipeline
	captions, err := pipeline.Build(cfg, log, reg)
	if err != nil {
		log.Error("Failed to build caption pipeline", "error", err)
		os.Exit(1)
	}
	defer captions.Close()

	healthChecks := map[string]handlers.HealthCheck{}

	// Connect to Redis (optional; enables async caption jobs)
	var queueRepo domain.QueueRepository
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(context.Background(), cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		queueRepo = redis.NewQueueRepository(redisClient, log, redis.WithMaxRetries(cfg.JobMaxRetries))
		healthChecks["redis"] = redis.HealthCheck(redisClient)
	} else {
		log.Info("REDIS_URL not set, caption job routes disabled")
	}

	router := httpapi.NewRouter(log, httpapi.RouterConfig{
		Extractor:    captions.Resolver,
		Queue:        queueRepo,
		APIKey:       cfg.APIKey,
		Gatherer:     reg,
		HealthChecks: healthChecks,
	})

	// Create API service
	apiService := api.New(cfg, log, router.SetupRoutes())

	// Create a channel to track shutdown completion
	done := make(chan struct{})

	// Start API service in a goroutine
	go func() {
		defer close(done)
		if err := apiService.Start(); err != nil {
			log.Error("API service failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for either shutdown signal or service completion
	select {
	case <-quit:
		log.Info("Shutdown signal received, stopping API service...")
	case <-done:
		log.Info("API service completed")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop API service
	if err := apiService.Stop(ctx); err != nil {
		log.Error("Error stopping API service", "error", err)
	}

	log.Info("API service shutdown complete")
}
