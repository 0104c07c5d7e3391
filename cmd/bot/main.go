package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clippilot/internal/config"
	"clippilot/internal/pkg/logger"
	"clippilot/internal/repository/redis"
	"clippilot/internal/service/bot"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Validate bot-specific configuration
	if err := cfg.ValidateForBot(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting Discord bot service...")

	// Connect to Redis
	redisClient, err := redis.NewClient(context.Background(), cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	queueRepo := redis.NewQueueRepository(redisClient, log, redis.WithMaxRetries(cfg.JobMaxRetries))

	// Create bot service
	botService, err := bot.New(cfg, log, queueRepo)
	if err != nil {
		log.Error("Failed to create bot service", "error", err)
		os.Exit(1)
	}

	// Create a channel to track shutdown completion
	done := make(chan struct{})

	// Start bot service in a goroutine
	go func() {
		defer close(done)
		if err := botService.Start(); err != nil {
			log.Error("Bot service failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for either shutdown signal or service completion
	select {
	case <-quit:
		log.Info("Shutdown signal received, stopping bot service...")
	case <-done:
		log.Info("Bot service completed")
	}

	// Stop bot service
	if err := botService.Stop(); err != nil {
		log.Error("Error stopping bot service", "error", err)
	}

	log.Info("Bot service shutdown complete")
}
