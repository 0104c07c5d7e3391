package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultStrategies is the caption strategy chain used when none is configured
const DefaultStrategies = "static,composite"

type Config struct {
	Port         string
	RedisURL     string
	DiscordToken string
	APIKey       string
	LogLevel     string

	// Caption extraction
	Strategies        []string
	UserAgent         string
	AcceptLanguage    string
	FetchTimeout      time.Duration
	RenderTimeout     time.Duration
	RenderWaitTimeout time.Duration
	MaxRenderSessions int
	ChromePath        string
	YtdlpPath         string
	YtdlpTimeout      time.Duration

	// Queue
	JobMaxRetries     int
	QueueBlockTimeout time.Duration

	// Worker
	WorkerPollInterval time.Duration
}

func Load() *Config {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	config := fromEnv()
	strategies := strings.Join(config.Strategies, ",")

	// Command line flags override environment
	flag.StringVar(&config.Port, "port", config.Port, "Server port")
	flag.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level")
	flag.StringVar(&strategies, "strategies", strategies, "Comma separated caption strategy chain")
	flag.Parse()

	config.Strategies = SplitList(strategies)

	return config
}

// fromEnv reads every setting from the environment, applying defaults
func fromEnv() *Config {
	config := &Config{
		Port:              getEnvWithDefault("PORT", "8080"),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		UserAgent:         getEnvWithDefault("CAPTION_USER_AGENT", defaultUserAgent),
		AcceptLanguage:    getEnvWithDefault("CAPTION_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
		FetchTimeout:      getDurationWithDefault("FETCH_TIMEOUT", 10*time.Second),
		RenderTimeout:     getDurationWithDefault("RENDER_TIMEOUT", 20*time.Second),
		RenderWaitTimeout: getDurationWithDefault("RENDER_WAIT_TIMEOUT", 10*time.Second),
		MaxRenderSessions: getIntWithDefault("MAX_RENDER_SESSIONS", 4),
		ChromePath:        getEnvWithDefault("CHROME_PATH", ""),
		YtdlpPath:         getEnvWithDefault("YTDLP_PATH", "yt-dlp"),
		YtdlpTimeout:      getDurationWithDefault("YTDLP_TIMEOUT", 45*time.Second),

		JobMaxRetries:     getIntWithDefault("JOB_MAX_RETRIES", 3),
		QueueBlockTimeout: getDurationWithDefault("QUEUE_BLOCK_TIMEOUT", time.Second),

		WorkerPollInterval: getDurationWithDefault("WORKER_POLL_INTERVAL", 5*time.Second),
	}

	// Optional services
	config.RedisURL = getEnvWithDefault("REDIS_URL", "")
	config.DiscordToken = getEnvWithDefault("DISCORD_TOKEN", "")
	config.APIKey = getEnvWithDefault("API_KEY", "")

	config.Strategies = SplitList(getEnvWithDefault("CAPTION_STRATEGIES", DefaultStrategies))

	return config
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

func getIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

// SplitList splits a comma separated list, dropping blanks
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		item := strings.TrimSpace(part)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ValidateForWorker ensures all required fields for worker service are present
func (c *Config) ValidateForWorker() error {
	if c.RedisURL == "" {
		return errors.New("environment variable REDIS_URL is required for worker service")
	}
	return c.validateStrategies()
}

// ValidateForBot ensures all required fields for bot service are present
func (c *Config) ValidateForBot() error {
	if c.DiscordToken == "" {
		return errors.New("environment variable DISCORD_TOKEN is required for bot service")
	}
	if c.RedisURL == "" {
		return errors.New("environment variable REDIS_URL is required for bot service")
	}
	return nil
}

// ValidateForAPI ensures all required fields for API service are present
func (c *Config) ValidateForAPI() error {
	// Redis is optional for the API; caption job routes are disabled without it
	return c.validateStrategies()
}

func (c *Config) validateStrategies() error {
	if len(c.Strategies) == 0 {
		return errors.New("at least one caption strategy must be configured")
	}
	return nil
}
