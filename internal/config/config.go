// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	IndexURL         string
	DatabasePath     string
	LogLevel         string
	PollInterval     time.Duration
	HTTPTimeout      time.Duration
	TailWindow       int
	MaxListings      int
	FetchConcurrency int
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	indexURL := os.Getenv("INDEX_URL")
	if indexURL == "" {
		return nil, fmt.Errorf("INDEX_URL is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	pollInterval, err := durationEnv("POLL_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	httpTimeout, err := durationEnv("HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	tailWindow, err := intEnv("TAIL_WINDOW", 19)
	if err != nil {
		return nil, err
	}
	if tailWindow < 1 {
		return nil, fmt.Errorf("TAIL_WINDOW must be positive")
	}

	maxListings, err := intEnv("MAX_LISTINGS", 5000)
	if err != nil {
		return nil, err
	}
	// Eviction must never eat into the anchor tail.
	if maxListings <= tailWindow*2 {
		return nil, fmt.Errorf("MAX_LISTINGS (%d) must exceed twice TAIL_WINDOW (%d)", maxListings, tailWindow)
	}

	fetchConcurrency, err := intEnv("FETCH_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	if fetchConcurrency < 1 {
		return nil, fmt.Errorf("FETCH_CONCURRENCY must be positive")
	}

	return &Config{
		TelegramBotToken: token,
		IndexURL:         indexURL,
		DatabasePath:     dbPath,
		LogLevel:         logLevel,
		PollInterval:     pollInterval,
		HTTPTimeout:      httpTimeout,
		TailWindow:       tailWindow,
		MaxListings:      maxListings,
		FetchConcurrency: fetchConcurrency,
	}, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
