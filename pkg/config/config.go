package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the client settings for one session.
type Config struct {
	ServerURL    string `validate:"required,url"`
	PushURL      string `validate:"required,url"`
	Token        string
	PollInterval time.Duration
	MetricsPort  string
	Env          string
}

// Load reads the configuration from the environment, falling back to
// development defaults.
func Load() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	pollInterval, err := time.ParseDuration(getEnv("WAYFARER_POLL_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid WAYFARER_POLL_INTERVAL: %w", err)
	}

	cfg := &Config{
		ServerURL:    getEnv("WAYFARER_SERVER_URL", "http://localhost:8080/api/v1"),
		PushURL:      getEnv("WAYFARER_PUSH_URL", "ws://localhost:8080/api/v1/realtime"),
		Token:        getEnv("WAYFARER_TOKEN", ""),
		PollInterval: pollInterval,
		MetricsPort:  getEnv("METRICS_PORT", "9090"),
		Env:          getEnv("ENV", "development"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
