// Package config loads the proxy daemon's configuration from the
// environment, with optional .env file support.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every knob the daemon exposes. Numeric fields carry the
// same defaults the service has always run with.
type Config struct {
	Email       string
	APIKey      string
	StaticToken string
	Environment string
	Endpoint    string

	ListenAddr      string
	Timeout         time.Duration
	MaxRetries      int
	BackoffBase     float64
	RefreshInterval time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is merged in first, without overriding variables
// already set.
func Load() (*Config, error) {
	// Missing .env is the common case in production.
	_ = godotenv.Load()

	cfg := &Config{
		Email:       os.Getenv("OPENAPI_EMAIL"),
		APIKey:      os.Getenv("OPENAPI_API_KEY"),
		StaticToken: os.Getenv("OPENAPI_STATIC_TOKEN"),
		Environment: getEnv("OPENAPI_ENVIRONMENT", "production"),
		Endpoint:    getEnv("OPENAPI_ENDPOINT", "IT-full"),
		ListenAddr:  getEnv("PROXY_LISTEN_ADDR", ":5000"),
	}

	timeoutSeconds, err := getInt("PROXY_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.Timeout = time.Duration(timeoutSeconds) * time.Second

	cfg.MaxRetries, err = getInt("PROXY_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	cfg.BackoffBase, err = getFloat("PROXY_BACKOFF_BASE", 1.5)
	if err != nil {
		return nil, err
	}

	refreshMinutes, err := getInt("PROXY_TOKEN_REFRESH_MINUTES", 45)
	if err != nil {
		return nil, err
	}
	cfg.RefreshInterval = time.Duration(refreshMinutes) * time.Minute

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	return f, nil
}
