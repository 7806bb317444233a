// Package config handles loading runtime configuration for the IDPA match API.
// Values are read from environment variables rather than being hardcoded, so the same
// binary can run in dev, staging, and production by swapping the environment.
package config

import (
	"fmt"
	"os"
	"time"

	// godotenv reads a .env file and loads its key=value pairs into the process environment.
	// Convenient in development; in production real env vars are used instead.
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values for the application.
type Config struct {
	Port           string // The TCP port the HTTP server will listen on (e.g., "8080")
	Env            string // "development", "staging", or "production"
	DatabaseURL    string // PostgreSQL connection string
	MigrationsPath string // golang-migrate source URL, e.g. "file://migrations"
	JWTSecret      string // HS256 signing key; empty disables signature checks (development only)

	RedisURL           string // Optional; enables publishing score events to Redis
	ScoreEventsChannel string // Redis channel for score-changed events

	BadgeSweepInterval time.Duration // How often completed tournaments are checked for badges

	Results ResultsConfig
}

// ResultsConfig points at the S3-compatible bucket that final results are archived to.
// Archiving is off when Bucket is empty.
type ResultsConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether results archiving is configured.
func (r ResultsConfig) Enabled() bool {
	return r.Bucket != ""
}

// Load reads configuration from environment variables and returns a populated Config.
// It first tries to load a .env file for local development; a missing .env is fine.
func Load() (*Config, error) {
	_ = godotenv.Load()

	sweep, err := time.ParseDuration(getenv("BADGE_SWEEP_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("BADGE_SWEEP_INTERVAL: %w", err)
	}
	if sweep <= 0 {
		return nil, fmt.Errorf("BADGE_SWEEP_INTERVAL must be positive, got %s", sweep)
	}

	cfg := &Config{
		Port:               getenv("PORT", "8080"),
		Env:                getenv("ENV", "development"),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Required; Load fails without it
		MigrationsPath:     getenv("MIGRATIONS_PATH", "file://migrations"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ScoreEventsChannel: getenv("SCORE_EVENTS_CHANNEL", "scores.changed"),
		BadgeSweepInterval: sweep,
		Results: ResultsConfig{
			Bucket:          os.Getenv("RESULTS_BUCKET"),
			Endpoint:        os.Getenv("RESULTS_ENDPOINT"),
			Region:          getenv("RESULTS_REGION", "auto"),
			AccessKeyID:     os.Getenv("RESULTS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("RESULTS_SECRET_ACCESS_KEY"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" && cfg.Env == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	return cfg, nil
}

// getenv returns the environment variable or fallback when it is unset or empty.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
