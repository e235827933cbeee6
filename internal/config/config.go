// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, the process
// exits before touching the network or the database.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the backend.
type Config struct {
	Port        string
	DatabaseURL string

	// RedisURL is optional. When empty the feed cache and sync events are
	// disabled and the rest of the service runs normally.
	RedisURL string

	// GeminiAPIKey is optional. When empty the LLM and resume endpoints
	// report 503 instead of failing at startup.
	GeminiAPIKey string

	// GitHubToken is optional; it only raises the GitHub API rate limit
	// for archive discovery.
	GitHubToken string

	// SyncCron is a robfig/cron spec (e.g. "@every 6h"). Empty disables the
	// background scheduler; syncs are then triggered only via POST /sync.
	SyncCron string

	SyncLimit      int // per-source fetch cap used by scheduled syncs
	SyncWindowDays int // inactivity window used by scheduled syncs
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	limit := 1000
	if s := os.Getenv("SYNC_LIMIT"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SYNC_LIMIT must be a positive integer, got %q", s)
		}
		limit = v
	}

	window := 7
	if s := os.Getenv("SYNC_WINDOW_DAYS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 365 {
			return nil, fmt.Errorf("SYNC_WINDOW_DAYS must be in [1, 365], got %q", s)
		}
		window = v
	}

	return &Config{
		Port:           port,
		DatabaseURL:    dbURL,
		RedisURL:       os.Getenv("REDIS_URL"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GitHubToken:    os.Getenv("GITHUB_TOKEN"),
		SyncCron:       os.Getenv("SYNC_CRON"),
		SyncLimit:      limit,
		SyncWindowDays: window,
	}, nil
}
