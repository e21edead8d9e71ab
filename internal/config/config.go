// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings of the HTTP service and the CLI
type Config struct {
	Addr string
	// DBPath is the SQLite file; empty selects ~/.cvrp-router/runs.db
	DBPath string
	// DatabaseURL switches the run store to Postgres when set
	DatabaseURL string
	// RedisURL enables the shared solution cache when set
	RedisURL         string
	SolutionCacheTTL time.Duration
	RateRPS          float64
	RateBurst        int
	// OSRMBaseURL enables the osrm metric when set
	OSRMBaseURL     string
	DefaultStrategy string
}

// Load reads .env if present, then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:            getEnv("SERVER_ADDR", "127.0.0.1:8080"),
		DBPath:          getEnv("DB_PATH", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		OSRMBaseURL:     getEnv("OSRM_BASE_URL", ""),
		DefaultStrategy: getEnv("DEFAULT_STRATEGY", "cheapest_insertion"),
	}

	ttl, err := time.ParseDuration(getEnv("SOLUTION_CACHE_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SOLUTION_CACHE_TTL: %w", err)
	}
	cfg.SolutionCacheTTL = ttl

	rps, err := strconv.ParseFloat(getEnv("RATE_RPS", "20"), 64)
	if err != nil || rps < 0 {
		return nil, fmt.Errorf("invalid RATE_RPS %q", os.Getenv("RATE_RPS"))
	}
	cfg.RateRPS = rps

	burst, err := strconv.Atoi(getEnv("RATE_BURST", "40"))
	if err != nil || burst < 0 {
		return nil, fmt.Errorf("invalid RATE_BURST %q", os.Getenv("RATE_BURST"))
	}
	cfg.RateBurst = burst

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
