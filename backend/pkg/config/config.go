package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"bookmap/backend/internal/constants"
	apperrors "bookmap/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string

	// Neo4j
	Neo4jURI       string
	Neo4jUser      string
	Neo4jPassword  string
	Neo4jDatabase  string        // empty selects the server default database
	Neo4jMaxTxTime time.Duration // driver budget for retrying transient failures

	// Resolution
	ConflictRetries  int
	AncestorCacheTTL time.Duration

	// Ingest
	IngestWorkers int

	// Observability
	MetricsEnabled bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", ""),
		Neo4jURI:         getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:        getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:    getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:    getEnv("NEO4J_DATABASE", ""),
		Neo4jMaxTxTime:   getEnvDuration("NEO4J_MAX_TX_RETRY", 30*time.Second),
		ConflictRetries:  getEnvInt("CONFLICT_RETRIES", constants.DefaultConflictRetries),
		AncestorCacheTTL: getEnvDuration("ANCESTOR_CACHE_TTL", constants.DefaultAncestorCacheTTL),
		IngestWorkers:    getEnvInt("INGEST_WORKERS", constants.DefaultIngestWorkers),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_URI")
	}
	if c.Neo4jUser == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_USER")
	}
	if c.Neo4jPassword == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
	}
	if c.ConflictRetries < 0 {
		return apperrors.NewConfigValidationFailed("CONFLICT_RETRIES", "must not be negative")
	}
	if c.IngestWorkers < 1 {
		return apperrors.NewConfigValidationFailed("INGEST_WORKERS", "must be at least 1")
	}
	if c.AncestorCacheTTL < 0 {
		return apperrors.NewConfigValidationFailed("ANCESTOR_CACHE_TTL", "must not be negative")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	case "0", "false", "FALSE", "no":
		return false
	}
	return defaultValue
}
