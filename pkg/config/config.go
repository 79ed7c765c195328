package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Search SearchConfig
	DB     DBConfig
	Cache  CacheConfig
	Jobs   JobsConfig

	// MetricsAddr is the listen address of the metrics endpoint.
	MetricsAddr string

	LogLevel string
}

// SearchConfig holds search index configuration
type SearchConfig struct {
	// IndexPath is the on-disk location of the search index.
	IndexPath string

	// PageSize is the default page size for searches that don't specify one.
	PageSize int
}

// DBConfig holds primary store configuration
type DBConfig struct {
	// Driver selects the database driver: sqlite3 or postgres.
	Driver string

	// URL is the driver-specific connection string.
	URL string

	// FilesRoot is the directory backing the blob store.
	FilesRoot string
}

// CacheConfig holds hydration cache configuration. RedisURL is optional;
// without it only the in-process cache is used.
type CacheConfig struct {
	RedisURL string
	Size     int
	TTL      time.Duration
}

// JobsConfig holds reconciliation job configuration. Schedules are cron
// expressions; an empty schedule disables the job.
type JobsConfig struct {
	Workers         int
	ScanBatchSize   int
	ResaveSchedule  string
	ConvertSchedule string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Search: SearchConfig{
			IndexPath: getEnv("PASTEBIN_INDEX_PATH", "data/search.bleve"),
			PageSize:  getEnvInt("PASTEBIN_PAGE_SIZE", 20),
		},
		DB: DBConfig{
			Driver:    getEnv("PASTEBIN_DB_DRIVER", "sqlite3"),
			URL:       getEnv("PASTEBIN_DB_URL", "data/pastebin.db"),
			FilesRoot: getEnv("PASTEBIN_FILES_ROOT", "data/files"),
		},
		Cache: CacheConfig{
			RedisURL: getEnv("PASTEBIN_REDIS_URL", ""),
			Size:     getEnvInt("PASTEBIN_CACHE_SIZE", 1024),
			TTL:      getEnvDuration("PASTEBIN_CACHE_TTL", 5*time.Minute),
		},
		Jobs: JobsConfig{
			Workers:         getEnvInt("PASTEBIN_JOB_WORKERS", 4),
			ScanBatchSize:   getEnvInt("PASTEBIN_SCAN_BATCH_SIZE", 100),
			ResaveSchedule:  getEnv("PASTEBIN_RESAVE_SCHEDULE", "@daily"),
			ConvertSchedule: getEnv("PASTEBIN_CONVERT_SCHEDULE", ""),
		},
		MetricsAddr: getEnv("PASTEBIN_METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("PASTEBIN_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Search.IndexPath == "" {
		return fmt.Errorf("index path is required")
	}
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.Search.PageSize)
	}

	switch c.DB.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("invalid db driver: %s (must be sqlite3 or postgres)", c.DB.Driver)
	}
	if c.DB.URL == "" {
		return fmt.Errorf("db URL is required")
	}
	if c.DB.FilesRoot == "" {
		return fmt.Errorf("files root is required")
	}

	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache size must be positive, got %d", c.Cache.Size)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got %s", c.Cache.TTL)
	}

	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("job workers must be positive, got %d", c.Jobs.Workers)
	}
	if c.Jobs.ScanBatchSize <= 0 {
		return fmt.Errorf("scan batch size must be positive, got %d", c.Jobs.ScanBatchSize)
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
