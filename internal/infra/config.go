package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
// The same struct serves the gentrack CLI and the jobsim development service;
// each binary reads the fields it needs.
type Config struct {
	AppEnv string

	// Remote job service (gentrack CLI).
	RemoteBaseURL string
	APIKey        string

	// Tracker tuning.
	PollInterval    time.Duration
	PollCeiling     time.Duration
	BackoffCap      time.Duration
	RetentionWindow time.Duration

	// jobsim service.
	Port             string
	StoragePath      string
	StorageBaseURL   string
	SimTickInterval  time.Duration
	SimQuotaPerKey   int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		RemoteBaseURL:    getEnv("GENTRACK_BASE_URL", "http://localhost:8080"),
		APIKey:           os.Getenv("GENTRACK_API_KEY"),
		PollInterval:     time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 5)),
		PollCeiling:      time.Minute * time.Duration(getEnvInt("POLL_CEILING_MINUTES", 10)),
		BackoffCap:       time.Second * time.Duration(getEnvInt("POLL_BACKOFF_CAP_SECONDS", 60)),
		RetentionWindow:  time.Hour * time.Duration(getEnvInt("COMPLETED_RETENTION_HOURS", 24)),
		Port:             getEnv("PORT", "8080"),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:   getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		SimTickInterval:  time.Second * time.Duration(getEnvInt("SIM_TICK_SECONDS", 2)),
		SimQuotaPerKey:   getEnvInt("SIM_QUOTA_PER_KEY", 50),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}

	if cfg.PollCeiling <= cfg.PollInterval {
		return nil, fmt.Errorf("POLL_CEILING_MINUTES must exceed the poll interval")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
