package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("POLL_INTERVAL_SECONDS", "")
	t.Setenv("GENTRACK_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.PollCeiling != 10*time.Minute {
		t.Fatalf("PollCeiling = %v, want 10m", cfg.PollCeiling)
	}
	if cfg.RemoteBaseURL != "http://localhost:8080" {
		t.Fatalf("RemoteBaseURL = %q", cfg.RemoteBaseURL)
	}
	if cfg.RetentionWindow != 24*time.Hour {
		t.Fatalf("RetentionWindow = %v, want 24h", cfg.RetentionWindow)
	}
}

func TestLoadConfigHonorsOverrides(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "2")
	t.Setenv("POLL_CEILING_MINUTES", "1")
	t.Setenv("POLL_BACKOFF_CAP_SECONDS", "30")
	t.Setenv("GENTRACK_BASE_URL", "https://api.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
	if cfg.PollCeiling != time.Minute {
		t.Fatalf("PollCeiling = %v, want 1m", cfg.PollCeiling)
	}
	if cfg.BackoffCap != 30*time.Second {
		t.Fatalf("BackoffCap = %v, want 30s", cfg.BackoffCap)
	}
	if cfg.RemoteBaseURL != "https://api.example.com" {
		t.Fatalf("RemoteBaseURL = %q", cfg.RemoteBaseURL)
	}
}

func TestLoadConfigRejectsCeilingBelowInterval(t *testing.T) {
	t.Setenv("POLL_INTERVAL_SECONDS", "120")
	t.Setenv("POLL_CEILING_MINUTES", "1")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when ceiling does not exceed interval")
	}
}
