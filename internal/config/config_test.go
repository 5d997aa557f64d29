package config_test

import (
	"testing"
	"time"

	"github.com/elance/franquias-portal-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("STORE", "")

	cfg := config.Load()
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.Store != "memory" {
		t.Errorf("expected memory store, got %q", cfg.Store)
	}
	if cfg.PollInterval != 60*time.Second {
		t.Errorf("expected 60s poll interval, got %s", cfg.PollInterval)
	}
	if cfg.StoreTimeout != 30*time.Second {
		t.Errorf("expected 30s store timeout, got %s", cfg.StoreTimeout)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("expected retries disabled by default, got %d", cfg.MaxRetries)
	}
	if cfg.LeadRateLimit != "10-M" || cfg.JWTAccessTTL != time.Hour {
		t.Errorf("unexpected lead limit %q / access ttl %s", cfg.LeadRateLimit, cfg.JWTAccessTTL)
	}
}

func TestLoad_StoreSelection(t *testing.T) {
	t.Setenv("STORE", "")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("DATABASE_URL", "")
	if got := config.Load().Store; got != "supabase" {
		t.Errorf("expected supabase, got %q", got)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/elance")
	if got := config.Load().Store; got != "postgres" {
		t.Errorf("expected postgres, got %q", got)
	}
}

func TestLoad_CORSOriginsList(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.com, https://b.com,,")
	cfg := config.Load()
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.com" {
		t.Errorf("unexpected origins: %v", cfg.CORSOrigins)
	}
}
