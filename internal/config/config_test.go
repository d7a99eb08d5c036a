package config

import (
	"errors"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIBaseURL != DefaultBaseURL {
		t.Fatalf("unexpected base URL: %q", cfg.APIBaseURL)
	}
	if cfg.ChunkSize != 30 {
		t.Fatalf("unexpected chunk size: %d", cfg.ChunkSize)
	}
	if cfg.Store.Postgres.Port != 5432 {
		t.Fatalf("unexpected db port: %d", cfg.Store.Postgres.Port)
	}
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("DEFAULT_MODEL", "other-model")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("CONFIRM_CONTINUE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model != "other-model" {
		t.Fatalf("unexpected model: %q", cfg.Model)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("unexpected driver: %q", cfg.Store.Driver)
	}
	if !cfg.ConfirmContinue {
		t.Fatalf("expected confirm-continue enabled")
	}
}

func TestLoadRejectsBadTemperature(t *testing.T) {
	t.Setenv("DEFAULT_TEMPERATURE", "1.5")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for out-of-range temperature")
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := &Config{}
	if err := cfg.RequireAPIKey(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	cfg.APIKey = "k"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
