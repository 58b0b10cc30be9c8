package config

import (
	"errors"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_URL", "postgres://localhost:5432/coachhub?sslmode=disable")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "dev")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if !cfg.IsDevelopment() {
		t.Errorf("expected dev to normalize to development, got %q", cfg.AppEnv)
	}
	if cfg.Location().String() != "UTC" {
		t.Errorf("expected UTC location, got %s", cfg.Location())
	}
	if cfg.RedisEnabled() {
		t.Errorf("expected redis to be disabled without REDIS_ADDR")
	}
	if cfg.StorageEnabled() {
		t.Errorf("expected storage to be disabled without SUPABASE_*")
	}
}

func TestLoadConfigReadsOptionalSections(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_TIMEZONE", "Europe/Berlin")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_BUCKET", "programs")
	t.Setenv("SUPABASE_SERVICE_KEY", "key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Location().String() != "Europe/Berlin" {
		t.Errorf("expected Europe/Berlin, got %s", cfg.Location())
	}
	if !cfg.RedisEnabled() || cfg.Redis.DB != 2 {
		t.Errorf("expected redis db 2 enabled, got %+v", cfg.Redis)
	}
	if !cfg.StorageEnabled() {
		t.Errorf("expected storage to be enabled")
	}
}

func TestLoadConfigRejectsUnknownTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")

	_, err := LoadConfig()
	if !errors.Is(err, ErrConfigNotLoaded) {
		t.Fatalf("expected ErrConfigNotLoaded, got %v", err)
	}
}

func TestNormalizeEnv(t *testing.T) {
	cases := map[string]string{
		"local":   "development",
		"PROD":    "production",
		" stage ": "staging",
		"testing": "test",
		"custom":  "custom",
	}
	for in, want := range cases {
		if got := normalizeEnv(in); got != want {
			t.Errorf("normalizeEnv(%q) = %q, want %q", in, got, want)
		}
	}
}
