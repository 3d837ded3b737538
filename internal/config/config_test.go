package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMinimal(t *testing.T) {
	path := writeConfig(t, "port: \"5000\"\nlogLevel: debug\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "5000" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRequiresPort(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected missing port to fail validation")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "port: \"5000\"\ndatabaseURL: file-dsn\n")
	t.Setenv("DATABASE_URL", "env-dsn")
	t.Setenv("PORT", "8080")
	t.Setenv("PURCHASE_RATE_LIMIT_PER_MINUTE", "12")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "env-dsn" {
		t.Fatalf("databaseURL = %q, want env-dsn", cfg.DatabaseURL)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Port)
	}
	if cfg.PurchaseRateLimitPerMinute != 12 {
		t.Fatalf("rate limit = %d, want 12", cfg.PurchaseRateLimitPerMinute)
	}
}

func TestMinioRequiresBucket(t *testing.T) {
	path := writeConfig(t, "port: \"5000\"\nminioEndpoint: localhost:9000\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected endpoint without bucket to fail validation")
	}
}

func TestParseTTL(t *testing.T) {
	dur, err := ParseTTL("", 42*time.Second)
	if err != nil || dur != 42*time.Second {
		t.Fatalf("empty ttl = %v/%v, want fallback", dur, err)
	}
	dur, err = ParseTTL("90s", time.Second)
	if err != nil || dur != 90*time.Second {
		t.Fatalf("ttl = %v/%v, want 90s", dur, err)
	}
	if _, err := ParseTTL("soon", time.Second); err == nil {
		t.Fatal("expected invalid duration to fail")
	}
}
