package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 0\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.AI.DefaultProvider != "openai" {
		t.Errorf("default provider = %q", cfg.AI.DefaultProvider)
	}
	if cfg.AI.RateLimitPerMin != 60 {
		t.Errorf("rate limit = %d", cfg.AI.RateLimitPerMin)
	}
	if cfg.AI.CacheTTLSeconds != 300 {
		t.Errorf("cache ttl = %d", cfg.AI.CacheTTLSeconds)
	}
	if cfg.Auth.CookieName != "outreach_session" {
		t.Errorf("cookie name = %q", cfg.Auth.CookieName)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: 0.0.0.0
database:
  url: postgres://localhost/outreach
ai:
  default_provider: bedrock
  bedrock_region: eu-west-1
  rate_limit_per_min: 10
redis:
  addr: redis:6379
  enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://localhost/outreach" {
		t.Errorf("db url = %q", cfg.Database.URL)
	}
	if cfg.AI.DefaultProvider != "bedrock" || cfg.AI.BedrockRegion != "eu-west-1" {
		t.Errorf("ai config = %+v", cfg.AI)
	}
	if !cfg.Redis.Enabled {
		t.Error("redis should be enabled")
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	path := writeConfig(t, "database:\n  url: postgres://yaml-url\n")

	t.Setenv("DATABASE_URL", "postgres://env-url")
	t.Setenv("KEYSTORE_MASTER_KEY", "env-master-key")

	cfg, err := LoadFromEnv(path)
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Database.URL != "postgres://env-url" {
		t.Errorf("db url = %q, env must win", cfg.Database.URL)
	}
	if cfg.Crypto.MasterKey != "env-master-key" {
		t.Errorf("master key = %q", cfg.Crypto.MasterKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
