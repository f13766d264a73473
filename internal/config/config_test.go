package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if !cfg.Identity.AnonymousIDs {
		t.Error("Anonymous pseudo-ids should be on by default")
	}
	if cfg.Realtime.RelayEnabled() {
		t.Error("Relay should be off without REDIS_ADDR")
	}
	if cfg.Realtime.PongTimeout != 60*time.Second {
		t.Errorf("Unexpected pong timeout %v", cfg.Realtime.PongTimeout)
	}
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_ENV", "")

	if _, err := Load(); err == nil {
		t.Error("Expected error without JWT_SECRET")
	}
}

func TestLoadDatabase_WithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_ENV", "")

	cfg, err := LoadDatabase()
	if err != nil {
		t.Fatalf("LoadDatabase failed: %v", err)
	}
	if cfg.Server.MigrationsPath != "./migrations" {
		t.Errorf("Unexpected migrations path %s", cfg.Server.MigrationsPath)
	}

	cfg.Database.Host = ""
	if err := cfg.Database.Validate(); err == nil {
		t.Error("Expected error without DB_HOST")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	content := "JWT_SECRET=from-file\nREDIS_ADDR=localhost:6379\nWS_ALLOWED_ORIGINS=https://a.example, https://b.example\n"
	if err := os.WriteFile(filepath.Join(dir, ".env.staging"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("APP_ENV", "staging")
	// Registered with t.Setenv so values injected by godotenv are restored
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("WS_ALLOWED_ORIGINS", "")
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("WS_ALLOWED_ORIGINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-file" {
		t.Errorf("Expected secret from .env.staging, got %q", cfg.Auth.JWTSecret)
	}
	if !cfg.Realtime.RelayEnabled() {
		t.Error("Relay should be enabled from file")
	}
	if len(cfg.Realtime.AllowedOrigins) != 2 || cfg.Realtime.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins %v", cfg.Realtime.AllowedOrigins)
	}
}

func TestGetListEnv(t *testing.T) {
	t.Setenv("LIST_TEST", " , ")
	got := getListEnv("LIST_TEST", []string{"x"})
	if len(got) != 1 || got[0] != "x" {
		t.Errorf("Blank list should fall back to default, got %v", got)
	}
}
