package config

import (
	"slices"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/incidentdesk")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_ENDPOINT", "localhost:9000")
	t.Setenv("STORAGE_BUCKET", "incident-attachments")
}

func TestLoadDefaultsPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "3000" {
		t.Fatalf("Port = %q, want 3000", cfg.Port)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load must fail without JWT_SECRET")
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load must fail without DATABASE_URL")
	}
}

func TestAllowedOriginsMergeEnvAdditions(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLIENT_URL", "https://app.incidentdesk.example")
	t.Setenv("ALLOWED_ORIGINS", "https://staging.incidentdesk.example, https://ops.incidentdesk.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, origin := range []string{
		"http://localhost:3000",
		"https://app.incidentdesk.example",
		"https://staging.incidentdesk.example",
		"https://ops.incidentdesk.example",
	} {
		if !slices.Contains(cfg.AllowedOrigins, origin) {
			t.Fatalf("AllowedOrigins missing %q: %v", origin, cfg.AllowedOrigins)
		}
	}
}
