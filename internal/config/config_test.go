package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "CORS_ORIGINS", "DATABASE_URL", "AI_PROVIDER", "AI_MODEL", "AI_BASE_URL", "AI_API_KEY",
		"AI_TIMEOUT_SECONDS", "GROQ_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OLLAMA_HOST", "EMBEDDINGS_ENABLED",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8081" || cfg.Database.URL != defaultDatabaseURL {
		t.Fatalf("unexpected server/database: %+v %+v", cfg.Server, cfg.Database)
	}
	if cfg.AI.Provider != "groq" || cfg.AI.APIKey != "" || cfg.AI.Temperature != 0.3 {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
	if cfg.AI.Timeout() != 60*time.Second {
		t.Fatalf("timeout = %v", cfg.AI.Timeout())
	}
	if cfg.Documents.MaxBytes != 25*1024*1024 || cfg.Monitor.MaxAlerts != 50 {
		t.Fatalf("unexpected documents/monitor: %+v %+v", cfg.Documents, cfg.Monitor)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/sibal")
	t.Setenv("AI_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("CORS_ORIGINS", "https://sibal.app, https://admin.sibal.app")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Database.URL != "postgres://u:p@db:5432/sibal" {
		t.Fatalf("env not applied: %+v %+v", cfg.Server, cfg.Database)
	}
	if cfg.AI.Provider != "gemini" || cfg.AI.APIKey != "gem-key" {
		t.Fatalf("ai = %+v", cfg.AI)
	}
	if len(cfg.Server.CORSOrigins) != 3 || cfg.Server.CORSOrigins[2] != "https://admin.sibal.app" {
		t.Fatalf("cors = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadFileOverridesOnlyItsKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_SIBAL_MODEL", "llama-3.1-8b-instant")

	path := filepath.Join(t.TempDir(), "sibal.yaml")
	content := "ai:\n  model: \"${TEST_SIBAL_MODEL}\"\n  temperature: 0.2\ndocuments:\n  max_text_chars: 1000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.Model != "llama-3.1-8b-instant" || cfg.AI.Temperature != 0.2 {
		t.Fatalf("ai = %+v", cfg.AI)
	}
	if cfg.AI.Provider != "groq" || cfg.Documents.MaxTextChars != 1000 || cfg.Documents.TimeoutSeconds != 60 {
		t.Fatalf("defaults lost: %+v %+v", cfg.AI, cfg.Documents)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		yaml string
		want string
	}{
		{"ai:\n  provider: anthropic\n", "Provider"},
		{"ai:\n  temperature: 0.9\n", "Temperature"},
		{"server:\n  port: \"http\"\n", "Port"},
	}
	for _, tt := range tests {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%q: expected error mentioning %s, got %v", tt.yaml, tt.want, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
