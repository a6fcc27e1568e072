package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// baseEnv sets the variables every valid configuration needs.
func baseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("CHATBOT_WEBHOOK_URL", "https://n8n.example.com/webhook/chat")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	baseEnv(t)
	path := writeConfig(t, `
port: "9000"
env: "test"
api:
  base_url: "https://api.example.com"
  timeout: 10s
redis:
  addr: "redis.example.com:6379"
showcase:
  max_age: 5m
`)

	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := LoadFile(path, "test-version")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Port != "4443" {
		t.Errorf("expected Port=4443 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("expected API.BaseURL from YAML, got %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("expected API.Timeout=10s, got %v", cfg.API.Timeout)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.Addr != "redis.example.com:6379" {
		t.Errorf("expected Redis from YAML, got %+v", cfg.Redis)
	}
	if cfg.Showcase.MaxAge != 5*time.Minute {
		t.Errorf("expected Showcase.MaxAge=5m, got %v", cfg.Showcase.MaxAge)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
}

func TestLoad_MissingConfigFileUsesEnv(t *testing.T) {
	baseEnv(t)
	t.Setenv("PORT", "7070")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), "v1")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.PortalBaseURL != "http://localhost:7070" {
		t.Errorf("expected derived PortalBaseURL, got %s", cfg.PortalBaseURL)
	}
	if cfg.Auth.CookieName != "imuii-token" {
		t.Errorf("expected default cookie name, got %s", cfg.Auth.CookieName)
	}
	if cfg.Chatbot.Mode != ChatbotModeWebhook {
		t.Errorf("expected webhook mode by default, got %s", cfg.Chatbot.Mode)
	}
	if cfg.Redis.Enabled() {
		t.Error("expected Redis disabled by default")
	}
	if cfg.Membership.CandidateLimit != 100 || cfg.Membership.MaxConcurrent != 8 {
		t.Errorf("unexpected membership defaults: %+v", cfg.Membership)
	}
	if cfg.Showcase.PageLimit != 100 || cfg.Showcase.MaxAge != time.Minute {
		t.Errorf("unexpected showcase defaults: %+v", cfg.Showcase)
	}
}

func TestLoad_SecretsOnlyFromEnv(t *testing.T) {
	baseEnv(t)
	path := writeConfig(t, `
session_secret: "from-yaml"
chatbot:
  llm_api_key: "from-yaml"
`)
	t.Setenv("CHATBOT_LLM_API_KEY", "sk-env")

	cfg, err := LoadFile(path, "v1")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.SessionSecret != "test-secret" {
		t.Errorf("expected session secret from env, got %s", cfg.SessionSecret)
	}
	if cfg.Chatbot.LLMAPIKey != "sk-env" {
		t.Errorf("expected API key from env, got %s", cfg.Chatbot.LLMAPIKey)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing session secret",
			env:     map[string]string{"SESSION_SECRET": ""},
			wantErr: "SESSION_SECRET",
		},
		{
			name:    "webhook mode without url",
			env:     map[string]string{"CHATBOT_WEBHOOK_URL": ""},
			wantErr: "webhook_url",
		},
		{
			name:    "unknown chatbot mode",
			env:     map[string]string{"CHATBOT_MODE": "carrier-pigeon"},
			wantErr: "unknown chatbot mode",
		},
		{
			name:    "verification without jwks",
			env:     map[string]string{"AUTH_ENABLE_VERIFICATION": "true"},
			wantErr: "JWKS",
		},
		{
			name:    "relative api url",
			env:     map[string]string{"API_BASE_URL": "/api"},
			wantErr: "api.base_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), "v1")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_LLMModeNeedsNoWebhook(t *testing.T) {
	baseEnv(t)
	t.Setenv("CHATBOT_WEBHOOK_URL", "")
	t.Setenv("CHATBOT_MODE", "llm")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), "v1")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Chatbot.LLMModel == "" {
		t.Error("expected default LLM model")
	}
}

func TestParseJWKSEndpoints(t *testing.T) {
	got := parseJWKSEndpoints("https://sso.imuii.id=https://sso.imuii.id/.well-known/jwks.json, bad ,x=https://x/jwks?v=2")
	if len(got) != 2 {
		t.Fatalf("expected 2 endpoints, got %d: %v", len(got), got)
	}
	if got["https://sso.imuii.id"] != "https://sso.imuii.id/.well-known/jwks.json" {
		t.Errorf("unexpected endpoint: %v", got)
	}
	if got["x"] != "https://x/jwks?v=2" {
		t.Errorf("expected value with '=' kept intact, got %q", got["x"])
	}
}
