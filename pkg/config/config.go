package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the portal server.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (session secret, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// PortalBaseURL is the public URL of this server; used for the SSO callback
	// and cookie settings. Auto-derived from Port if empty.
	PortalBaseURL string `yaml:"portal_base_url" env:"PORTAL_BASE_URL" env-default:""`

	// WebBaseURL is the SSO web app that owns the login page.
	WebBaseURL string `yaml:"web_base_url" env:"WEB_BASE_URL" env-default:"https://imuii.id"`

	// SessionSecret signs the chat session cookie.
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML

	Log        LogConfig        `yaml:"log"`
	API        APIConfig        `yaml:"api"`
	Auth       AuthConfig       `yaml:"auth"`
	Chatbot    ChatbotConfig    `yaml:"chatbot"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	Showcase   ShowcaseConfig   `yaml:"showcase"`
	Membership MembershipConfig `yaml:"membership"`
}

// LogConfig selects the log level. Encoding follows Env.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// APIConfig points at the remote REST API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:3000"`
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"30s"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// CookieName is the cookie the SSO web app stores the token in.
	CookieName string `yaml:"cookie_name" env:"AUTH_COOKIE_NAME" env-default:"imuii-token"`

	// CookieDomain is the domain for portal cookies (optional).
	// If empty, it is derived from PortalBaseURL.
	CookieDomain string `yaml:"cookie_domain" env:"COOKIE_DOMAIN" env-default:""`

	// EnableVerification controls whether token signatures are checked against JWKS.
	// When false only the expiry is checked.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"false"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`
}

// Chatbot modes.
const (
	ChatbotModeWebhook = "webhook"
	ChatbotModeLLM     = "llm"
)

// ChatbotConfig selects and configures the chat assistant.
type ChatbotConfig struct {
	Mode       string        `yaml:"mode" env:"CHATBOT_MODE" env-default:"webhook"`
	WebhookURL string        `yaml:"webhook_url" env:"CHATBOT_WEBHOOK_URL" env-default:""`
	Timeout    time.Duration `yaml:"timeout" env:"CHATBOT_TIMEOUT" env-default:"60s"`

	LLMEndpoint    string  `yaml:"llm_endpoint" env:"CHATBOT_LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	LLMModel       string  `yaml:"llm_model" env:"CHATBOT_LLM_MODEL" env-default:"gpt-4o-mini"`
	LLMAPIKey      string  `yaml:"-" env:"CHATBOT_LLM_API_KEY"` // Secret - not in YAML
	LLMTemperature float32 `yaml:"llm_temperature" env:"CHATBOT_LLM_TEMPERATURE" env-default:"0.2"`

	// RatePerSecond and Burst throttle messages per chat session.
	RatePerSecond float64 `yaml:"rate_per_second" env:"CHATBOT_RATE_PER_SECOND" env-default:"0.5"`
	Burst         int     `yaml:"burst" env:"CHATBOT_BURST" env-default:"5"`
}

// StorageConfig is the S3-compatible bucket holding thumbnails.
type StorageConfig struct {
	Endpoint        string `yaml:"endpoint" env:"STORAGE_ENDPOINT" env-default:""`
	Region          string `yaml:"region" env:"STORAGE_REGION" env-default:"us-east-1"`
	Bucket          string `yaml:"bucket" env:"STORAGE_BUCKET" env-default:"thumbnails"`
	PublicBaseURL   string `yaml:"public_base_url" env:"STORAGE_PUBLIC_BASE_URL" env-default:""`
	AccessKeyID     string `yaml:"-" env:"STORAGE_ACCESS_KEY_ID"`     // Secret - not in YAML
	SecretAccessKey string `yaml:"-" env:"STORAGE_SECRET_ACCESS_KEY"` // Secret - not in YAML
}

// IsConfigured returns true if thumbnail uploads can be served.
func (c *StorageConfig) IsConfigured() bool {
	return c.Bucket != "" && c.PublicBaseURL != ""
}

// RedisConfig enables the shared showcase snapshot store.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:""`
	Password string        `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_SNAPSHOT_TTL" env-default:"24h"`
}

// Enabled returns true if a Redis address is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// ShowcaseConfig tunes the public showcase feed.
type ShowcaseConfig struct {
	PageLimit int           `yaml:"page_limit" env:"SHOWCASE_PAGE_LIMIT" env-default:"100"`
	MaxAge    time.Duration `yaml:"max_age" env:"SHOWCASE_MAX_AGE" env-default:"1m"`
}

// MembershipConfig tunes event membership reconciliation.
type MembershipConfig struct {
	// CandidateLimit is the page size of the active and upcoming event listings.
	CandidateLimit int `yaml:"candidate_limit" env:"MEMBERSHIP_CANDIDATE_LIMIT" env-default:"100"`
	// MaxConcurrent bounds roster checks in flight per reconciliation.
	MaxConcurrent int `yaml:"max_concurrent" env:"MEMBERSHIP_MAX_CONCURRENT" env-default:"8"`
}

// Load reads configuration from config.yaml (when present) with environment
// variable overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit path. A missing file falls back to the
// environment alone.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if cfg.PortalBaseURL == "" {
		cfg.PortalBaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.Auth.EnableVerification && len(c.Auth.JWKSEndpoints) == 0 {
		return errors.New("auth verification enabled but no JWKS endpoints configured")
	}
	for name, raw := range map[string]string{
		"api.base_url":    c.API.BaseURL,
		"web_base_url":    c.WebBaseURL,
		"portal_base_url": c.PortalBaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	switch c.Chatbot.Mode {
	case ChatbotModeWebhook:
		if c.Chatbot.WebhookURL == "" {
			return errors.New("chatbot.webhook_url is required in webhook mode")
		}
	case ChatbotModeLLM:
		if c.Chatbot.LLMModel == "" {
			return errors.New("chatbot.llm_model is required in llm mode")
		}
	default:
		return fmt.Errorf("unknown chatbot mode %q", c.Chatbot.Mode)
	}
	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}
