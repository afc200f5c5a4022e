package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultModules is the MGM module enumeration queried for every request.
var DefaultModules = []string{"Customer", "Product", "Order", "Inventory"}

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Backend   BackendConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// AIConfig holds upstream completions provider configuration.
type AIConfig struct {
	APIKey     string `envconfig:"AI_API_KEY"`
	GatewayURL string `envconfig:"AI_GATEWAY_URL" default:"https://ai.gateway.lovable.dev/v1/chat/completions"`
	Model      string `envconfig:"AI_MODEL" default:"google/gemini-2.5-flash"`
}

// BackendConfig holds MGM backend configuration.
type BackendConfig struct {
	URL             string        `envconfig:"BACKEND_URL"`
	Username        string        `envconfig:"BACKEND_USERNAME"`
	Password        string        `envconfig:"BACKEND_PASSWORD"`
	Modules         []string      `envconfig:"BACKEND_MODULES" default:"Customer,Product,Order,Inventory"`
	ModulesFile     string        `envconfig:"MODULES_FILE"`
	Timeout         time.Duration `envconfig:"BACKEND_TIMEOUT" default:"15s"`
	Retries         int           `envconfig:"BACKEND_RETRIES" default:"1"`
	ModuleMaxBytes  int           `envconfig:"BACKEND_MODULE_MAX_BYTES" default:"16384"`
	ContextMaxBytes int           `envconfig:"BACKEND_CONTEXT_MAX_BYTES" default:"65536"`
	RequestsPerSec  float64       `envconfig:"BACKEND_RPS" default:"0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds inbound rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		AI: AIConfig{
			GatewayURL: "https://ai.gateway.lovable.dev/v1/chat/completions",
			Model:      "google/gemini-2.5-flash",
		},
		Backend: BackendConfig{
			Modules:         append([]string(nil), DefaultModules...),
			Timeout:         15 * time.Second,
			Retries:         1,
			ModuleMaxBytes:  16384,
			ContextMaxBytes: 65536,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
