package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config is the top-level taskbridge configuration.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Gateway GatewayConfig `json:"gateway"`
	Store   StoreConfig   `json:"store"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key,omitempty"` // Bearer key for /api/* routes
}

// GatewayConfig holds settings for the remote chat-completion endpoint.
type GatewayConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url,omitempty"`
	Model          string `json:"model,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// StoreConfig holds run-history settings. An empty Path disables history.
type StoreConfig struct {
	Path          string `json:"path,omitempty"`
	RetentionDays int    `json:"retention_days,omitempty"`
	SweepSchedule string `json:"sweep_schedule,omitempty"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from environment variables with the
// TASKBRIDGE_ prefix.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getenv("TASKBRIDGE_HOST", "0.0.0.0"),
			Port: getenvInt("TASKBRIDGE_PORT", 8080),
			Key:  os.Getenv("TASKBRIDGE_API_KEY"),
		},
		Gateway: GatewayConfig{
			APIKey:         os.Getenv("TASKBRIDGE_OPENAI_API_KEY"),
			BaseURL:        os.Getenv("TASKBRIDGE_OPENAI_BASE_URL"),
			Model:          os.Getenv("TASKBRIDGE_MODEL"),
			TimeoutSeconds: getenvInt("TASKBRIDGE_GATEWAY_TIMEOUT", 0),
		},
		Store: StoreConfig{
			Path:          os.Getenv("TASKBRIDGE_STORE_PATH"),
			RetentionDays: getenvInt("TASKBRIDGE_RETENTION_DAYS", 0),
			SweepSchedule: os.Getenv("TASKBRIDGE_SWEEP_SCHEDULE"),
		},
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Gateway.Model == "" {
		c.Gateway.Model = "gpt-4o-mini"
	}
	if c.Gateway.TimeoutSeconds == 0 {
		c.Gateway.TimeoutSeconds = 60
	}
	if c.Store.Path != "" {
		if c.Store.RetentionDays == 0 {
			c.Store.RetentionDays = 30
		}
		if c.Store.SweepSchedule == "" {
			c.Store.SweepSchedule = "@every 1h"
		}
	}
}

// Validate checks the configuration. The gateway credential is required;
// it is never silently defaulted.
func (c *Config) Validate() error {
	if c.Gateway.APIKey == "" {
		return fmt.Errorf("config: gateway api_key is required (set TASKBRIDGE_OPENAI_API_KEY)")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Gateway.TimeoutSeconds < 0 {
		return fmt.Errorf("config: gateway timeout_seconds must not be negative")
	}
	if c.Store.RetentionDays < 0 {
		return fmt.Errorf("config: store retention_days must not be negative")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
