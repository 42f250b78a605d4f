// Package config loads orchestrator configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment names the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// LLMConfig carries model provider settings. The core treats these as
// opaque; agent implementations consume them.
type LLMConfig struct {
	Provider    string  `env:"ORCHESTRATOR_LLM_PROVIDER"`
	Model       string  `env:"ORCHESTRATOR_LLM_MODEL"`
	APIKey      string  `env:"ORCHESTRATOR_LLM_API_KEY"`
	Endpoint    string  `env:"ORCHESTRATOR_LLM_ENDPOINT"`
	MaxTokens   int     `env:"ORCHESTRATOR_LLM_MAX_TOKENS"`
	Temperature float64 `env:"ORCHESTRATOR_LLM_TEMPERATURE"`
}

// Config is the full orchestrator configuration
type Config struct {
	Environment Environment `env:"ORCHESTRATOR_ENV"`
	Debug       bool        `env:"ORCHESTRATOR_DEBUG"`

	Name               string
	MaxConcurrentTasks int
	MaxQueueSize       int
	TaskTimeoutSeconds int
	MaxCorrections     int

	LLM LLMConfig

	// Observability settings
	LogLevel      string `env:"ORCHESTRATOR_LOG_LEVEL"`
	EnableMetrics bool   `env:"ORCHESTRATOR_ENABLE_METRICS"`
	EnableTracing bool   `env:"ORCHESTRATOR_ENABLE_TRACING"`

	// Adapter enable flags, all off by default
	EnableCLIAdapter bool `env:"ORCHESTRATOR_ENABLE_CLI_ADAPTER"`
	EnableAPIAdapter bool `env:"ORCHESTRATOR_ENABLE_API_ADAPTER"`
	EnableVCSAdapter bool `env:"ORCHESTRATOR_ENABLE_VCS_ADAPTER"`

	// API adapter settings
	APIListenAddr string `env:"ORCHESTRATOR_API_LISTEN_ADDR"`
}

// Load builds the configuration from defaults, an optional .env file, and
// the process environment, then validates it.
func Load(envFile string) (*Config, error) {
	cfg := DefaultConfig()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Environment:        EnvDevelopment,
		Name:               "MetaOrchestrator",
		MaxConcurrentTasks: 5,
		MaxQueueSize:       1000,
		TaskTimeoutSeconds: 600,
		MaxCorrections:     3,
		LLM: LLMConfig{
			Provider:    "NOT_CONFIGURED",
			Model:       "NOT_CONFIGURED",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		LogLevel:      "info",
		EnableMetrics: true,
		EnableTracing: true,
		APIListenAddr: ":8080",
	}
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("ORCHESTRATOR_ENV"); v != "" {
		cfg.Environment = Environment(v)
	}
	cfg.Debug = boolEnv("ORCHESTRATOR_DEBUG", cfg.Debug)

	if v := os.Getenv("ORCHESTRATOR_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("ORCHESTRATOR_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("ORCHESTRATOR_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("ORCHESTRATOR_LLM_ENDPOINT"); v != "" {
		cfg.LLM.Endpoint = v
	}
	if v := os.Getenv("ORCHESTRATOR_LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxTokens = n
		}
	}
	if v := os.Getenv("ORCHESTRATOR_LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = f
		}
	}

	if v := os.Getenv("ORCHESTRATOR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.EnableMetrics = boolEnv("ORCHESTRATOR_ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = boolEnv("ORCHESTRATOR_ENABLE_TRACING", cfg.EnableTracing)

	cfg.EnableCLIAdapter = boolEnv("ORCHESTRATOR_ENABLE_CLI_ADAPTER", cfg.EnableCLIAdapter)
	cfg.EnableAPIAdapter = boolEnv("ORCHESTRATOR_ENABLE_API_ADAPTER", cfg.EnableAPIAdapter)
	cfg.EnableVCSAdapter = boolEnv("ORCHESTRATOR_ENABLE_VCS_ADAPTER", cfg.EnableVCSAdapter)

	if v := os.Getenv("ORCHESTRATOR_API_LISTEN_ADDR"); v != "" {
		cfg.APIListenAddr = v
	}
}

func boolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("environment must be one of: development, testing, staging, production")
	}
	if c.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("max_concurrent_tasks must be positive")
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("max_queue_size must be positive")
	}
	if c.MaxCorrections < 0 {
		return fmt.Errorf("max_corrections must not be negative")
	}
	validLogLevels := []string{"trace", "debug", "info", "warn", "error"}
	valid := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("log_level must be one of: trace, debug, info, warn, error")
	}
	return nil
}

// IsProduction reports whether the production environment is configured
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// IsDevelopment reports whether the development environment is configured
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}
