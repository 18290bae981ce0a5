// Package config loads the server configuration from YAML with environment
// variable expansion.
//
// DESIGN: The file is optional; every field falls back to the defaults in
// defaults.go, so a bare binary runs with zero configuration. Values support
// ${VAR} and ${VAR:-default} references, expanded before YAML parsing.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// RateLimitConfig controls the per-caller request budget.
type RateLimitConfig struct {
	Window         time.Duration `yaml:"window"`
	Capacity       int           `yaml:"capacity"`
	SweepThreshold int           `yaml:"sweep_threshold"`
}

// UpstreamConfig controls the resilient fetch client.
type UpstreamConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	// BaseURLs overrides individual endpoint base URLs, keyed by endpoint
	// key (voting, bills, ...). Mainly used to point tests and staging at
	// a mock upstream.
	BaseURLs map[string]string `yaml:"base_urls"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns a Config populated entirely from defaults.go.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        DefaultPort,
			ReadTimeout: DefaultReadTimeout,
		},
		RateLimit: RateLimitConfig{
			Window:         RateLimitWindow,
			Capacity:       RateLimitCapacity,
			SweepThreshold: RateLimitSweepThreshold,
		},
		Upstream: UpstreamConfig{
			MaxAttempts:    UpstreamMaxAttempts,
			AttemptTimeout: UpstreamAttemptTimeout,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expanded := ExpandEnvWithDefaults(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server.port: %d", cfg.Server.Port)
	}
	if cfg.RateLimit.Capacity <= 0 {
		return nil, fmt.Errorf("invalid rate_limit.capacity: %d", cfg.RateLimit.Capacity)
	}
	if cfg.Upstream.MaxAttempts <= 0 {
		return nil, fmt.Errorf("invalid upstream.max_attempts: %d", cfg.Upstream.MaxAttempts)
	}

	return cfg, nil
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// ExpandEnvWithDefaults expands ${VAR} and ${VAR:-default} references.
// Unset variables without a default expand to the empty string.
func ExpandEnvWithDefaults(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		groups := envRefPattern.FindStringSubmatch(ref)
		name, fallback := groups[1], groups[3]
		if val, ok := os.LookupEnv(name); ok && strings.TrimSpace(val) != "" {
			return val
		}
		return fallback
	})
}
