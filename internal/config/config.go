// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/authnd/authnd/pkg/passkey"
	"github.com/authnd/authnd/pkg/ratelimit"
)

// Duration is a time.Duration that decodes from YAML strings such as
// "5m" or "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	RP        RPConfig        `yaml:"relying_party"`
	Session   SessionConfig   `yaml:"session"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Token     TokenConfig     `yaml:"token"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// RPConfig configures the relying party.
type RPConfig struct {
	ID                      string   `yaml:"id"`
	DisplayName             string   `yaml:"display_name"`
	Origins                 []string `yaml:"origins"`
	Timeout                 Duration `yaml:"timeout"`
	UserVerification        string   `yaml:"user_verification"`
	Attestation             string   `yaml:"attestation"`
	ResidentKey             string   `yaml:"resident_key"`
	AuthenticatorAttachment string   `yaml:"authenticator_attachment"`
}

// ToPasskey converts the section into the passkey service configuration.
func (r RPConfig) ToPasskey() *passkey.Config {
	return &passkey.Config{
		RPID:                    r.ID,
		RPDisplayName:           r.DisplayName,
		RPOrigins:               r.Origins,
		Timeout:                 r.Timeout.Std(),
		UserVerification:        r.UserVerification,
		Attestation:             r.Attestation,
		ResidentKey:             r.ResidentKey,
		AuthenticatorAttachment: r.AuthenticatorAttachment,
	}
}

// SessionConfig controls pending-ceremony tracking.
type SessionConfig struct {
	// TTL bounds how long a started ceremony stays completable. Zero
	// uses the passkey package default.
	TTL Duration `yaml:"ttl"`

	// SweepInterval controls how often expired ceremonies are removed
	// from memory. Zero disables the background sweep.
	SweepInterval Duration `yaml:"sweep_interval"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // memory, file
	Path    string `yaml:"path"`
}

// RateLimitConfig controls per-client rate limiting on the ceremony
// start endpoints.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// ToLimiter converts the section into the rate limiter configuration.
func (r RateLimitConfig) ToLimiter() *ratelimit.Config {
	return &ratelimit.Config{
		Enabled:           r.Enabled,
		RequestsPerMinute: r.RequestsPerMinute,
		Burst:             r.Burst,
	}
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TokenConfig controls post-ceremony token issuance.
type TokenConfig struct {
	// Type selects the issuer: "none" returns the base64 user ID,
	// "jwt" signs a JWT with the key in KeyFile.
	Type     string   `yaml:"type"`
	KeyFile  string   `yaml:"key_file"`
	Issuer   string   `yaml:"issuer"`
	Lifetime Duration `yaml:"lifetime"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		RP: RPConfig{
			ID:          "localhost",
			DisplayName: "authnd",
			Origins:     []string{"http://localhost:8080"},
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Token: TokenConfig{
			Type: "none",
		},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	// #nosec G304 - config file path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration from path. When path is empty it
// returns the default configuration with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("AUTHND_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("AUTHND_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port >= 1 && port <= 65535 {
			cfg.Server.Port = port
		}
	}
	if level := os.Getenv("AUTHND_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("AUTHND_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if rpID := os.Getenv("AUTHND_RP_ID"); rpID != "" {
		cfg.RP.ID = rpID
	}
	if origins := os.Getenv("AUTHND_RP_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		cfg.RP.Origins = cfg.RP.Origins[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cfg.RP.Origins = append(cfg.RP.Origins, p)
			}
		}
	}
	if dataDir := os.Getenv("AUTHND_DATA_DIR"); dataDir != "" {
		cfg.Storage.Path = dataDir
	}
}

// Validate reports whether the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if err := c.RP.ToPasskey().Validate(); err != nil {
		return fmt.Errorf("relying_party: %w", err)
	}

	switch c.Storage.Backend {
	case "", "memory":
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the file backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("ratelimit requests_per_minute must be positive")
	}

	switch c.Token.Type {
	case "", "none":
	case "jwt":
		if c.Token.KeyFile == "" {
			return fmt.Errorf("token key_file is required for jwt tokens")
		}
	default:
		return fmt.Errorf("unknown token type: %s", c.Token.Type)
	}

	return nil
}
