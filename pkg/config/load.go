package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Booleans that default to true are seeded before parsing so an explicit
	// "false" in the file survives.
	var cfg Config
	cfg.Server.CORS.Enabled = DefaultCORSEnabled
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Usage.Enabled = DefaultUsageEnabled

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention STRAIT_SECTION_FIELD (e.g., STRAIT_SERVER_LISTEN_ADDRESS) and
// always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format STRAIT_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("STRAIT_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("STRAIT_SERVER_READ_HEADER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadHeaderTimeout = d
		}
	}
	if val := os.Getenv("STRAIT_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("STRAIT_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Upstream overrides
	if val := os.Getenv("STRAIT_UPSTREAM_BASE_URL"); val != "" {
		cfg.Upstream.BaseURL = val
	}
	if val := os.Getenv("STRAIT_UPSTREAM_API_KEY"); val != "" {
		cfg.Upstream.APIKey = val
	}
	if val := os.Getenv("STRAIT_UPSTREAM_MASTER_KEY"); val != "" {
		cfg.Upstream.MasterKey = val
	}
	if val := os.Getenv("STRAIT_UPSTREAM_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Upstream.Timeout = d
		}
	}
	if val := os.Getenv("STRAIT_UPSTREAM_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Upstream.MaxRetries = i
		}
	}

	// Session overrides
	if val := os.Getenv("STRAIT_SESSIONS_BACKEND"); val != "" {
		cfg.Sessions.Backend = val
	}
	if val := os.Getenv("STRAIT_SESSIONS_SQLITE_PATH"); val != "" {
		cfg.Sessions.SQLitePath = val
	}
	if val := os.Getenv("STRAIT_SESSIONS_RETENTION_SCHEDULE"); val != "" {
		cfg.Sessions.Retention.Schedule = val
	}
	if val := os.Getenv("STRAIT_SESSIONS_RETENTION_MAX_AGE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Sessions.Retention.MaxAge = d
		}
	}

	// Prompt overrides
	if val := os.Getenv("STRAIT_PROMPTS_SOURCE"); val != "" {
		cfg.Prompts.Source = val
	}
	if val := os.Getenv("STRAIT_PROMPTS_FILE_PATH"); val != "" {
		cfg.Prompts.FilePath = val
	}
	if val := os.Getenv("STRAIT_PROMPTS_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Prompts.Watch = b
		}
	}
	if val := os.Getenv("STRAIT_PROMPTS_BASE_URL"); val != "" {
		cfg.Prompts.BaseURL = val
	}
	if val := os.Getenv("STRAIT_PROMPTS_API_KEY"); val != "" {
		cfg.Prompts.APIKey = val
	}

	// Auth overrides
	if val := os.Getenv("STRAIT_AUTH_JWT_SECRET"); val != "" {
		cfg.Auth.JWTSecret = val
	}
	if val := os.Getenv("STRAIT_AUTH_ISSUER"); val != "" {
		cfg.Auth.Issuer = val
	}
	if val := os.Getenv("STRAIT_AUTH_AUDIENCE"); val != "" {
		cfg.Auth.Audience = val
	}

	// Usage overrides
	if val := os.Getenv("STRAIT_USAGE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Usage.Enabled = b
		}
	}
	if val := os.Getenv("STRAIT_USAGE_SQLITE_PATH"); val != "" {
		cfg.Usage.SQLitePath = val
	}

	// Telemetry overrides
	if val := os.Getenv("STRAIT_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("STRAIT_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("STRAIT_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("STRAIT_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
