package config

import "time"

// Config is the root configuration structure for the Strait gateway.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS settings.
	Server ServerConfig `yaml:"server"`

	// Upstream contains configuration for the OpenAI-compatible backend the
	// gateway forwards to.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Sessions contains conversation-history storage configuration.
	Sessions SessionsConfig `yaml:"sessions"`

	// Prompts contains prompt-registry configuration.
	Prompts PromptsConfig `yaml:"prompts"`

	// Auth contains identity-token verification configuration used by the
	// provisioning endpoints.
	Auth AuthConfig `yaml:"auth"`

	// Usage contains token-accounting storage configuration.
	Usage UsageConfig `yaml:"usage"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:4000", "0.0.0.0:4000").
	// Default: "127.0.0.1:4000"
	ListenAddress string `yaml:"listen_address"`

	// ReadHeaderTimeout is the maximum duration for reading request headers.
	// There is deliberately no write timeout: streaming responses stay open
	// for as long as the backend produces tokens.
	// Default: 10s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Use ["*"] to allow all origins (not recommended for production).
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to browser clients.
	// X-Session-Id must stay exposed or browser callers cannot continue a
	// conversation.
	// Default: ["X-Session-Id", "X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600 (1 hour)
	MaxAge int `yaml:"max_age"`
}

// UpstreamConfig contains configuration for the backend proxy.
type UpstreamConfig struct {
	// BaseURL is the base URL of the OpenAI-compatible backend.
	// Example: "http://litellm.internal:4000"
	// Required.
	BaseURL string `yaml:"base_url"`

	// APIKey is a fallback credential used when a request carries none.
	// This should typically be loaded from an environment variable.
	APIKey string `yaml:"api_key"`

	// MasterKey is the privileged backend credential used to re-authenticate
	// provisioning requests. Required for federated provisioning.
	MasterKey string `yaml:"master_key"`

	// Timeout is the maximum duration for non-streaming backend requests.
	// Streaming requests are never timed out.
	// Default: 155s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the maximum number of retry attempts for failed requests.
	// Only network failures and 5xx responses are retried.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`
}

// SessionsConfig contains conversation-history storage configuration.
type SessionsConfig struct {
	// Backend specifies the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the file path for the SQLite database.
	// Default: "data/sessions.db"
	SQLitePath string `yaml:"sqlite_path"`

	// Retention contains scheduled pruning configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains session retention configuration.
type RetentionConfig struct {
	// Schedule is a cron expression for scheduling pruning.
	// Empty disables pruning.
	// Default: "" (disabled)
	Schedule string `yaml:"schedule"`

	// MaxAge is the age past which sessions are pruned.
	// Required when Schedule is set.
	MaxAge time.Duration `yaml:"max_age"`
}

// PromptsConfig contains prompt-registry configuration.
type PromptsConfig struct {
	// Source specifies where templates are loaded from.
	// Options: "file", "http", "none"
	// Default: "none"
	Source string `yaml:"source"`

	// FilePath is the path to the template file when Source is "file".
	FilePath string `yaml:"file_path"`

	// Watch enables automatic reloading when the template file changes.
	// Only used when Source is "file".
	// Default: false
	Watch bool `yaml:"watch"`

	// BaseURL is the registry service URL when Source is "http".
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests to the registry service.
	// Only used when Source is "http".
	APIKey string `yaml:"api_key"`
}

// AuthConfig contains identity-token verification configuration.
type AuthConfig struct {
	// JWTSecret is the HMAC secret for verifying federated identity tokens.
	// This should typically be loaded from an environment variable.
	// Required for federated provisioning.
	JWTSecret string `yaml:"jwt_secret"`

	// Issuer is the required token issuer. Empty disables the issuer check.
	Issuer string `yaml:"issuer"`

	// Audience is the required token audience. Empty disables the audience
	// check.
	Audience string `yaml:"audience"`
}

// UsageConfig contains token-accounting configuration.
type UsageConfig struct {
	// Enabled controls whether per-request token usage is recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// SQLitePath is the file path for the usage database.
	// Default: "data/usage.db"
	SQLitePath string `yaml:"sqlite_path"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the Prometheus endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "strait"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "gateway"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request duration
	// in seconds.
	// Default: [0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 155.0]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}
