package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const minimalConfig = `
upstream:
  base_url: "http://backend:4000"
`

func TestLoadConfig_Minimal(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Upstream.Timeout != DefaultUpstreamTimeout {
		t.Errorf("upstream timeout = %v", cfg.Upstream.Timeout)
	}
	if cfg.Sessions.Backend != "sqlite" {
		t.Errorf("sessions backend = %q", cfg.Sessions.Backend)
	}
	if !cfg.Usage.Enabled {
		t.Error("usage not enabled by default")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics not enabled by default")
	}
}

func TestLoadConfig_ExplicitFalseSurvivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig+`
usage:
  enabled: false
telemetry:
  metrics:
    enabled: false
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Usage.Enabled {
		t.Error("explicit usage.enabled: false was overridden")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("explicit metrics.enabled: false was overridden")
	}
}

func TestLoadConfig_FullOverride(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
server:
  listen_address: "0.0.0.0:9090"
  read_header_timeout: 5s
upstream:
  base_url: "http://backend:4000"
  master_key: "sk-master"
  timeout: 30s
  max_retries: 1
sessions:
  backend: "memory"
  retention:
    schedule: "0 3 * * *"
    max_age: 720h
prompts:
  source: "file"
  file_path: "prompts.yaml"
  watch: true
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadHeaderTimeout != 5*time.Second {
		t.Errorf("read header timeout = %v", cfg.Server.ReadHeaderTimeout)
	}
	if cfg.Upstream.Timeout != 30*time.Second {
		t.Errorf("upstream timeout = %v", cfg.Upstream.Timeout)
	}
	if cfg.Sessions.Retention.MaxAge != 720*time.Hour {
		t.Errorf("retention max age = %v", cfg.Sessions.Retention.MaxAge)
	}
	if !cfg.Prompts.Watch {
		t.Error("prompts.watch not set")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "upstream: [broken")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("STRAIT_SERVER_LISTEN_ADDRESS", "127.0.0.1:7070")
	t.Setenv("STRAIT_UPSTREAM_MASTER_KEY", "sk-from-env")
	t.Setenv("STRAIT_UPSTREAM_TIMEOUT", "42s")
	t.Setenv("STRAIT_TELEMETRY_LOGGING_LEVEL", "debug")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides: %v", err)
	}

	if cfg.Server.ListenAddress != "127.0.0.1:7070" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Upstream.MasterKey != "sk-from-env" {
		t.Errorf("master key = %q", cfg.Upstream.MasterKey)
	}
	if cfg.Upstream.Timeout != 42*time.Second {
		t.Errorf("upstream timeout = %v", cfg.Upstream.Timeout)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("logging level = %q", cfg.Telemetry.Logging.Level)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := NewDefault()
	cfg.Upstream.BaseURL = ""
	cfg.Sessions.Backend = "postgres"
	cfg.Telemetry.Logging.Level = "verbose"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("error count = %d: %v", len(verr.Errors), verr)
	}
	if !strings.Contains(err.Error(), "upstream.base_url") {
		t.Errorf("error does not name field: %v", err)
	}
}

func TestValidate_BadURL(t *testing.T) {
	cfg := NewDefault()
	cfg.Upstream.BaseURL = "not a url"

	if err := Validate(cfg); err == nil {
		t.Error("expected error for invalid base URL")
	}
}

func TestValidate_RetentionScheduleRequiresMaxAge(t *testing.T) {
	cfg := NewDefault()
	cfg.Upstream.BaseURL = "http://backend:4000"
	cfg.Sessions.Retention.Schedule = "0 3 * * *"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "sessions.retention.max_age") {
		t.Errorf("err = %v, want max_age error", err)
	}
}

func TestValidate_BadCronExpression(t *testing.T) {
	cfg := NewDefault()
	cfg.Upstream.BaseURL = "http://backend:4000"
	cfg.Sessions.Retention.Schedule = "not cron"
	cfg.Sessions.Retention.MaxAge = time.Hour

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "sessions.retention.schedule") {
		t.Errorf("err = %v, want schedule error", err)
	}
}

func TestValidate_PromptSources(t *testing.T) {
	cfg := NewDefault()
	cfg.Upstream.BaseURL = "http://backend:4000"

	cfg.Prompts.Source = "file"
	if err := Validate(cfg); err == nil {
		t.Error("file source without path accepted")
	}

	cfg.Prompts.Source = "http"
	if err := Validate(cfg); err == nil {
		t.Error("http source without base URL accepted")
	}

	cfg.Prompts.Source = "s3"
	if err := Validate(cfg); err == nil {
		t.Error("unknown source accepted")
	}

	cfg.Prompts.Source = "none"
	if err := Validate(cfg); err != nil {
		t.Errorf("none source rejected: %v", err)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	first := *cfg
	ApplyDefaults(cfg)
	if cfg.Server.ListenAddress != first.Server.ListenAddress ||
		cfg.Upstream.Timeout != first.Upstream.Timeout {
		t.Error("ApplyDefaults is not idempotent")
	}
}
