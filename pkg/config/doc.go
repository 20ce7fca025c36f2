// Package config provides configuration management for the Strait gateway.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention STRAIT_SECTION_FIELD.
// For example:
//
//   - STRAIT_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - STRAIT_UPSTREAM_MASTER_KEY overrides upstream.master_key
//   - STRAIT_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides
// earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	server:
//	  listen_address: "127.0.0.1:4000"
//
//	upstream:
//	  base_url: "http://litellm.internal:4000"
//	  master_key: "${STRAIT_UPSTREAM_MASTER_KEY}"
//
//	sessions:
//	  backend: "sqlite"
//	  sqlite_path: "data/sessions.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
