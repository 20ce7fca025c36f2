package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"crosslake-dev/strait/pkg/auth"
	"crosslake-dev/strait/pkg/config"
	"crosslake-dev/strait/pkg/gateway/handlers"
	"crosslake-dev/strait/pkg/prompt"
	"crosslake-dev/strait/pkg/server"
	"crosslake-dev/strait/pkg/session"
	"crosslake-dev/strait/pkg/upstream"
	"crosslake-dev/strait/pkg/usage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Strait gateway server",
	Long: `Start the Strait gateway server with the specified configuration.

The server listens on the configured address, translates Bedrock Converse
requests into OpenAI chat completions, and forwards them to the configured
backend.

Examples:
  # Start with default config
  strait run

  # Start with custom config
  strait run --config /etc/strait/config.yaml

  # Override listen address
  strait run --listen 0.0.0.0:4000

  # Validate config without starting the server
  strait run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	setupLogging(&cfg.Telemetry.Logging)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Strait v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session store
	sessions, err := buildSessionStore(&cfg.Sessions)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer sessions.Close()
	fmt.Printf("✓ Session store initialized (%s)\n", cfg.Sessions.Backend)

	// Retention scheduler, only meaningful on a prunable store
	if cfg.Sessions.Retention.Schedule != "" {
		if pruner, ok := sessions.(session.Pruner); ok {
			scheduler := session.NewRetentionScheduler(pruner, session.RetentionConfig{
				Schedule: cfg.Sessions.Retention.Schedule,
				MaxAge:   cfg.Sessions.Retention.MaxAge,
			})
			if err := scheduler.Start(ctx); err != nil {
				return fmt.Errorf("failed to start retention scheduler: %w", err)
			}
			defer scheduler.Stop()
		} else {
			slog.Warn("retention schedule ignored, session backend cannot prune",
				"backend", cfg.Sessions.Backend)
		}
	}

	// Prompt registry
	prompts, err := buildPromptRegistry(ctx, &cfg.Prompts)
	if err != nil {
		return fmt.Errorf("failed to initialize prompt registry: %w", err)
	}
	if prompts != nil {
		fmt.Printf("✓ Prompt registry initialized (%s)\n", cfg.Prompts.Source)
	}

	// Usage store and metrics
	var usageStore *usage.Store
	if cfg.Usage.Enabled {
		usageStore, err = usage.NewStore(cfg.Usage.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open usage store: %w", err)
		}
		defer usageStore.Close()
		fmt.Println("✓ Usage store initialized")
	}

	metrics := usage.NewMetrics(usage.MetricsConfig{
		Namespace:              cfg.Telemetry.Metrics.Namespace,
		Subsystem:              cfg.Telemetry.Metrics.Subsystem,
		RequestDurationBuckets: cfg.Telemetry.Metrics.RequestDurationBuckets,
	}, nil)

	// Identity verifier for federated provisioning
	var verifier auth.IdentityVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, cfg.Auth.Audience)
	}

	// Backend client
	upstreamCfg := upstream.DefaultConfig()
	upstreamCfg.BaseURL = cfg.Upstream.BaseURL
	upstreamCfg.APIKey = cfg.Upstream.APIKey
	upstreamCfg.Timeout = cfg.Upstream.Timeout
	upstreamCfg.MaxRetries = cfg.Upstream.MaxRetries
	backend := upstream.NewClient(upstreamCfg)

	handler := handlers.New(handlers.Config{
		Sessions:  sessions,
		Backend:   backend,
		Prompts:   prompts,
		Verifier:  verifier,
		Usage:     usageStore,
		Metrics:   metrics,
		MasterKey: cfg.Upstream.MasterKey,
	})

	srv := server.New(&cfg.Server, &cfg.Telemetry.Metrics, handler, metrics)

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a shutdown signal, context cancellation, or a
	// listener failure.
	return srv.Start(ctx)
}

func setupLogging(cfg *config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	options := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, options)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, options)
	}
	slog.SetDefault(slog.New(handler))
}

func buildSessionStore(cfg *config.SessionsConfig) (session.Store, error) {
	switch cfg.Backend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "sqlite":
		sqliteCfg := session.DefaultSQLiteConfig()
		sqliteCfg.Path = cfg.SQLitePath
		return session.NewSQLiteStore(sqliteCfg)
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Backend)
	}
}

func buildPromptRegistry(ctx context.Context, cfg *config.PromptsConfig) (prompt.Registry, error) {
	switch cfg.Source {
	case "none":
		return nil, nil
	case "file":
		registry, err := prompt.NewFileRegistry(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		if cfg.Watch {
			if err := registry.Watch(ctx); err != nil {
				return nil, err
			}
		}
		return registry, nil
	case "http":
		return prompt.NewHTTPRegistry(prompt.HTTPRegistryConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported prompt source: %s", cfg.Source)
	}
}
