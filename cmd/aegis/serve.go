package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"astraguard/aegis/pkg/audit"
	"astraguard/aegis/pkg/audit/recorder"
	"astraguard/aegis/pkg/audit/retention"
	"astraguard/aegis/pkg/audit/storage"
	"astraguard/aegis/pkg/cli"
	"astraguard/aegis/pkg/config"
	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy/engine"
	"astraguard/aegis/pkg/policy/engine/source"
	"astraguard/aegis/pkg/server"
	"astraguard/aegis/pkg/telemetry/health"
	"astraguard/aegis/pkg/telemetry/logging"
	"astraguard/aegis/pkg/telemetry/metrics"
	"astraguard/aegis/pkg/tracker"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Aegis decision authority",
	Long: `Start the Aegis decision authority with the specified configuration.

The server listens on the configured address and evaluates anomaly signals
through the phase policy engine, records decisions and transitions to the
audit trail, and tracks anomaly recurrence per satellite.

Examples:
  # Start with default config
  aegis serve

  # Start with custom config
  aegis serve --config /etc/aegis/aegis.yaml

  # Override listen address
  aegis serve --listen 0.0.0.0:8085

  # Validate config without starting the server
  aegis serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

// staticSource serves a file-backed policy document without change
// detection, for deployments that disable hot reload.
type staticSource struct {
	*source.FileSource
}

func (s staticSource) Watch(ctx context.Context) (<-chan engine.SourceEvent, error) {
	ch := make(chan engine.SourceEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.Active()

	// Apply flag overrides
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	// Initialize logging based on config. Setup installs the logger as the
	// process default so components constructed without one inherit it.
	logger, err := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if serveFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	// Print startup banner
	printBanner(cfg)

	// Mission state machine
	initial, err := mission.ParsePhase(cfg.Mission.InitialPhase)
	if err != nil {
		return cli.NewConfigError("mission.initial_phase", err.Error())
	}
	machine, err := mission.NewStateMachine(initial, logger)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	// Policy source: file-backed when configured, built-in defaults
	// otherwise.
	var policySource engine.Source
	if cfg.Policy.FilePath != "" {
		logger.Info("loading phase policies from file",
			"path", cfg.Policy.FilePath,
			"watch", cfg.Policy.Watch,
		)
		fileSource := source.NewFileSource(cfg.Policy.FilePath, logger,
			source.WithDebounceInterval(cfg.Policy.DebounceInterval))
		if cfg.Policy.Watch {
			policySource = fileSource
		} else {
			policySource = staticSource{fileSource}
		}
	} else {
		logger.Info("using built-in default phase policies")
		policySource = source.NewDefaultSource()
	}

	// Policy engine
	eng, err := engine.New(machine, policySource, logger)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to initialize policy engine: %w", err))
	}
	defer eng.Close()
	fmt.Printf("✓ Policy engine loaded (initial phase %s)\n", eng.CurrentPhase())

	// Health checker with one probe per dependency.
	checker := health.New(0)
	checker.Register("policy", func(ctx context.Context) error {
		_, err := eng.Constraints(eng.CurrentPhase())
		return err
	})

	// Metrics collector
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		collector.SetCurrentPhase(eng.CurrentPhase())
	}

	// Anomaly occurrence tracker
	var trk *tracker.Tracker
	if cfg.Tracker.Enabled {
		var backend tracker.Backend
		switch cfg.Tracker.Backend {
		case "sqlite":
			backend, err = tracker.NewSQLiteBackend(cfg.Tracker.SQLitePath)
			if err != nil {
				return cli.NewCommandError("serve", fmt.Errorf("failed to open tracker database: %w", err))
			}
		case "memory":
			backend = tracker.NewMemoryBackend(cfg.Tracker.Window)
		default:
			return cli.NewConfigError("tracker.backend",
				fmt.Sprintf("unsupported backend %q (supported: memory, sqlite)", cfg.Tracker.Backend))
		}

		trk = tracker.New(backend, tracker.FromConfig(cfg.Tracker))
		defer trk.Close()
		checker.Register("tracker", backend.Ping)
		fmt.Printf("✓ Occurrence tracker started (%s backend)\n", cfg.Tracker.Backend)
	}

	// Audit trail: storage, async recorder, retention sweeps.
	var auditStore audit.Storage
	var auditRecorder *recorder.Recorder
	if cfg.Audit.Enabled {
		switch cfg.Audit.Backend {
		case "sqlite":
			auditStore, err = storage.NewSQLiteStorage(storage.SQLiteFromConfig(cfg.Audit.SQLite))
			if err != nil {
				return cli.NewCommandError("serve", fmt.Errorf("failed to open audit database: %w", err))
			}
		case "memory":
			auditStore = storage.NewMemoryStorage()
		default:
			return cli.NewConfigError("audit.backend",
				fmt.Sprintf("unsupported backend %q (supported: sqlite, memory)", cfg.Audit.Backend))
		}
		defer auditStore.Close()
		checker.Register("audit", auditStore.Ping)

		auditRecorder = recorder.New(auditStore, recorder.FromConfig(cfg.Audit), collector)
		defer auditRecorder.Close()

		if cfg.Audit.Retention.Schedule != "" {
			pruner := retention.NewPruner(auditStore, retention.FromConfig(cfg.Audit.Retention))
			if err := pruner.Start(context.Background()); err != nil {
				logger.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					logger.Debug("audit retention scheduler started", "next_pruning", next)
				}
			}
		}

		fmt.Printf("✓ Audit trail initialized (%s backend)\n", cfg.Audit.Backend)
	}

	// API server
	srv, err := server.New(&cfg.Server, server.Dependencies{
		Engine:      eng,
		Tracker:     trk,
		Recorder:    auditRecorder,
		AuditStore:  auditStore,
		AuditQuery:  cfg.Audit.Query,
		Metrics:     collector,
		Checker:     checker,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		Version:     Version,
		Commit:      GitCommit,
		BuildTime:   BuildDate,
		Logger:      logger,
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a shutdown signal or server error, then drains
	// in-flight requests within the configured shutdown timeout.
	ctx := cli.SetupSignalHandler()
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

func printBanner(cfg *config.Config) {
	fmt.Printf("AstraGuard Aegis v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")
}
