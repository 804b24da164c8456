package config

import "time"

// Default values for configuration fields.
const (
	// Mission defaults
	DefaultInitialPhase = "LAUNCH"

	// Policy defaults
	DefaultPolicyFilePath = "" // built-in defaults
	DefaultPolicyWatch    = true
	DefaultPolicyDebounce = 100 * time.Millisecond

	// Tracker defaults
	DefaultTrackerEnabled       = true
	DefaultTrackerBackend       = "memory"
	DefaultTrackerSQLitePath    = "data/tracker.db"
	DefaultTrackerWindow        = 5 * time.Minute
	DefaultTrackerSweepInterval = time.Minute

	// Audit defaults
	DefaultAuditEnabled             = true
	DefaultAuditBackend             = "sqlite"
	DefaultAuditSQLitePath          = "data/audit.db"
	DefaultAuditSQLiteMaxOpenConns  = 10
	DefaultAuditSQLiteMaxIdleConns  = 5
	DefaultAuditSQLiteWALMode       = true
	DefaultAuditSQLiteBusyTimeout   = 5 * time.Second
	DefaultAuditRecorderAsyncBuffer = 1000
	DefaultAuditRecorderWriteLimit  = 5 * time.Second
	DefaultAuditRetentionDays       = 90
	DefaultAuditRetentionSchedule   = "0 3 * * *"
	DefaultAuditRetentionMaxRecords = int64(0)
	DefaultAuditArchivePath         = "data/archives"
	DefaultAuditQueryDefaultLimit   = 100
	DefaultAuditQueryMaxLimit       = 10000

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8085"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 10 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600 // 1 hour

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultLoggingOutput  = "stderr"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Mission defaults
	if cfg.Mission.InitialPhase == "" {
		cfg.Mission.InitialPhase = DefaultInitialPhase
	}

	// Policy defaults
	if cfg.Policy.DebounceInterval == 0 {
		cfg.Policy.DebounceInterval = DefaultPolicyDebounce
	}

	// Tracker defaults
	if cfg.Tracker.Backend == "" {
		cfg.Tracker.Backend = DefaultTrackerBackend
	}
	if cfg.Tracker.SQLitePath == "" {
		cfg.Tracker.SQLitePath = DefaultTrackerSQLitePath
	}
	if cfg.Tracker.Window == 0 {
		cfg.Tracker.Window = DefaultTrackerWindow
	}
	if cfg.Tracker.SweepInterval == 0 {
		cfg.Tracker.SweepInterval = DefaultTrackerSweepInterval
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditSQLiteMaxOpenConns
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = DefaultAuditSQLiteMaxIdleConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = DefaultAuditRecorderAsyncBuffer
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = DefaultAuditRecorderWriteLimit
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = DefaultAuditRetentionDays
	}
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = DefaultAuditRetentionSchedule
	}
	if cfg.Audit.Retention.ArchivePath == "" {
		cfg.Audit.Retention.ArchivePath = DefaultAuditArchivePath
	}
	if cfg.Audit.Query.DefaultLimit == 0 {
		cfg.Audit.Query.DefaultLimit = DefaultAuditQueryDefaultLimit
	}
	if cfg.Audit.Query.MaxLimit == 0 {
		cfg.Audit.Query.MaxLimit = DefaultAuditQueryMaxLimit
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// CORS defaults
	if cfg.Server.CORS.AllowedOrigins == nil {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.Server.CORS.AllowedMethods == nil {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if cfg.Server.CORS.AllowedHeaders == nil {
		cfg.Server.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.Output == "" {
		cfg.Telemetry.Logging.Output = DefaultLoggingOutput
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}

// DefaultConfig returns a configuration populated entirely from defaults,
// with the boolean toggles (tracker, audit, metrics, CORS, policy watch)
// enabled as documented.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Policy.Watch = DefaultPolicyWatch
	cfg.Tracker.Enabled = DefaultTrackerEnabled
	cfg.Audit.Enabled = DefaultAuditEnabled
	cfg.Server.CORS.Enabled = DefaultCORSEnabled
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}
