package config

import "time"

// Config is the root configuration structure for AstraGuard Aegis.
// It contains all configuration sections for the mission state machine,
// phase policy engine, anomaly tracker, audit trail, API server, and
// telemetry settings.
type Config struct {
	// Mission contains mission state machine configuration including the
	// initial phase.
	Mission MissionConfig `yaml:"mission"`

	// Policy contains configuration for the phase policy engine including
	// the policy document location and watch mode.
	Policy PolicyConfig `yaml:"policy"`

	// Tracker contains configuration for the anomaly occurrence tracker
	// that derives recurrence and concurrency counts.
	Tracker TrackerConfig `yaml:"tracker"`

	// Audit contains configuration for the decision and transition audit
	// trail including backend selection and retention.
	Audit AuditConfig `yaml:"audit"`

	// Server contains HTTP API server configuration including listen
	// address, timeouts, and CORS.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains observability configuration for logging and
	// metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// MissionConfig contains mission state machine configuration.
type MissionConfig struct {
	// InitialPhase is the phase the state machine starts in.
	// Options: "LAUNCH", "DEPLOYMENT", "NOMINAL_OPS", "PAYLOAD_OPS", "SAFE_MODE".
	// Default: "LAUNCH"
	InitialPhase string `yaml:"initial_phase"`
}

// PolicyConfig contains configuration for the phase policy engine.
type PolicyConfig struct {
	// FilePath is the path to the phase policy document (YAML or JSON).
	// When empty, the built-in default policies are used.
	// Default: "" (built-in defaults)
	FilePath string `yaml:"file_path"`

	// Watch enables automatic policy reloading when the policy file
	// changes. Only effective when FilePath is set.
	// Default: true
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period after a file change before the
	// policy document is reloaded.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// TrackerConfig contains configuration for the anomaly occurrence tracker.
type TrackerConfig struct {
	// Enabled controls whether the tracker fills in recurrence and
	// simultaneous-fault counts for events that omit them. When disabled,
	// events are evaluated exactly as submitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the occurrence store.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path when Backend is "sqlite".
	// Default: "data/tracker.db"
	SQLitePath string `yaml:"sqlite_path"`

	// Window is the sliding window within which repeated anomalies of the
	// same type count as recurrences and overlapping distinct types count
	// as simultaneous faults.
	// Default: 5m
	Window time.Duration `yaml:"window"`

	// SweepInterval is how often expired occurrences are pruned.
	// Default: 1m
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// AuditConfig contains configuration for the audit trail.
type AuditConfig struct {
	// Enabled controls whether decisions and phase transitions are
	// recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the audit storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains asynchronous recorder settings.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention sweep settings.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains query limit settings.
	Query QueryConfig `yaml:"query"`
}

// SQLiteConfig contains SQLite database settings for the audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a connection waits on a locked database
	// before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains asynchronous audit recorder settings.
type RecorderConfig struct {
	// AsyncBuffer is the size of the in-memory record buffer. When the
	// buffer is full, new records are dropped and counted rather than
	// blocking the decision path.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the maximum duration for a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains audit retention sweep settings.
type RetentionConfig struct {
	// Days is how many days of records to keep. Zero disables age-based
	// pruning.
	// Default: 90
	Days int `yaml:"days"`

	// Schedule is the cron expression for retention sweeps.
	// Default: "0 3 * * *" (daily at 03:00)
	Schedule string `yaml:"schedule"`

	// MaxRecords caps the total number of stored records. Zero disables
	// count-based pruning.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// ArchiveBeforeDelete writes pruned records to a JSON archive file
	// before deleting them.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory archive files are written to.
	// Default: "data/archives"
	ArchivePath string `yaml:"archive_path"`
}

// QueryConfig contains audit query limit settings.
type QueryConfig struct {
	// DefaultLimit is the number of records returned when a query does not
	// specify a limit.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the largest limit a query may request.
	// Default: 10000
	MaxLimit int `yaml:"max_limit"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8085", "0.0.0.0:8085").
	// Default: "127.0.0.1:8085"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are abandoned.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds the handling of a single request.
	// Default: 10s
	RequestTimeout time.Duration `yaml:"request_timeout"`

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

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600 (1 hour)
	MaxAge int `yaml:"max_age"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum level to log.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format selects the log encoding.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// Output selects where logs are written.
	// Options: "stderr", "stdout"
	// Default: "stderr"
	Output string `yaml:"output"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path the metrics handler is mounted on.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
