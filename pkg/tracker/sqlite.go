package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// sqliteSchema creates the occurrence table and its lookup indexes.
// Timestamps are stored as Unix nanoseconds so window cutoffs compare
// exactly.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS occurrences (
    satellite_id TEXT NOT NULL,
    anomaly_type TEXT NOT NULL,
    observed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_occurrences_lookup ON occurrences(satellite_id, anomaly_type, observed_at);
CREATE INDEX IF NOT EXISTS idx_occurrences_observed_at ON occurrences(observed_at);
`

// SQLiteConfig configures the SQLite occurrence backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration
}

// SQLiteBackend persists occurrences in SQLite so recurrence and
// simultaneous-fault memory survives restarts. Suitable for
// single-instance deployments.
type SQLiteBackend struct {
	db   *sql.DB
	path string

	checkpointInterval time.Duration
	done               chan struct{}
	closeOnce          sync.Once

	insertStmt        *sql.Stmt
	countTypeStmt     *sql.Stmt
	countDistinctStmt *sql.Stmt
	sweepStmt         *sql.Stmt
}

// NewSQLiteBackend creates a SQLite occurrence store at the given path
// with default settings.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteConfig{Path: path})
}

// NewSQLiteBackendWithConfig creates a SQLite occurrence store with custom
// configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteConfig) (*SQLiteBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; the pool serializes access.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	b := &SQLiteBackend{
		db:                 db,
		path:               cfg.Path,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := b.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go b.checkpointLoop()

	return b, nil
}

// prepareStatements pre-compiles the hot-path SQL.
func (b *SQLiteBackend) prepareStatements() error {
	var err error

	b.insertStmt, err = b.db.Prepare(`
		INSERT INTO occurrences (satellite_id, anomaly_type, observed_at)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	b.countTypeStmt, err = b.db.Prepare(`
		SELECT COUNT(*) FROM occurrences
		WHERE satellite_id = ? AND anomaly_type = ? AND observed_at >= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare count statement: %w", err)
	}

	b.countDistinctStmt, err = b.db.Prepare(`
		SELECT COUNT(DISTINCT anomaly_type) FROM occurrences
		WHERE satellite_id = ? AND observed_at >= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare distinct count statement: %w", err)
	}

	b.sweepStmt, err = b.db.Prepare(`
		DELETE FROM occurrences WHERE observed_at < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare sweep statement: %w", err)
	}

	return nil
}

// Record stores one occurrence.
func (b *SQLiteBackend) Record(ctx context.Context, satelliteID, anomalyType string, at time.Time) error {
	if anomalyType == "" {
		return fmt.Errorf("anomaly type cannot be empty")
	}

	if _, err := b.insertStmt.ExecContext(ctx, satelliteID, anomalyType, at.UnixNano()); err != nil {
		return fmt.Errorf("failed to record occurrence: %w", err)
	}
	return nil
}

// CountType returns the occurrences of the given type at or after since.
func (b *SQLiteBackend) CountType(ctx context.Context, satelliteID, anomalyType string, since time.Time) (int, error) {
	var count int
	err := b.countTypeStmt.QueryRowContext(ctx, satelliteID, anomalyType, since.UnixNano()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count occurrences: %w", err)
	}
	return count, nil
}

// CountDistinct returns how many anomaly types have at least one
// occurrence at or after since.
func (b *SQLiteBackend) CountDistinct(ctx context.Context, satelliteID string, since time.Time) (int, error) {
	var count int
	err := b.countDistinctStmt.QueryRowContext(ctx, satelliteID, since.UnixNano()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct types: %w", err)
	}
	return count, nil
}

// Sweep deletes occurrences observed before the cutoff.
func (b *SQLiteBackend) Sweep(ctx context.Context, before time.Time) (int, error) {
	result, err := b.sweepStmt.ExecContext(ctx, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep occurrences: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(removed), nil
}

// Ping verifies the database connection.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close stops the checkpoint loop and closes the database. Safe to call
// more than once.
func (b *SQLiteBackend) Close() error {
	var closeErr error

	b.closeOnce.Do(func() {
		close(b.done)

		for _, stmt := range []*sql.Stmt{b.insertStmt, b.countTypeStmt, b.countDistinctStmt, b.sweepStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if b.db != nil {
			_, _ = b.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = b.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (b *SQLiteBackend) checkpointLoop() {
	ticker := time.NewTicker(b.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = b.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-b.done:
			return
		}
	}
}
