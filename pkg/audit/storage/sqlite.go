package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"astraguard/aegis/pkg/audit"
	"astraguard/aegis/pkg/config"
)

// SQLiteConfig contains settings for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns bounds open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns bounds idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables write-ahead logging, letting the recorder write
	// while queries read.
	// Default: true
	WALMode bool

	// BusyTimeout is how long a connection waits on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteFromConfig converts the application audit configuration.
func SQLiteFromConfig(c config.SQLiteConfig) *SQLiteConfig {
	return &SQLiteConfig{
		Path:         c.Path,
		MaxOpenConns: c.MaxOpenConns,
		MaxIdleConns: c.MaxIdleConns,
		WALMode:      c.WALMode,
		BusyTimeout:  c.BusyTimeout,
	}
}

// SQLiteStorage implements audit.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, applies pragmas, and initializes
// the schema.
func NewSQLiteStorage(cfg *SQLiteConfig) (*SQLiteStorage, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("audit storage initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

// initialize applies pragmas, creates the schema, and verifies the schema
// version.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyMs)); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store persists one audit record.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	allowedActions, _ := json.Marshal(record.AllowedActions)

	const insert = `
		INSERT INTO audit_records (
			id, kind, recorded_at,
			satellite_id, request_id, phase,
			decision_id, anomaly_type, severity, severity_score,
			escalation, is_allowed, recommended_action, allowed_actions,
			confidence, reasoning, rule_fired, evaluated_at,
			from_phase, to_phase, reason, recovery, authorized_by, committed_at,
			checksum
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, insert,
		record.ID, string(record.Kind), record.RecordedAt,
		nullable(record.SatelliteID), nullable(record.RequestID), record.Phase,
		nullable(record.DecisionID), nullable(record.AnomalyType), nullable(record.Severity), record.SeverityScore,
		nullable(record.Escalation), record.IsAllowed, nullable(record.RecommendedAction), string(allowedActions),
		record.Confidence, nullable(record.Reasoning), nullable(record.RuleFired), record.EvaluatedAt,
		nullable(record.FromPhase), nullable(record.ToPhase), nullable(record.Reason), record.Recovery, nullable(record.AuthorizedBy), record.CommittedAt,
		nullable(record.Checksum),
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}

	return nil
}

// Query returns matching records ordered by recorded_at. When the query
// carries no limit, at most 100 records are returned.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	sqlQuery, args := s.buildSelect("SELECT * FROM audit_records", query, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		record, err := s.scanRow(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// QueryStream streams matching records over a channel. Unlike Query, a
// zero limit streams the full result set, which is what exports and the
// retention archiver need.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *audit.Query) (<-chan *audit.Record, <-chan error, error) {
	recordsCh := make(chan *audit.Record, 100)
	errCh := make(chan error, 1)

	sqlQuery, args := s.buildSelect("SELECT * FROM audit_records", query, query.Limit)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- audit.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := s.scanRow(rows)
			if err != nil {
				errCh <- audit.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- audit.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of matching records.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	sqlQuery, args := s.buildWhere("SELECT COUNT(*) FROM audit_records", query)

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// Delete removes matching records and returns the count removed.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	sqlQuery, args := s.buildWhere("DELETE FROM audit_records", query)

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}

	return count, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return audit.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("audit storage closed")
	return nil
}

// buildSelect appends the WHERE clause, ordering, and pagination to the
// base statement. A limit of zero or less means no LIMIT clause.
func (s *SQLiteStorage) buildSelect(base string, query *audit.Query, limit int) (string, []interface{}) {
	stmt, args := s.buildWhere(base, query)

	order := "DESC"
	if query.SortOrder == audit.SortAsc {
		order = "ASC"
	}
	stmt += " ORDER BY recorded_at " + order

	if limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", limit)
	}
	if query.Offset > 0 {
		if limit <= 0 {
			// SQLite requires LIMIT before OFFSET; -1 means unbounded.
			stmt += " LIMIT -1"
		}
		stmt += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	return stmt, args
}

// buildWhere appends the WHERE clause for the query filters.
func (s *SQLiteStorage) buildWhere(base string, query *audit.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(query.Kind))
	}
	if query.Phase != "" {
		conditions = append(conditions, "phase = ?")
		args = append(args, query.Phase)
	}
	if query.AnomalyType != "" {
		conditions = append(conditions, "anomaly_type = ?")
		args = append(args, query.AnomalyType)
	}
	if query.Escalation != "" {
		conditions = append(conditions, "escalation = ?")
		args = append(args, query.Escalation)
	}
	if query.SatelliteID != "" {
		conditions = append(conditions, "satellite_id = ?")
		args = append(args, query.SatelliteID)
	}
	if query.RuleFired != "" {
		conditions = append(conditions, "rule_fired = ?")
		args = append(args, query.RuleFired)
	}
	if query.StartTime != nil {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, *query.StartTime)
	}
	if query.EndTime != nil {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, *query.EndTime)
	}

	stmt := base
	if len(conditions) > 0 {
		stmt += " WHERE " + strings.Join(conditions, " AND ")
	}

	return stmt, args
}

// scanRow scans one row into a Record.
func (s *SQLiteStorage) scanRow(rows *sql.Rows) (*audit.Record, error) {
	var (
		record         audit.Record
		kind           string
		satelliteID    sql.NullString
		requestID      sql.NullString
		decisionID     sql.NullString
		anomalyType    sql.NullString
		severity       sql.NullString
		escalation     sql.NullString
		recommended    sql.NullString
		allowedActions sql.NullString
		reasoning      sql.NullString
		ruleFired      sql.NullString
		fromPhase      sql.NullString
		toPhase        sql.NullString
		reason         sql.NullString
		authorizedBy   sql.NullString
		checksum       sql.NullString
	)

	err := rows.Scan(
		&record.ID, &kind, &record.RecordedAt,
		&satelliteID, &requestID, &record.Phase,
		&decisionID, &anomalyType, &severity, &record.SeverityScore,
		&escalation, &record.IsAllowed, &recommended, &allowedActions,
		&record.Confidence, &reasoning, &ruleFired, &record.EvaluatedAt,
		&fromPhase, &toPhase, &reason, &record.Recovery, &authorizedBy, &record.CommittedAt,
		&checksum,
	)
	if err != nil {
		return nil, err
	}

	record.Kind = audit.RecordKind(kind)
	record.SatelliteID = satelliteID.String
	record.RequestID = requestID.String
	record.DecisionID = decisionID.String
	record.AnomalyType = anomalyType.String
	record.Severity = severity.String
	record.Escalation = escalation.String
	record.RecommendedAction = recommended.String
	record.Reasoning = reasoning.String
	record.RuleFired = ruleFired.String
	record.FromPhase = fromPhase.String
	record.ToPhase = toPhase.String
	record.Reason = reason.String
	record.AuthorizedBy = authorizedBy.String
	record.Checksum = checksum.String

	if allowedActions.Valid && allowedActions.String != "" && allowedActions.String != "null" {
		if err := json.Unmarshal([]byte(allowedActions.String), &record.AllowedActions); err != nil {
			return nil, err
		}
	}

	return &record, nil
}

// nullable converts empty strings to NULL so optional columns stay
// queryable with IS NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
