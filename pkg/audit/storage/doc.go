// Package storage provides storage backends for audit records.
//
// # Storage Backends
//
// Two implementations of the audit.Storage interface are provided:
//
//   - SQLite: embedded database for flight and ground deployments
//   - Memory: in-memory map for tests and ephemeral runs
//
// # SQLite Backend
//
// The SQLite backend provides durable storage with:
//
//   - WAL mode so the recorder writes while operators query
//   - Indexes on recorded_at, kind, phase, anomaly_type, escalation,
//     and satellite_id
//   - Connection pooling and a busy timeout for lock contention
//   - A schema_version table for future migrations
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:         "data/audit.db",
//	    MaxOpenConns: 10,
//	    MaxIdleConns: 5,
//	    WALMode:      true,
//	    BusyTimeout:  5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	records, err := store.Query(ctx, &audit.Query{
//	    Kind:  audit.KindDecision,
//	    Phase: "NOMINAL_OPS",
//	    Limit: 100,
//	})
//
// # Thread Safety
//
// Both backends support concurrent Store and Query calls from multiple
// goroutines.
package storage
