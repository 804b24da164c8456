package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"astraguard/aegis/pkg/audit"
)

// createTempDB creates a temporary SQLite database for testing.
func createTempDB(t *testing.T) (*SQLiteStorage, string) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	config := &SQLiteConfig{
		Path:         dbPath,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}

	storage, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("Failed to create SQLite storage: %v", err)
	}

	return storage, dbPath
}

func decisionRecord(id string, recordedAt time.Time) *audit.Record {
	return &audit.Record{
		ID:                id,
		Kind:              audit.KindDecision,
		RecordedAt:        recordedAt,
		SatelliteID:       "AST-001",
		RequestID:         "req-" + id,
		Phase:             "NOMINAL_OPS",
		DecisionID:        "dec-" + id,
		AnomalyType:       "THERMAL_RUNAWAY",
		Severity:          "HIGH",
		SeverityScore:     0.85,
		Escalation:        "CONTROLLED_ACTION",
		IsAllowed:         true,
		RecommendedAction: "ADJUST_ATTITUDE",
		AllowedActions:    []string{"ADJUST_ATTITUDE", "ALERT_OPERATORS", "LOG_EVENT"},
		Confidence:        0.92,
		Reasoning:         "high severity thermal anomaly during nominal operations",
		RuleFired:         "high-severity-controlled-action",
		EvaluatedAt:       recordedAt,
	}
}

func transitionRecord(id string, recordedAt time.Time) *audit.Record {
	return &audit.Record{
		ID:          id,
		Kind:        audit.KindTransition,
		RecordedAt:  recordedAt,
		RequestID:   "req-" + id,
		Phase:       "SAFE_MODE",
		FromPhase:   "NOMINAL_OPS",
		ToPhase:     "SAFE_MODE",
		Reason:      "critical power anomaly",
		Recovery:    false,
		CommittedAt: recordedAt,
	}
}

func TestSQLiteStorage_Initialize(t *testing.T) {
	storage, dbPath := createTempDB(t)
	defer storage.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestSQLiteStorage_StoreAndQuery(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	record := decisionRecord("rec-1", now)
	record.Seal()

	if err := storage.Store(ctx, record); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	results, err := storage.Query(ctx, &audit.Query{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(results))
	}

	r := results[0]
	if r.ID != "rec-1" {
		t.Errorf("Expected ID 'rec-1', got '%s'", r.ID)
	}
	if r.Kind != audit.KindDecision {
		t.Errorf("Expected kind %q, got %q", audit.KindDecision, r.Kind)
	}
	if r.AnomalyType != "THERMAL_RUNAWAY" {
		t.Errorf("Expected anomaly type 'THERMAL_RUNAWAY', got '%s'", r.AnomalyType)
	}
	if r.SeverityScore != 0.85 {
		t.Errorf("Expected severity score 0.85, got %f", r.SeverityScore)
	}
	if len(r.AllowedActions) != 3 {
		t.Errorf("Expected 3 allowed actions, got %d", len(r.AllowedActions))
	}
	if r.AllowedActions[0] != "ADJUST_ATTITUDE" {
		t.Errorf("Allowed actions not preserved: %v", r.AllowedActions)
	}
	if !r.Verify() {
		t.Error("Checksum did not survive the roundtrip")
	}
}

func TestSQLiteStorage_StoreTransition(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	record := transitionRecord("trans-1", now)
	record.Seal()

	if err := storage.Store(ctx, record); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	results, err := storage.Query(ctx, &audit.Query{Kind: audit.KindTransition})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(results))
	}

	r := results[0]
	if r.FromPhase != "NOMINAL_OPS" {
		t.Errorf("Expected from phase 'NOMINAL_OPS', got '%s'", r.FromPhase)
	}
	if r.ToPhase != "SAFE_MODE" {
		t.Errorf("Expected to phase 'SAFE_MODE', got '%s'", r.ToPhase)
	}
	if r.Recovery {
		t.Error("Expected escalation transition, got recovery")
	}
	if !r.Verify() {
		t.Error("Checksum did not survive the roundtrip")
	}
}

func TestSQLiteStorage_QueryWithTimeRange(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	records := []*audit.Record{
		decisionRecord("old", now.Add(-2*time.Hour)),
		decisionRecord("recent", now.Add(-30*time.Minute)),
		decisionRecord("new", now),
	}

	for _, record := range records {
		if err := storage.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}

	startTime := now.Add(-1 * time.Hour)
	results, err := storage.Query(ctx, &audit.Query{StartTime: &startTime})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}

	if len(results) != 2 {
		t.Errorf("Expected 2 records, got %d", len(results))
	}

	for _, r := range results {
		if r.ID == "old" {
			t.Error("Record outside the time range should not be in results")
		}
	}
}

func TestSQLiteStorage_QueryWithFilters(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	first := decisionRecord("rec-1", now)

	second := decisionRecord("rec-2", now)
	second.SatelliteID = "AST-002"
	second.Phase = "LAUNCH"
	second.AnomalyType = "POWER_FAILURE"
	second.Escalation = "ESCALATE_SAFE_MODE"
	second.RuleFired = "critical-power-launch"

	third := transitionRecord("trans-1", now)

	for _, record := range []*audit.Record{first, second, third} {
		if err := storage.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}

	tests := []struct {
		name          string
		query         *audit.Query
		expectedCount int
	}{
		{
			name:          "filter by kind",
			query:         &audit.Query{Kind: audit.KindDecision},
			expectedCount: 2,
		},
		{
			name:          "filter by phase",
			query:         &audit.Query{Phase: "LAUNCH"},
			expectedCount: 1,
		},
		{
			name:          "filter by anomaly type",
			query:         &audit.Query{AnomalyType: "THERMAL_RUNAWAY"},
			expectedCount: 1,
		},
		{
			name:          "filter by escalation",
			query:         &audit.Query{Escalation: "ESCALATE_SAFE_MODE"},
			expectedCount: 1,
		},
		{
			name:          "filter by satellite",
			query:         &audit.Query{SatelliteID: "AST-001"},
			expectedCount: 1,
		},
		{
			name:          "filter by rule fired",
			query:         &audit.Query{RuleFired: "critical-power-launch"},
			expectedCount: 1,
		},
		{
			name: "combined filters",
			query: &audit.Query{
				Kind:        audit.KindDecision,
				SatelliteID: "AST-002",
			},
			expectedCount: 1,
		},
		{
			name:          "no match",
			query:         &audit.Query{Phase: "DEPLOYMENT"},
			expectedCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := storage.Query(ctx, tt.query)
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}

			if len(results) != tt.expectedCount {
				t.Errorf("Expected %d records, got %d", tt.expectedCount, len(results))
			}
		})
	}
}

func TestSQLiteStorage_QueryWithPagination(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 10; i++ {
		record := decisionRecord(fmt.Sprintf("rec-%d", i), now.Add(time.Duration(i)*time.Second))
		if err := storage.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}

	results, err := storage.Query(ctx, &audit.Query{Limit: 5})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("Expected 5 records, got %d", len(results))
	}

	results, err = storage.Query(ctx, &audit.Query{Limit: 3, Offset: 5})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected 3 records, got %d", len(results))
	}
}

func TestSQLiteStorage_QueryWithSorting(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	records := []*audit.Record{
		decisionRecord("first", now),
		decisionRecord("second", now.Add(1*time.Second)),
		decisionRecord("third", now.Add(2*time.Second)),
	}

	for _, record := range records {
		if err := storage.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}

	// Default order is newest first.
	results, err := storage.Query(ctx, &audit.Query{})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(results))
	}
	if results[0].ID != "third" {
		t.Errorf("Expected first record 'third', got '%s'", results[0].ID)
	}
	if results[2].ID != "first" {
		t.Errorf("Expected last record 'first', got '%s'", results[2].ID)
	}

	results, err = storage.Query(ctx, &audit.Query{SortOrder: audit.SortAsc})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if results[0].ID != "first" {
		t.Errorf("Expected first record 'first', got '%s'", results[0].ID)
	}
	if results[2].ID != "third" {
		t.Errorf("Expected last record 'third', got '%s'", results[2].ID)
	}
}

func TestSQLiteStorage_Count(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()

	count, err := storage.Count(ctx, &audit.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected count 0, got %d", count)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		record := decisionRecord(fmt.Sprintf("rec-%d", i), now)
		if err := storage.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}

	count, err = storage.Count(ctx, &audit.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected count 5, got %d", count)
	}

	count, err = storage.Count(ctx, &audit.Query{SatelliteID: "AST-001"})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected count 5, got %d", count)
	}
}

func TestSQLiteStorage_Delete(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 5; i++ {
		record := decisionRecord(fmt.Sprintf("rec-%d", i), now)
		if i >= 3 {
			record.SatelliteID = "AST-002"
		}
		if err := storage.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}

	deleted, err := storage.Delete(ctx, &audit.Query{SatelliteID: "AST-001"})
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 deleted, got %d", deleted)
	}

	count, err := storage.Count(ctx, &audit.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 remaining records, got %d", count)
	}
}

func TestSQLiteStorage_QueryStream(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 20; i++ {
		record := decisionRecord(fmt.Sprintf("rec-%d", i), now.Add(time.Duration(i)*time.Second))
		if err := storage.Store(ctx, record); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}

	recordsCh, errCh, err := storage.QueryStream(ctx, &audit.Query{Limit: 20})
	if err != nil {
		t.Fatalf("QueryStream() failed: %v", err)
	}

	received := 0
	for range recordsCh {
		received++
	}

	if err := <-errCh; err != nil {
		t.Fatalf("QueryStream() returned error: %v", err)
	}

	if received != 20 {
		t.Errorf("Expected 20 streamed records, got %d", received)
	}
}

func TestSQLiteStorage_ConcurrentWrites(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()

	done := make(chan bool, 10)
	errors := make(chan error, 10)

	for i := 0; i < 10; i++ {
		go func(id int) {
			record := decisionRecord(fmt.Sprintf("rec-%d", id), time.Now().UTC())
			if err := storage.Store(ctx, record); err != nil {
				errors <- err
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	close(errors)
	for err := range errors {
		t.Errorf("Concurrent write error: %v", err)
	}

	count, err := storage.Count(ctx, &audit.Query{})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 10 {
		t.Errorf("Expected 10 records after concurrent writes, got %d", count)
	}
}

func TestSQLiteStorage_Ping(t *testing.T) {
	storage, _ := createTempDB(t)
	defer storage.Close()

	if err := storage.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}

func TestSQLiteStorage_Close(t *testing.T) {
	storage, _ := createTempDB(t)

	if err := storage.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	record := decisionRecord("after-close", time.Now().UTC())
	if err := storage.Store(context.Background(), record); err == nil {
		t.Error("Expected error after Close(), got nil")
	}
}

func BenchmarkSQLiteStorage_Store(b *testing.B) {
	tmpDir := b.TempDir()
	dbPath := filepath.Join(tmpDir, "bench.db")

	storage, err := NewSQLiteStorage(&SQLiteConfig{
		Path:         dbPath,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		b.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		record := decisionRecord(fmt.Sprintf("rec-%d", i), now)
		_ = storage.Store(ctx, record)
	}
}

func BenchmarkSQLiteStorage_Query(b *testing.B) {
	tmpDir := b.TempDir()
	dbPath := filepath.Join(tmpDir, "bench.db")

	storage, err := NewSQLiteStorage(&SQLiteConfig{
		Path:         dbPath,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		b.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 1000; i++ {
		record := decisionRecord(fmt.Sprintf("rec-%d", i), now)
		_ = storage.Store(ctx, record)
	}

	query := &audit.Query{Phase: "NOMINAL_OPS", Limit: 100}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = storage.Query(ctx, query)
	}
}
