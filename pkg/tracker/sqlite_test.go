package tracker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func createTempBackend(t *testing.T) (*SQLiteBackend, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tracker.db")
	backend, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	return backend, path
}

func TestSQLiteBackend_Initialize(t *testing.T) {
	backend, path := createTempBackend(t)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if err := backend.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSQLiteBackend_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteBackend(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSQLiteBackend_RecordAndCountType(t *testing.T) {
	backend, _ := createTempBackend(t)
	ctx := context.Background()
	now := time.Now()

	for _, at := range []time.Time{now, now.Add(-time.Minute), now.Add(-10 * time.Minute)} {
		if err := backend.Record(ctx, "AST-001", "thermal_fault", at); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if err := backend.Record(ctx, "AST-002", "thermal_fault", now); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	count, err := backend.CountType(ctx, "AST-001", "thermal_fault", now.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("CountType failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 occurrences inside window, got %d", count)
	}

	count, err = backend.CountType(ctx, "AST-001", "thermal_fault", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountType failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 occurrences with wide cutoff, got %d", count)
	}
}

func TestSQLiteBackend_RecordEmptyType(t *testing.T) {
	backend, _ := createTempBackend(t)

	if err := backend.Record(context.Background(), "AST-001", "", time.Now()); err == nil {
		t.Error("expected error for empty anomaly type")
	}
}

func TestSQLiteBackend_CountDistinct(t *testing.T) {
	backend, _ := createTempBackend(t)
	ctx := context.Background()
	now := time.Now()

	occurrences := []struct {
		anomalyType string
		at          time.Time
	}{
		{"thermal_fault", now},
		{"thermal_fault", now.Add(-time.Minute)},
		{"power_fault", now},
		{"comm_fault", now.Add(-20 * time.Minute)},
	}
	for _, occ := range occurrences {
		if err := backend.Record(ctx, "AST-001", occ.anomalyType, occ.at); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	// comm_fault sits outside the cutoff.
	count, err := backend.CountDistinct(ctx, "AST-001", now.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("CountDistinct failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 distinct active types, got %d", count)
	}
}

func TestSQLiteBackend_Sweep(t *testing.T) {
	backend, _ := createTempBackend(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		if err := backend.Record(ctx, "AST-001", "thermal_fault", now.Add(-time.Hour)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if err := backend.Record(ctx, "AST-001", "thermal_fault", now); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	removed, err := backend.Sweep(ctx, now.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 5 {
		t.Errorf("expected 5 swept occurrences, got %d", removed)
	}

	count, err := backend.CountType(ctx, "AST-001", "thermal_fault", time.Time{})
	if err != nil {
		t.Fatalf("CountType failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 remaining occurrence, got %d", count)
	}
}

func TestSQLiteBackend_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	ctx := context.Background()
	now := time.Now()

	backend, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	if err := backend.Record(ctx, "AST-001", "thermal_fault", now); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := backend.Record(ctx, "AST-001", "power_fault", now); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Pattern memory survives a restart.
	reopened, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("failed to reopen backend: %v", err)
	}
	defer reopened.Close()

	count, err := reopened.CountDistinct(ctx, "AST-001", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountDistinct failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 distinct types after reopen, got %d", count)
	}
}

func TestSQLiteBackend_ConcurrentRecords(t *testing.T) {
	backend, _ := createTempBackend(t)
	ctx := context.Background()
	now := time.Now()

	var wg sync.WaitGroup
	errCh := make(chan error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				satellite := fmt.Sprintf("AST-%03d", n%3)
				if err := backend.Record(ctx, satellite, "thermal_fault", now); err != nil {
					errCh <- err
					return
				}
			}
		}(i)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent Record failed: %v", err)
	}

	total := 0
	for _, satellite := range []string{"AST-000", "AST-001", "AST-002"} {
		count, err := backend.CountType(ctx, satellite, "thermal_fault", now.Add(-time.Minute))
		if err != nil {
			t.Fatalf("CountType failed: %v", err)
		}
		total += count
	}
	if total != 100 {
		t.Errorf("expected 100 occurrences total, got %d", total)
	}
}

func TestSQLiteBackend_CloseIdempotent(t *testing.T) {
	backend, _ := createTempBackend(t)

	if err := backend.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func BenchmarkSQLiteBackend_Record(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench.db")
	backend, err := NewSQLiteBackend(path)
	if err != nil {
		b.Fatalf("failed to create backend: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	now := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := backend.Record(ctx, "AST-001", "thermal_fault", now); err != nil {
			b.Fatalf("Record failed: %v", err)
		}
	}
}

func BenchmarkSQLiteBackend_CountType(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench.db")
	backend, err := NewSQLiteBackend(path)
	if err != nil {
		b.Fatalf("failed to create backend: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 1000; i++ {
		if err := backend.Record(ctx, "AST-001", "thermal_fault", now); err != nil {
			b.Fatalf("Record failed: %v", err)
		}
	}

	since := now.Add(-5 * time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := backend.CountType(ctx, "AST-001", "thermal_fault", since); err != nil {
			b.Fatalf("CountType failed: %v", err)
		}
	}
}
