package retention

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"astraguard/aegis/pkg/audit/storage"
	"astraguard/aegis/pkg/config"
)

func configRetention() config.RetentionConfig {
	return config.RetentionConfig{
		Days:                30,
		Schedule:            "0 4 * * *",
		MaxRecords:          5000,
		ArchiveBeforeDelete: true,
		ArchivePath:         "data/test-archives",
	}
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{
			name:        "valid daily schedule",
			schedule:    "0 3 * * *",
			wantRunning: true,
			wantError:   false,
		},
		{
			name:        "valid hourly schedule",
			schedule:    "0 * * * *",
			wantRunning: true,
			wantError:   false,
		},
		{
			name:        "empty schedule disables scheduler",
			schedule:    "",
			wantRunning: false,
			wantError:   false,
		},
		{
			name:        "invalid schedule",
			schedule:    "invalid cron",
			wantRunning: false,
			wantError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := &Pruner{
				storage: storage.NewMemoryStorage(),
				config: &Config{
					PruneSchedule: tt.schedule,
					RetentionDays: 90,
				},
				logger: slog.Default(),
			}

			scheduler := NewScheduler(pruner)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)

			if (err != nil) != tt.wantError {
				t.Errorf("Start() error = %v, wantError %v", err, tt.wantError)
			}

			if scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v",
					scheduler.IsRunning(), tt.wantRunning)
			}

			if tt.wantRunning {
				if next := scheduler.NextRun(); next == nil {
					t.Error("NextRun() returned nil for running scheduler")
				}
			}

			scheduler.Stop()

			if scheduler.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestScheduler_GracefulShutdown(t *testing.T) {
	pruner := &Pruner{
		storage: storage.NewMemoryStorage(),
		config: &Config{
			PruneSchedule: "0 3 * * *",
			RetentionDays: 90,
		},
		logger: slog.Default(),
	}

	scheduler := NewScheduler(pruner)

	ctx, cancel := context.WithCancel(context.Background())

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	cancel()

	time.Sleep(100 * time.Millisecond)

	if scheduler.IsRunning() {
		t.Error("scheduler still running after context cancelled")
	}
}

func TestScheduler_NextRun(t *testing.T) {
	pruner := &Pruner{
		storage: storage.NewMemoryStorage(),
		config: &Config{
			PruneSchedule: "0 3 * * *",
			RetentionDays: 90,
		},
		logger: slog.Default(),
	}

	scheduler := NewScheduler(pruner)

	if next := scheduler.NextRun(); next != nil {
		t.Errorf("NextRun() before start = %v, want nil", next)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer scheduler.Stop()

	next := scheduler.NextRun()
	if next == nil {
		t.Fatal("NextRun() after start returned nil")
	}

	if !next.After(time.Now()) {
		t.Errorf("NextRun() = %v, want time in future", next)
	}
}

func TestScheduler_MultipleStartStop(t *testing.T) {
	pruner := &Pruner{
		storage: storage.NewMemoryStorage(),
		config: &Config{
			PruneSchedule: "0 * * * *",
			RetentionDays: 90,
		},
		logger: slog.Default(),
	}

	scheduler := NewScheduler(pruner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := scheduler.Start(ctx); err != nil {
			t.Fatalf("Start() iteration %d failed: %v", i, err)
		}

		if !scheduler.IsRunning() {
			t.Errorf("IsRunning() = false after Start() iteration %d", i)
		}

		scheduler.Stop()

		if scheduler.IsRunning() {
			t.Errorf("IsRunning() = true after Stop() iteration %d", i)
		}

		time.Sleep(50 * time.Millisecond)
	}
}

func TestPruner_StartStop(t *testing.T) {
	pruner := NewPruner(storage.NewMemoryStorage(), &Config{
		PruneSchedule: "0 3 * * *",
		RetentionDays: 90,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pruner.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if !pruner.scheduler.IsRunning() {
		t.Error("scheduler not running after Pruner.Start()")
	}

	if next := pruner.NextPruning(); next == nil {
		t.Error("NextPruning() returned nil")
	}

	pruner.Stop()

	if pruner.scheduler.IsRunning() {
		t.Error("scheduler still running after Pruner.Stop()")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(configRetention())

	if cfg.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", cfg.RetentionDays)
	}
	if cfg.PruneSchedule != "0 4 * * *" {
		t.Errorf("PruneSchedule = %q, want '0 4 * * *'", cfg.PruneSchedule)
	}
	if !cfg.ArchiveBeforeDelete {
		t.Error("ArchiveBeforeDelete = false, want true")
	}
	if cfg.ArchivePath != "data/test-archives" {
		t.Errorf("ArchivePath = %q", cfg.ArchivePath)
	}
	if cfg.MaxRecords != 5000 {
		t.Errorf("MaxRecords = %d, want 5000", cfg.MaxRecords)
	}
}
