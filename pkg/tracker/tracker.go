package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"astraguard/aegis/pkg/config"
	"astraguard/aegis/pkg/policy"
)

// sweepTimeout bounds one background sweep pass.
const sweepTimeout = 30 * time.Second

// Config contains tracker settings.
type Config struct {
	// Enabled enables attribute enrichment. When disabled Enrich is a
	// no-op and events are evaluated exactly as submitted.
	Enabled bool

	// Window is the sliding window within which repeated anomalies of
	// the same type count as recurrences and overlapping distinct types
	// count as simultaneous faults.
	// Default: 5 minutes
	Window time.Duration

	// SweepInterval is how often expired occurrences are pruned from the
	// backend.
	// Default: 1 minute
	SweepInterval time.Duration
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		Window:        5 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// FromConfig converts the application tracker configuration. Backend
// selection is handled by the caller; only the windowing settings carry
// over.
func FromConfig(c config.TrackerConfig) *Config {
	return &Config{
		Enabled:       c.Enabled,
		Window:        c.Window,
		SweepInterval: c.SweepInterval,
	}
}

// Backend stores anomaly occurrences and answers windowed counts. A
// backend never interprets the window; callers pass explicit cutoffs.
type Backend interface {
	// Record stores one occurrence of an anomaly type for a satellite.
	Record(ctx context.Context, satelliteID, anomalyType string, at time.Time) error

	// CountType returns the number of occurrences of the given type for
	// the satellite observed at or after since.
	CountType(ctx context.Context, satelliteID, anomalyType string, since time.Time) (int, error)

	// CountDistinct returns the number of distinct anomaly types with at
	// least one occurrence for the satellite at or after since.
	CountDistinct(ctx context.Context, satelliteID string, since time.Time) (int, error)

	// Sweep removes occurrences observed before the cutoff and returns
	// how many were removed.
	Sweep(ctx context.Context, before time.Time) (int, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Tracker observes anomaly occurrences per satellite and fills in the
// recurrence and simultaneous-fault attributes for events that arrive
// without them. Counts are derived from a sliding window over the
// configured backend; a background sweeper prunes expired occurrences.
type Tracker struct {
	backend Backend
	config  *Config
	logger  *slog.Logger

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a tracker over the given backend and starts its sweep loop.
func New(backend Backend, cfg *Config) *Tracker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	t := &Tracker{
		backend: backend,
		config:  cfg,
		logger:  slog.Default().With("component", "tracker"),
		done:    make(chan struct{}),
	}

	t.wg.Add(1)
	go t.sweepLoop()

	t.logger.Info("occurrence tracker started",
		"enabled", cfg.Enabled,
		"window", cfg.Window,
		"sweep_interval", cfg.SweepInterval,
	)

	return t
}

// Observe records one occurrence without enriching anything. Callers that
// evaluate events elsewhere use this to keep the window accurate.
func (t *Tracker) Observe(ctx context.Context, satelliteID, anomalyType string) error {
	if !t.config.Enabled {
		return nil
	}
	if err := t.backend.Record(ctx, satelliteID, anomalyType, time.Now()); err != nil {
		return fmt.Errorf("failed to record occurrence: %w", err)
	}
	return nil
}

// Recurrences returns how many occurrences of the anomaly type fall inside
// the current window for the satellite.
func (t *Tracker) Recurrences(ctx context.Context, satelliteID, anomalyType string) (int, error) {
	return t.backend.CountType(ctx, satelliteID, anomalyType, time.Now().Add(-t.config.Window))
}

// ActiveFaults returns how many distinct anomaly types are active inside
// the current window for the satellite.
func (t *Tracker) ActiveFaults(ctx context.Context, satelliteID string) (int, error) {
	return t.backend.CountDistinct(ctx, satelliteID, time.Now().Add(-t.config.Window))
}

// Enrich records the event's occurrence and fills RecurrenceCount and
// SimultaneousFaults when the caller left them zero. Explicit values are
// never overwritten. RecurrenceCount becomes the number of prior
// occurrences of the same type in the window, so a first occurrence stays
// at zero; SimultaneousFaults becomes the number of distinct active types
// including this one.
func (t *Tracker) Enrich(ctx context.Context, satelliteID string, event *policy.AnomalyEvent) error {
	if !t.config.Enabled || event == nil {
		return nil
	}

	now := time.Now()
	if err := t.backend.Record(ctx, satelliteID, event.AnomalyType, now); err != nil {
		return fmt.Errorf("failed to record occurrence: %w", err)
	}

	needRecurrence := event.Attributes.RecurrenceCount == 0
	needFaults := event.Attributes.SimultaneousFaults == 0
	if !needRecurrence && !needFaults {
		return nil
	}

	since := now.Add(-t.config.Window)

	if needRecurrence {
		n, err := t.backend.CountType(ctx, satelliteID, event.AnomalyType, since)
		if err != nil {
			return fmt.Errorf("failed to count recurrences: %w", err)
		}
		if n > 0 {
			event.Attributes.RecurrenceCount = n - 1
		}
	}

	if needFaults {
		n, err := t.backend.CountDistinct(ctx, satelliteID, since)
		if err != nil {
			return fmt.Errorf("failed to count active faults: %w", err)
		}
		event.Attributes.SimultaneousFaults = n
	}

	t.logger.Debug("event enriched",
		"satellite_id", satelliteID,
		"anomaly_type", event.AnomalyType,
		"recurrence_count", event.Attributes.RecurrenceCount,
		"simultaneous_faults", event.Attributes.SimultaneousFaults,
	)

	return nil
}

// Ping verifies the backing store is reachable.
func (t *Tracker) Ping(ctx context.Context) error {
	return t.backend.Ping(ctx)
}

// Close stops the sweep loop and closes the backend. Safe to call more
// than once.
func (t *Tracker) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.wg.Wait()
		err = t.backend.Close()
		t.logger.Info("occurrence tracker stopped")
	})
	return err
}

// sweepLoop prunes expired occurrences on the configured interval.
func (t *Tracker) sweepLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			removed, err := t.backend.Sweep(ctx, time.Now().Add(-t.config.Window))
			cancel()

			if err != nil {
				t.logger.Error("occurrence sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				t.logger.Debug("expired occurrences swept", "removed", removed)
			}

		case <-t.done:
			return
		}
	}
}
