package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"astraguard/aegis/pkg/audit"
	"astraguard/aegis/pkg/config"
	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy"
)

// Config contains recorder settings.
type Config struct {
	// Enabled enables audit recording. When disabled every Record call is
	// a no-op.
	Enabled bool

	// AsyncBuffer is the bounded channel capacity. When the buffer is
	// full new records are dropped and counted; the decision path never
	// blocks on storage.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds a single storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// FromConfig converts the application audit configuration.
func FromConfig(c config.AuditConfig) *Config {
	return &Config{
		Enabled:      c.Enabled,
		AsyncBuffer:  c.Recorder.AsyncBuffer,
		WriteTimeout: c.Recorder.WriteTimeout,
	}
}

// Metrics receives recorder instrumentation. The telemetry collector
// satisfies this; a nil Metrics disables instrumentation.
type Metrics interface {
	SetAuditQueueDepth(depth int)
	RecordAuditWrite(status string)
}

// Recorder captures audit records asynchronously. Callers enqueue sealed
// records onto a bounded channel; a background worker drains the channel
// into storage. Close drains whatever is still buffered before returning.
type Recorder struct {
	storage audit.Storage
	config  *Config
	metrics Metrics

	recordCh chan *audit.Record
	done     chan struct{}
	wg       sync.WaitGroup

	dropped atomic.Uint64
	logger  *slog.Logger
}

// New creates a recorder and starts its background writer. metrics may be
// nil.
func New(storage audit.Storage, cfg *Config, metrics Metrics) *Recorder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.AsyncBuffer < 1 {
		cfg.AsyncBuffer = 1
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage:  storage,
		config:   cfg,
		metrics:  metrics,
		recordCh: make(chan *audit.Record, cfg.AsyncBuffer),
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder started",
		"enabled", cfg.Enabled,
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)

	return r
}

// RecordDecision enqueues an audit record for an issued decision.
// satelliteID and requestID may be empty for local evaluations.
func (r *Recorder) RecordDecision(ctx context.Context, d policy.Decision, satelliteID, requestID string) error {
	if !r.config.Enabled {
		return nil
	}
	return r.enqueue(audit.NewDecisionRecord(d, satelliteID, requestID))
}

// RecordTransition enqueues an audit record for a committed phase change.
func (r *Recorder) RecordTransition(ctx context.Context, t mission.Transition, requestID string) error {
	if !r.config.Enabled {
		return nil
	}
	return r.enqueue(audit.NewTransitionRecord(t, requestID))
}

// enqueue seals the record and offers it to the channel without blocking.
func (r *Recorder) enqueue(record *audit.Record) error {
	record.Seal()

	select {
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
			"kind", record.Kind,
		)
		return audit.NewRecorderError(record.ID, context.Canceled)
	default:
	}

	select {
	case r.recordCh <- record:
		r.observeQueueDepth()
		return nil
	default:
		dropped := r.dropped.Add(1)
		r.logger.Error("audit buffer full, dropping record",
			"record_id", record.ID,
			"kind", record.Kind,
			"dropped_total", dropped,
			"buffer_capacity", r.config.AsyncBuffer,
		)
		if r.metrics != nil {
			r.metrics.RecordAuditWrite("dropped")
		}
		return audit.NewRecorderError(record.ID, audit.ErrBufferFull)
	}
}

// Pending returns the number of buffered records awaiting write.
func (r *Recorder) Pending() int {
	return len(r.recordCh)
}

// Dropped returns the number of records dropped since start.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close stops the recorder, drains the buffer into storage, and waits for
// the writer to finish.
func (r *Recorder) Close() error {
	r.logger.Info("shutting down audit recorder", "pending", len(r.recordCh))

	close(r.done)
	r.wg.Wait()

	r.logger.Info("audit recorder stopped", "dropped_total", r.dropped.Load())
	return nil
}

// worker drains the channel into storage until shutdown, then drains what
// remains before exiting.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordCh:
			r.write(record)
			r.observeQueueDepth()

		case <-r.done:
			for {
				select {
				case record := <-r.recordCh:
					r.write(record)
				default:
					r.observeQueueDepth()
					return
				}
			}
		}
	}
}

// write persists one record under the write timeout.
func (r *Recorder) write(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"kind", record.Kind,
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.RecordAuditWrite("error")
		}
		return
	}

	elapsed := time.Since(start)

	r.logger.Debug("audit record stored",
		"record_id", record.ID,
		"kind", record.Kind,
		"duration_ms", elapsed.Milliseconds(),
	)

	if r.metrics != nil {
		r.metrics.RecordAuditWrite("ok")
	}

	if elapsed > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", elapsed.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

func (r *Recorder) observeQueueDepth() {
	if r.metrics != nil {
		r.metrics.SetAuditQueueDepth(len(r.recordCh))
	}
}
