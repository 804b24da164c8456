package health

import (
	"context"
	"sync"
	"time"
)

// Status classifies an individual check or the aggregate.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes one component. A nil return means healthy; the error
// message becomes the check's reported message otherwise.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one component check.
type CheckResult struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Message carries the failure detail for unhealthy checks.
	Message string `json:"message,omitempty"`

	// DurationMS is how long the check took, in milliseconds.
	DurationMS float64 `json:"duration_ms,omitempty"`
}

// Report is the aggregate health of the decision authority.
type Report struct {
	// Status is "ok" for liveness; "ready" or "degraded" for readiness.
	Status string `json:"status"`

	// Checks holds per-component results. Nil for liveness reports.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Timestamp is when the report was produced.
	Timestamp time.Time `json:"timestamp"`
}

// Checker runs named component checks. The server registers one check per
// dependency it needs before serving decisions: the policy table, the
// audit storage, and the tracker backend.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc

	checkTimeout time.Duration
}

// DefaultCheckTimeout bounds a single component check when no timeout is
// given to New.
const DefaultCheckTimeout = 5 * time.Second

// New creates a checker. A zero timeout selects DefaultCheckTimeout.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = DefaultCheckTimeout
	}
	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
	}
}

// Register adds or replaces the check for a named component.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Unregister removes a component's check.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Liveness reports that the process is running. It never runs component
// checks, so it stays fast enough for tight probe intervals.
func (c *Checker) Liveness(ctx context.Context) Report {
	return Report{
		Status:    StatusOK,
		Timestamp: time.Now().UTC(),
	}
}

// Readiness runs every registered check concurrently and aggregates the
// results. Any unhealthy component degrades the aggregate. With no checks
// registered the authority is considered ready.
func (c *Checker) Readiness(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))

	if len(checks) == 0 {
		return Report{
			Status:    StatusReady,
			Checks:    results,
			Timestamp: time.Now().UTC(),
		}
	}

	var (
		wg       sync.WaitGroup
		resultMu sync.Mutex
	)

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()

			result := c.run(ctx, check)

			resultMu.Lock()
			results[name] = result
			resultMu.Unlock()
		}(name, check)
	}

	wg.Wait()

	status := StatusReady
	for _, result := range results {
		if result.Status == StatusUnhealthy {
			status = StatusDegraded
		}
	}

	return Report{
		Status:    status,
		Checks:    results,
		Timestamp: time.Now().UTC(),
	}
}

// run executes one check under the per-check timeout.
func (c *Checker) run(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()

	errCh := make(chan error, 1)
	go func() {
		errCh <- check(checkCtx)
	}()

	select {
	case err := <-errCh:
		elapsed := time.Since(start)
		if err != nil {
			return CheckResult{
				Status:     StatusUnhealthy,
				Message:    err.Error(),
				DurationMS: float64(elapsed.Microseconds()) / 1000.0,
			}
		}
		return CheckResult{
			Status:     StatusOK,
			DurationMS: float64(elapsed.Microseconds()) / 1000.0,
		}

	case <-checkCtx.Done():
		elapsed := time.Since(start)
		return CheckResult{
			Status:     StatusUnhealthy,
			Message:    "check timed out",
			DurationMS: float64(elapsed.Microseconds()) / 1000.0,
		}
	}
}

// Names returns the registered component names.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered checks.
func (c *Checker) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.checks)
}
