package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy"
)

// Source provides policy documents to the engine.
type Source interface {
	// Load reads the current policy document.
	Load(ctx context.Context) (policy.Document, error)

	// Watch emits an event whenever the underlying policy data changes. The
	// channel is closed when the context is cancelled. Sources without
	// change detection return a channel that never sends.
	Watch(ctx context.Context) (<-chan SourceEvent, error)
}

// SourceEvent signals a policy data change.
type SourceEvent struct {
	// Path is the changed file, empty for non-file sources.
	Path string

	// Err carries a watcher failure; nil for ordinary change events.
	Err error
}

// Engine is the policy evaluation facade: it owns the validated policy
// table, reads the current phase from the state machine, and turns anomaly
// events into bounded, auditable escalation decisions.
type Engine struct {
	machine *mission.StateMachine
	source  Source
	logger  *slog.Logger

	// mu protects table for atomic reload swaps.
	mu    sync.RWMutex
	table *policy.Table

	listenerMu sync.RWMutex
	listeners  []func(policy.Decision)

	cancelWatch context.CancelFunc
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// New creates an engine, loads the initial policy table from the source, and
// starts watching for policy changes. Call Close to release the watcher.
func New(machine *mission.StateMachine, source Source, logger *slog.Logger) (*Engine, error) {
	if machine == nil {
		return nil, fmt.Errorf("state machine cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("policy source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		machine: machine,
		source:  source,
		logger:  logger.With("component", "policy.engine"),
	}

	if err := e.Reload(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load initial policies: %w", err)
	}

	e.startWatching()

	return e, nil
}

// Evaluate runs the escalation rules for one anomaly event under an explicit
// mission phase. An unknown phase or an out-of-range severity score fails
// the call; no default decision is ever substituted for bad input.
func (e *Engine) Evaluate(ctx context.Context, phase mission.Phase, event policy.AnomalyEvent) (policy.Decision, error) {
	table := e.currentTable()

	severity, err := table.Classify(phase, event.SeverityScore)
	if err != nil {
		return policy.Decision{}, err
	}
	pol, err := table.Get(phase)
	if err != nil {
		return policy.Decision{}, err
	}

	out := resolve(ruleInput{
		phase:    phase,
		policy:   pol,
		severity: severity,
		event:    event,
	})

	allowed := make([]policy.Action, len(pol.AllowedActions))
	copy(allowed, pol.AllowedActions)

	decision := policy.Decision{
		ID:                uuid.NewString(),
		MissionPhase:      phase,
		AnomalyType:       event.AnomalyType,
		Severity:          severity,
		SeverityScore:     event.SeverityScore,
		Escalation:        out.escalation,
		IsAllowed:         out.isAllowed,
		RecommendedAction: out.action,
		VetoedAction:      out.vetoed,
		AllowedActions:    allowed,
		Confidence:        computeConfidence(event.SeverityScore, event.Attributes, out.confidenceBoost),
		Reasoning:         strings.Join(out.reasoning, "; "),
		RuleFired:         out.rule,
		EvaluatedAt:       time.Now().UTC(),
	}

	e.logger.Debug("anomaly evaluated",
		"decision_id", decision.ID,
		"phase", phase.String(),
		"anomaly_type", event.AnomalyType,
		"severity", severity.String(),
		"escalation", decision.Escalation.String(),
		"rule", decision.RuleFired,
		"is_allowed", decision.IsAllowed,
	)

	e.notify(decision)

	return decision, nil
}

// EvaluateCurrent evaluates the event under the machine's current phase. The
// phase is read once, so the whole decision observes a single consistent
// phase value.
func (e *Engine) EvaluateCurrent(ctx context.Context, event policy.AnomalyEvent) (policy.Decision, error) {
	return e.Evaluate(ctx, e.machine.Current(), event)
}

// Constraints returns the per-phase constraint summary from the currently
// loaded table.
func (e *Engine) Constraints(phase mission.Phase) (policy.PhaseConstraints, error) {
	return e.currentTable().Constraints(phase)
}

// CurrentPhase returns the state machine's current phase.
func (e *Engine) CurrentPhase() mission.Phase {
	return e.machine.Current()
}

// TransitionTo requests a phase transition through the state machine.
func (e *Engine) TransitionTo(target mission.Phase, reason string) (*mission.Transition, error) {
	return e.machine.TransitionTo(target, reason)
}

// Recover requests an operator-authorized exit from SAFE_MODE.
func (e *Engine) Recover(target mission.Phase, reason, authorizedBy string) (*mission.Transition, error) {
	return e.machine.Recover(target, reason, authorizedBy)
}

// History returns the state machine's transition history.
func (e *Engine) History() []mission.Transition {
	return e.machine.History()
}

// OnDecision registers a callback invoked synchronously after every
// successful evaluation. Callbacks must be fast or hand off to their own
// goroutines.
func (e *Engine) OnDecision(fn func(policy.Decision)) {
	e.listenerMu.Lock()
	defer e.listenerMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Reload loads a fresh policy document from the source, validates it, and
// atomically swaps the active table. On failure the previous table stays in
// effect.
func (e *Engine) Reload(ctx context.Context) error {
	doc, err := e.source.Load(ctx)
	if err != nil {
		return &ReloadError{Cause: err}
	}

	table, err := policy.NewTable(doc)
	if err != nil {
		return &ReloadError{Cause: err}
	}

	e.mu.Lock()
	e.table = table
	e.mu.Unlock()

	e.logger.Info("phase policies loaded",
		"phases", len(mission.Phases()),
		"apply_multiplier", table.AppliesMultiplier(),
	)

	return nil
}

// Close stops the policy watcher and waits for it to drain.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		if e.cancelWatch != nil {
			e.cancelWatch()
		}
		e.wg.Wait()
	})
	return nil
}

func (e *Engine) currentTable() *policy.Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table
}

func (e *Engine) notify(decision policy.Decision) {
	e.listenerMu.RLock()
	listeners := make([]func(policy.Decision), len(e.listeners))
	copy(listeners, e.listeners)
	e.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(decision)
	}
}

// startWatching subscribes to source change events and reloads on each one.
func (e *Engine) startWatching() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancelWatch = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		events, err := e.source.Watch(ctx)
		if err != nil {
			e.logger.Error("failed to start policy watcher", "error", err)
			return
		}

		for event := range events {
			if event.Err != nil {
				e.logger.Error("policy watcher error", "error", event.Err)
				continue
			}

			e.logger.Info("policy source changed", "path", event.Path)
			if err := e.Reload(ctx); err != nil {
				e.logger.Error("failed to reload policies after change",
					"error", err,
					"path", event.Path,
				)
			}
		}
	}()
}
