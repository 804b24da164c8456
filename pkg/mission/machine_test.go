package mission

import (
	"errors"
	"sync"
	"testing"
)

func newMachine(t *testing.T, initial Phase) *StateMachine {
	t.Helper()
	sm, err := NewStateMachine(initial, nil)
	if err != nil {
		t.Fatalf("NewStateMachine(%v): %v", initial, err)
	}
	return sm
}

func TestNewStateMachine(t *testing.T) {
	sm := newMachine(t, PhaseLaunch)
	if got := sm.Current(); got != PhaseLaunch {
		t.Errorf("Current() = %v, want LAUNCH", got)
	}

	if _, err := NewStateMachine(Phase(42), nil); err == nil {
		t.Error("expected error for invalid initial phase")
	}
}

func TestTransitionForwardProgression(t *testing.T) {
	sm := newMachine(t, PhaseLaunch)

	steps := []Phase{PhaseDeployment, PhaseNominalOps, PhasePayloadOps}
	for _, target := range steps {
		tr, err := sm.TransitionTo(target, "checkout complete")
		if err != nil {
			t.Fatalf("TransitionTo(%v): %v", target, err)
		}
		if tr.To != target {
			t.Errorf("transition To = %v, want %v", tr.To, target)
		}
		if sm.Current() != target {
			t.Errorf("Current() = %v, want %v", sm.Current(), target)
		}
	}
}

func TestTransitionRejectsInvalidEdges(t *testing.T) {
	tests := []struct {
		name   string
		start  Phase
		target Phase
	}{
		{
			name:   "skipping a phase",
			start:  PhaseLaunch,
			target: PhaseNominalOps,
		},
		{
			name:   "backward",
			start:  PhasePayloadOps,
			target: PhaseNominalOps,
		},
		{
			name:   "self transition",
			start:  PhaseNominalOps,
			target: PhaseNominalOps,
		},
		{
			name:   "safe mode to safe mode",
			start:  PhaseSafeMode,
			target: PhaseSafeMode,
		},
		{
			name:   "exit safe mode via progression",
			start:  PhaseSafeMode,
			target: PhaseLaunch,
		},
		{
			name:   "exit safe mode forward",
			start:  PhaseSafeMode,
			target: PhaseNominalOps,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := newMachine(t, tt.start)

			_, err := sm.TransitionTo(tt.target, "testing edge")
			if err == nil {
				t.Fatalf("TransitionTo(%v) from %v succeeded, want rejection", tt.target, tt.start)
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("error = %v, want ErrInvalidTransition", err)
			}
			if sm.Current() != tt.start {
				t.Errorf("phase changed to %v after rejected transition", sm.Current())
			}

			var trErr *TransitionError
			if !errors.As(err, &trErr) {
				t.Fatalf("error type = %T, want *TransitionError", err)
			}
			if trErr.From != tt.start || trErr.To != tt.target {
				t.Errorf("TransitionError edge = %v -> %v, want %v -> %v",
					trErr.From, trErr.To, tt.start, tt.target)
			}
		})
	}
}

func TestEscalationAlwaysPermitted(t *testing.T) {
	for _, start := range []Phase{PhaseLaunch, PhaseDeployment, PhaseNominalOps, PhasePayloadOps} {
		t.Run(start.String(), func(t *testing.T) {
			sm := newMachine(t, start)

			tr, err := sm.TransitionTo(PhaseSafeMode, "critical anomaly escalation")
			if err != nil {
				t.Fatalf("escalation from %v rejected: %v", start, err)
			}
			if tr.From != start || tr.To != PhaseSafeMode {
				t.Errorf("transition = %v -> %v, want %v -> SAFE_MODE", tr.From, tr.To, start)
			}
			if sm.Current() != PhaseSafeMode {
				t.Errorf("Current() = %v after escalation", sm.Current())
			}
		})
	}
}

func TestTransitionRequiresReason(t *testing.T) {
	sm := newMachine(t, PhaseLaunch)

	if _, err := sm.TransitionTo(PhaseDeployment, "   "); err == nil {
		t.Error("expected rejection for empty reason")
	}
	if sm.Current() != PhaseLaunch {
		t.Errorf("phase changed to %v after rejected transition", sm.Current())
	}
}

func TestRecover(t *testing.T) {
	tests := []struct {
		name         string
		start        Phase
		target       Phase
		reason       string
		authorizedBy string
		wantErr      error
	}{
		{
			name:         "authorized recovery to nominal ops",
			start:        PhaseSafeMode,
			target:       PhaseNominalOps,
			reason:       "battery state recovered",
			authorizedBy: "ops/jmartin",
		},
		{
			name:         "authorized recovery to deployment checkout",
			start:        PhaseSafeMode,
			target:       PhaseDeployment,
			reason:       "recommissioning after anomaly",
			authorizedBy: "ops/flight-director",
		},
		{
			name:         "not in safe mode",
			start:        PhaseNominalOps,
			target:       PhasePayloadOps,
			reason:       "recovery",
			authorizedBy: "ops/jmartin",
			wantErr:      ErrRecoveryNotPermitted,
		},
		{
			name:         "target safe mode",
			start:        PhaseSafeMode,
			target:       PhaseSafeMode,
			reason:       "recovery",
			authorizedBy: "ops/jmartin",
			wantErr:      ErrRecoveryNotPermitted,
		},
		{
			name:    "missing authorization",
			start:   PhaseSafeMode,
			target:  PhaseNominalOps,
			reason:  "recovery",
			wantErr: ErrRecoveryUnauthorized,
		},
		{
			name:         "missing reason",
			start:        PhaseSafeMode,
			target:       PhaseNominalOps,
			authorizedBy: "ops/jmartin",
			wantErr:      ErrRecoveryNotPermitted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := newMachine(t, tt.start)

			tr, err := sm.Recover(tt.target, tt.reason, tt.authorizedBy)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("Recover succeeded, want %v", tt.wantErr)
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				if sm.Current() != tt.start {
					t.Errorf("phase changed to %v after rejected recovery", sm.Current())
				}
				return
			}

			if err != nil {
				t.Fatalf("Recover: %v", err)
			}
			if !tr.Recovery {
				t.Error("transition not flagged as recovery")
			}
			if tr.AuthorizedBy != tt.authorizedBy {
				t.Errorf("AuthorizedBy = %q, want %q", tr.AuthorizedBy, tt.authorizedBy)
			}
			if sm.Current() != tt.target {
				t.Errorf("Current() = %v, want %v", sm.Current(), tt.target)
			}
		})
	}
}

func TestHistoryRecordsTransitions(t *testing.T) {
	sm := newMachine(t, PhaseLaunch)

	if _, err := sm.TransitionTo(PhaseDeployment, "separation confirmed"); err != nil {
		t.Fatal(err)
	}
	if _, err := sm.TransitionTo(PhaseSafeMode, "power anomaly"); err != nil {
		t.Fatal(err)
	}
	if _, err := sm.Recover(PhaseNominalOps, "anomaly resolved", "ops/jmartin"); err != nil {
		t.Fatal(err)
	}

	history := sm.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[0].To != PhaseDeployment || history[1].To != PhaseSafeMode || history[2].To != PhaseNominalOps {
		t.Errorf("history order wrong: %+v", history)
	}
	if !history[2].Recovery {
		t.Error("recovery transition not flagged in history")
	}
	for i, tr := range history {
		if tr.At.IsZero() {
			t.Errorf("history[%d] has zero timestamp", i)
		}
		if tr.Reason == "" {
			t.Errorf("history[%d] has empty reason", i)
		}
	}

	// History returns a copy.
	history[0].Reason = "mutated"
	if sm.History()[0].Reason == "mutated" {
		t.Error("History() exposed internal slice")
	}
}

func TestOnTransitionListener(t *testing.T) {
	sm := newMachine(t, PhaseLaunch)

	var mu sync.Mutex
	var seen []Transition
	sm.OnTransition(func(tr Transition) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, tr)
	})

	// Listeners run outside the state lock, so reading back is safe.
	sm.OnTransition(func(tr Transition) {
		if got := sm.Current(); got != tr.To {
			t.Errorf("listener observed phase %v, transition says %v", got, tr.To)
		}
	})

	if _, err := sm.TransitionTo(PhaseDeployment, "separation confirmed"); err != nil {
		t.Fatal(err)
	}
	if _, err := sm.TransitionTo(PhaseSafeMode, "thermal runaway"); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("listener saw %d transitions, want 2", len(seen))
	}
	if seen[1].To != PhaseSafeMode {
		t.Errorf("second transition To = %v, want SAFE_MODE", seen[1].To)
	}
}

func TestConcurrentReadsAndTransitions(t *testing.T) {
	sm := newMachine(t, PhaseLaunch)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Concurrent readers: every observed value must be a valid phase.
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					if p := sm.Current(); !p.Valid() {
						t.Errorf("observed invalid phase %d", int(p))
						return
					}
				}
			}
		}()
	}

	// One writer walks the progression then escalates.
	for _, target := range []Phase{PhaseDeployment, PhaseNominalOps, PhasePayloadOps, PhaseSafeMode} {
		if _, err := sm.TransitionTo(target, "progression under load"); err != nil {
			t.Fatalf("TransitionTo(%v): %v", target, err)
		}
	}

	close(stop)
	wg.Wait()

	if sm.Current() != PhaseSafeMode {
		t.Errorf("final phase = %v, want SAFE_MODE", sm.Current())
	}
}
