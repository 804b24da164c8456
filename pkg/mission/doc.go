// Package mission defines the satellite mission phase model and the state
// machine that owns the authoritative current phase.
//
// # Mission Phases
//
// A satellite moves through an ordered set of operational phases:
//
//	LAUNCH → DEPLOYMENT → NOMINAL_OPS → PAYLOAD_OPS
//
// plus SAFE_MODE, the most restrictive phase, reachable from any other phase
// through the escalation edge. The phase constrains which autonomous actions
// the policy engine may grant, so exactly one phase is active at any time and
// all reads and writes go through the StateMachine.
//
// # Transitions
//
// Three kinds of phase change exist:
//
//  1. Forward progression: each phase advances only to its immediate
//     successor (no skipping). Requested with TransitionTo.
//  2. Escalation: any phase may enter SAFE_MODE at any time. Also requested
//     with TransitionTo; it is always permitted.
//  3. Recovery: the only way out of SAFE_MODE. Requested with Recover, which
//     requires an explicit operator authorization and is never triggered
//     autonomously.
//
// Every transition carries a reason string and is appended to an in-memory
// history for audit. Registered listeners are notified after a transition
// commits, which is how the audit recorder and metrics observe phase changes.
//
// # Concurrency
//
// Current is safe to call from any number of goroutines and is the read path
// used by every policy evaluation. TransitionTo and Recover are mutually
// exclusive with each other and with reads; a transition either fully
// completes or fully fails with the phase unchanged.
//
// # Basic Usage
//
//	sm, err := mission.NewStateMachine(mission.PhaseLaunch, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	phase := sm.Current() // PhaseLaunch
//
//	if _, err := sm.TransitionTo(mission.PhaseDeployment, "separation confirmed"); err != nil {
//	    // InvalidTransition: phase unchanged
//	}
//
//	// Safety override from anywhere:
//	sm.TransitionTo(mission.PhaseSafeMode, "critical power anomaly")
//
//	// Operator-authorized exit from safe mode:
//	sm.Recover(mission.PhaseNominalOps, "battery recovered", "ops/jmartin")
package mission
