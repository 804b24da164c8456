// Package engine composes the mission phase state machine, the severity
// classifier, and the escalation rules into the policy evaluation facade.
//
// # Evaluation
//
// Evaluate classifies the event's severity score, runs an ordered list of
// prioritized rules, and applies two post-steps to whichever rule fired:
//
//  1. safe_mode_ceiling: in SAFE_MODE every response is capped at LOG_ONLY
//     and nothing is allowed, regardless of severity.
//  2. critical_escalation: CRITICAL severity demands immediate safe mode
//     entry in any other phase.
//  3. persistence_escalation: repeated HIGH severity anomalies at or beyond
//     the phase's recurrence threshold escalate to the phase-configured
//     level.
//  4. phase_base_mapping: HIGH and MEDIUM map to the phase's base posture,
//     either operator alerting or a controlled autonomous action.
//  5. default_log: everything else is logged.
//
// Post-steps: a recommendation found in the phase's forbidden set is vetoed
// (one level downgrade, nothing allowed, replacement recommendation), and a
// simultaneous-fault count at or beyond the phase's concurrency threshold
// raises confidence and extends the reasoning.
//
// Evaluation is a pure, synchronous computation. The engine performs no I/O
// on the evaluation path; persistence and metrics hang off OnDecision.
//
// # Hot Reload
//
// The engine loads its policy table from a Source and swaps it atomically on
// Reload. When the source supports change notification the engine reloads
// automatically until Close is called. A failed reload keeps the previous
// table active.
//
// # Basic Usage
//
//	machine, _ := mission.NewStateMachine(mission.PhaseNominalOps, logger)
//	eng, err := engine.New(machine, src, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	decision, err := eng.EvaluateCurrent(ctx, policy.AnomalyEvent{
//		AnomalyType:   "power_fault",
//		SeverityScore: 0.82,
//	})
package engine
