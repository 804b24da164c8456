// Package tracker observes anomaly occurrences per satellite inside a
// sliding window and enriches incoming events with recurrence and
// simultaneous-fault counts.
//
// The policy engine treats RecurrenceCount and SimultaneousFaults as
// caller-supplied attributes. Upstream detectors rarely carry that memory
// themselves, so the tracker fills both fields for events that arrive
// with them unset; explicitly supplied values are never overwritten.
//
// # Backends
//
// Two implementations of the Backend interface are provided:
//
//   - MemoryBackend: bucketed sliding-window counters, bounded memory,
//     no persistence
//   - SQLiteBackend: occurrence rows in SQLite (pure-Go driver) so
//     pattern memory survives restarts
//
// # Basic Usage
//
//	backend := tracker.NewMemoryBackend(5 * time.Minute)
//	trk := tracker.New(backend, tracker.DefaultConfig())
//	defer trk.Close()
//
//	event := &policy.AnomalyEvent{AnomalyType: "thermal_fault", SeverityScore: 0.82}
//	if err := trk.Enrich(ctx, "AST-001", event); err != nil {
//	    // evaluate the event as submitted
//	}
//
// A background sweeper prunes occurrences that fall out of the window.
package tracker
