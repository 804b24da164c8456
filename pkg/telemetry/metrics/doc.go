// Package metrics exports the decision authority's Prometheus series
// under the "astra" namespace.
//
// Collector is the single entry point: it owns a registry, registers
// every series at construction, and exposes typed recording methods so
// callers never touch label values directly. The series cover the
// evaluation pipeline (astra_decisions_total,
// astra_anomalies_detected_total, astra_evaluation_duration_seconds),
// the phase state machine (astra_phase_transitions_total,
// astra_mission_current_phase), the audit trail
// (astra_audit_queue_depth, astra_audit_writes_total), and the HTTP API
// (astra_http_requests_total, astra_http_request_duration_seconds).
//
// Recording is disabled as a whole when the metrics config section is
// disabled; every Record method checks the flag and returns.
//
// Anomaly types come from external classifiers and are unbounded, so the
// collector folds types beyond a fixed cardinality limit into "other".
package metrics
