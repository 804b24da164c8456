// Package telemetry groups the observability packages of the decision
// authority.
//
// # Components
//
//   - logging: log/slog setup, component child loggers, context fields
//   - metrics: Prometheus series under the astra namespace
//   - health: liveness and readiness probes with component checks
//
// # Usage
//
//	logger, err := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	checker := health.New(0)
//
// Every subsystem logs through a component child logger; the serve path
// wires the collector into the engine and the audit recorder, and
// registers readiness checks for the policy table, the audit storage, and
// the tracker backend.
package telemetry
