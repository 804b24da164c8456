// Package server provides the HTTP API for the decision authority.
//
// This package ties together the decision engine, mission state machine,
// occurrence tracker, and audit trail behind a REST surface, and manages
// server lifecycle including start, graceful shutdown, and OS signals.
//
// # Basic Usage
//
// Creating and starting a server:
//
//	import (
//	    "context"
//	    "astraguard/aegis/pkg/config"
//	    "astraguard/aegis/pkg/server"
//	)
//
//	srv, err := server.New(&cfg.Server, server.Dependencies{
//	    Engine:     eng,
//	    Tracker:    trk,
//	    Recorder:   rec,
//	    AuditStore: store,
//	    AuditQuery: cfg.Audit.Query,
//	    Metrics:    collector,
//	    Checker:    checker,
//	    Version:    version,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until the context is cancelled, SIGINT or SIGTERM arrives,
// or Stop is called. Shutdown stops accepting connections and waits up to
// the configured shutdown timeout for in-flight requests.
//
// # Routes
//
//   - POST /v1/decisions - Evaluate an anomaly event under the current phase
//   - GET /v1/phase - Current mission phase (?history=true for transitions)
//   - POST /v1/phase/transitions - Request a phase change
//   - POST /v1/phase/recovery - Operator-authorized exit from SAFE_MODE
//   - GET /v1/phases - All phases with their policy constraints
//   - GET /v1/phases/{phase}/constraints - Constraints for one phase
//   - GET /v1/audit/records - Filtered, paginated audit records
//   - GET /health - Liveness probe
//   - GET /ready - Readiness probe (runs registered component checks)
//   - GET /version - Build information
//   - GET /metrics - Prometheus metrics (when a collector is wired)
//
// # Middleware Chain
//
// Requests pass through the following middleware (outermost to innermost):
//  1. Recovery: recovers from panics and returns 500
//  2. Logging: logs request/response details
//  3. RequestID: assigns the correlation ID
//  4. CORS: Cross-Origin Resource Sharing headers
//  5. Timeout: per-request deadline
//  6. Metrics: per-route request series
//
// # Errors
//
// All error responses share one envelope:
//
//	{"error": {"message": "...", "code": "invalid_input", "param": "severity_score"}}
//
// Codes are stable; ground software branches on them rather than on
// message text.
package server
