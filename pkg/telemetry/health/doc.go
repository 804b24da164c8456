// Package health implements the liveness and readiness probes.
//
// A Checker holds named component checks. The serve path registers one
// check per dependency the authority needs before accepting anomaly
// traffic: the policy table, the audit storage, and the recurrence
// tracker. Readiness runs all checks concurrently under a per-check
// timeout and reports "ready" or "degraded"; liveness only confirms the
// process is up.
//
//	checker := health.New(0)
//	checker.Register("audit_storage", store.Ping)
//	health.Mount(mux, checker, version, commit, buildTime)
package health
