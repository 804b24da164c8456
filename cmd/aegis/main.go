// AstraGuard Aegis is the mission phase decision authority for satellite
// anomaly response.
//
// It runs a mission phase state machine and a phase policy engine that turn
// anomaly signals into bounded, auditable escalation decisions:
//   - Mission phase lifecycle with guarded transitions and authorized recovery
//   - Phase-aware severity classification and escalation rules
//   - Forbidden-action vetoes with safe downgrades
//   - Persistent anomaly recurrence tracking
//   - Tamper-evident decision and transition audit trail
//
// Usage:
//
//	# Start the decision authority with default configuration
//	aegis serve
//
//	# Start with a custom configuration file
//	aegis serve --config /etc/aegis/aegis.yaml
//
//	# Evaluate one anomaly locally without a running server
//	aegis evaluate --phase NOMINAL_OPS --anomaly thermal_fault --score 0.75
//
//	# Show the current phase of a running instance
//	aegis phase show
//
//	# Validate configuration and policy files
//	aegis lint --config aegis.yaml --policy policies.yaml
//
//	# Check a running instance (exit 0 healthy, 2 degraded, 1 failed)
//	aegis status
//
//	# Query the audit trail
//	aegis audit query --kind decision --phase SAFE_MODE
//
//	# Show version information
//	aegis version
package main

func main() {
	Execute()
}
