// Package policy defines the mission phase response policy model: the action
// vocabulary, severity and escalation levels, the per-phase policy table, and
// the severity classifier.
//
// # Policy Table
//
// Each mission phase has one PhasePolicy describing what the satellite may do
// autonomously while in that phase: the allowed and forbidden action sets,
// the severity threshold multiplier, the base escalation for HIGH/MEDIUM
// anomalies, and optional persistence and concurrency rules. The Table is
// built once at startup, validated fatally (a ConfigError lists every
// violation), and is immutable afterwards, so policy lookups during
// evaluation never fail and never lock.
//
// # Severity Classification
//
// The Classifier maps a normalized severity score in [0,1] onto the four
// ordinal severity levels through configurable monotonic thresholds
// (defaults: CRITICAL >= 0.9, HIGH >= 0.7, MEDIUM >= 0.4, else LOW).
// Scores outside [0,1] are rejected, never clamped: a malformed detector
// output must be distinguishable from a real anomaly.
//
// ClassifyAdjusted additionally divides the raw score by a phase threshold
// multiplier before classification. The decision engine classifies raw
// scores unless apply_multiplier is enabled in the policy file; the
// multiplier is always validated and surfaced through phase constraints.
//
// # Decisions
//
// Decision is the immutable output of one evaluation: phase, severity,
// escalation level, the recommended action, whether autonomous execution is
// granted, the currently allowed action set, a confidence in [0,1], and a
// human-auditable reasoning string naming the rule that fired.
package policy
