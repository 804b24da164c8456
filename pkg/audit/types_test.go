package audit

import (
	"testing"
	"time"

	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy"
)

func TestNewDecisionRecord(t *testing.T) {
	evaluatedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	decision := policy.Decision{
		ID:                "dec-123",
		MissionPhase:      mission.PhaseNominalOps,
		AnomalyType:       "THERMAL_RUNAWAY",
		Severity:          policy.SeverityHigh,
		SeverityScore:     0.85,
		Escalation:        policy.EscalationControlledAction,
		IsAllowed:         true,
		RecommendedAction: policy.ActionAdjustAttitude,
		AllowedActions:    []policy.Action{policy.ActionAdjustAttitude, policy.ActionLogEvent},
		Confidence:        0.92,
		Reasoning:         "high severity anomaly during nominal operations",
		RuleFired:         "high-severity-controlled-action",
		EvaluatedAt:       evaluatedAt,
	}

	record := NewDecisionRecord(decision, "AST-001", "req-42")

	if record.ID == "" {
		t.Error("Expected generated record ID")
	}
	if record.Kind != KindDecision {
		t.Errorf("Kind = %q, want %q", record.Kind, KindDecision)
	}
	if record.RecordedAt.IsZero() {
		t.Error("Expected RecordedAt to be set")
	}
	if record.SatelliteID != "AST-001" {
		t.Errorf("SatelliteID = %q, want AST-001", record.SatelliteID)
	}
	if record.RequestID != "req-42" {
		t.Errorf("RequestID = %q, want req-42", record.RequestID)
	}
	if record.Phase != "NOMINAL_OPS" {
		t.Errorf("Phase = %q, want NOMINAL_OPS", record.Phase)
	}
	if record.DecisionID != "dec-123" {
		t.Errorf("DecisionID = %q, want dec-123", record.DecisionID)
	}
	if record.Severity != "HIGH" {
		t.Errorf("Severity = %q, want HIGH", record.Severity)
	}
	if record.Escalation != "CONTROLLED_ACTION" {
		t.Errorf("Escalation = %q, want CONTROLLED_ACTION", record.Escalation)
	}
	if record.RecommendedAction != "ADJUST_ATTITUDE" {
		t.Errorf("RecommendedAction = %q, want ADJUST_ATTITUDE", record.RecommendedAction)
	}
	if len(record.AllowedActions) != 2 {
		t.Fatalf("AllowedActions length = %d, want 2", len(record.AllowedActions))
	}
	if record.AllowedActions[0] != "ADJUST_ATTITUDE" || record.AllowedActions[1] != "LOG_EVENT" {
		t.Errorf("AllowedActions = %v", record.AllowedActions)
	}
	if !record.EvaluatedAt.Equal(evaluatedAt) {
		t.Errorf("EvaluatedAt = %v, want %v", record.EvaluatedAt, evaluatedAt)
	}

	// Transition payload stays zero.
	if record.FromPhase != "" || record.ToPhase != "" {
		t.Error("Decision record carries transition payload")
	}
}

func TestNewDecisionRecord_UniqueIDs(t *testing.T) {
	decision := policy.Decision{
		ID:           "dec-123",
		MissionPhase: mission.PhaseLaunch,
		Severity:     policy.SeverityLow,
		Escalation:   policy.EscalationLogOnly,
	}

	first := NewDecisionRecord(decision, "", "")
	second := NewDecisionRecord(decision, "", "")

	if first.ID == second.ID {
		t.Errorf("Expected unique record IDs, both were %s", first.ID)
	}
}

func TestNewTransitionRecord(t *testing.T) {
	at := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	transition := mission.Transition{
		From:         mission.PhaseSafeMode,
		To:           mission.PhaseNominalOps,
		Reason:       "fault isolated, operator cleared recovery",
		Recovery:     true,
		AuthorizedBy: "flight-director",
		At:           at,
	}

	record := NewTransitionRecord(transition, "req-7")

	if record.Kind != KindTransition {
		t.Errorf("Kind = %q, want %q", record.Kind, KindTransition)
	}
	if record.Phase != "SAFE_MODE" {
		t.Errorf("Phase = %q, want SAFE_MODE", record.Phase)
	}
	if record.FromPhase != "SAFE_MODE" {
		t.Errorf("FromPhase = %q, want SAFE_MODE", record.FromPhase)
	}
	if record.ToPhase != "NOMINAL_OPS" {
		t.Errorf("ToPhase = %q, want NOMINAL_OPS", record.ToPhase)
	}
	if !record.Recovery {
		t.Error("Recovery = false, want true")
	}
	if record.AuthorizedBy != "flight-director" {
		t.Errorf("AuthorizedBy = %q, want flight-director", record.AuthorizedBy)
	}
	if !record.CommittedAt.Equal(at) {
		t.Errorf("CommittedAt = %v, want %v", record.CommittedAt, at)
	}

	// Decision payload stays zero.
	if record.DecisionID != "" || record.AnomalyType != "" {
		t.Error("Transition record carries decision payload")
	}
}
