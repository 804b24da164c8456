package policy

import (
	"encoding/json"
	"testing"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    SeverityLevel
		wantErr bool
	}{
		{"LOW", SeverityLow, false},
		{"MEDIUM", SeverityMedium, false},
		{"HIGH", SeverityHigh, false},
		{"CRITICAL", SeverityCritical, false},
		{"critical", SeverityCritical, false},
		{" high ", SeverityHigh, false},
		{"SEVERE", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeverity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeverity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSeverity(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestSeverityOrdering(t *testing.T) {
	ordered := []SeverityLevel{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Errorf("%s should order below %s", ordered[i-1], ordered[i])
		}
	}
}

func TestParseEscalation(t *testing.T) {
	tests := []struct {
		input   string
		want    EscalationLevel
		wantErr bool
	}{
		{"LOG_ONLY", EscalationLogOnly, false},
		{"ALERT_OPERATORS", EscalationAlertOperators, false},
		{"CONTROLLED_ACTION", EscalationControlledAction, false},
		{"ESCALATE_SAFE_MODE", EscalationSafeMode, false},
		{"escalate_safe_mode", EscalationSafeMode, false},
		{"PANIC", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEscalation(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEscalation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseEscalation(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscalationDowngrade(t *testing.T) {
	tests := []struct {
		level EscalationLevel
		want  EscalationLevel
	}{
		{EscalationSafeMode, EscalationControlledAction},
		{EscalationControlledAction, EscalationAlertOperators},
		{EscalationAlertOperators, EscalationLogOnly},
		{EscalationLogOnly, EscalationLogOnly},
	}

	for _, tt := range tests {
		if got := tt.level.Downgrade(); got != tt.want {
			t.Errorf("%s.Downgrade() = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestDecisionJSONFieldNames(t *testing.T) {
	decision := Decision{
		AnomalyType:       "power_fault",
		Severity:          SeverityHigh,
		Escalation:        EscalationControlledAction,
		RecommendedAction: ActionRestartService,
		Reasoning:         "nominal operations policy",
	}

	data, err := json.Marshal(decision)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	for _, key := range []string{"mission_phase", "anomaly_type", "severity", "severity_score", "escalation_level", "is_allowed", "recommended_action", "allowed_actions", "confidence", "reasoning"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("decision JSON missing %q: %s", key, data)
		}
	}
	if fields["severity"] != "HIGH" {
		t.Errorf("severity serialized as %v, want HIGH", fields["severity"])
	}
	if fields["escalation_level"] != "CONTROLLED_ACTION" {
		t.Errorf("escalation_level serialized as %v, want CONTROLLED_ACTION", fields["escalation_level"])
	}
}
