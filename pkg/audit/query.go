package audit

import (
	"fmt"
	"time"
)

// Query filters audit records. Zero-valued fields do not filter.
type Query struct {
	// Kind restricts to decision or transition records.
	Kind RecordKind `json:"kind,omitempty"`

	// Phase restricts to records evaluated or committed under a phase.
	Phase string `json:"phase,omitempty"`

	// AnomalyType restricts decision records to one fault class.
	AnomalyType string `json:"anomaly_type,omitempty"`

	// Escalation restricts decision records to one escalation level.
	Escalation string `json:"escalation,omitempty"`

	// SatelliteID restricts to one reporting satellite.
	SatelliteID string `json:"satellite_id,omitempty"`

	// RuleFired restricts decision records to one resolver rule.
	RuleFired string `json:"rule_fired,omitempty"`

	// StartTime and EndTime bound RecordedAt, inclusive.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Limit caps the number of returned records; Offset skips past
	// earlier matches for pagination.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder is "asc" or "desc" by RecordedAt. Default: "desc".
	SortOrder string `json:"sort_order,omitempty"`
}

// Sort orders accepted by ValidateQuery.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ApplyQueryDefaults fills the limit and sort order. defaultLimit comes
// from the audit query configuration.
func ApplyQueryDefaults(q *Query, defaultLimit int) {
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = SortDesc
	}
}

// ValidateQuery rejects filter combinations no backend can serve. maxLimit
// comes from the audit query configuration.
func ValidateQuery(q *Query, maxLimit int) error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", maxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	if q.Kind != "" && q.Kind != KindDecision && q.Kind != KindTransition {
		return NewQueryError(q, fmt.Errorf("invalid kind %q (must be %q or %q)", q.Kind, KindDecision, KindTransition))
	}

	if q.SortOrder != "" && q.SortOrder != SortAsc && q.SortOrder != SortDesc {
		return NewQueryError(q, fmt.Errorf("invalid sort order %q (must be %q or %q)", q.SortOrder, SortAsc, SortDesc))
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return NewQueryError(q, fmt.Errorf("start_time must not be after end_time"))
	}

	return nil
}

// Matches reports whether a record satisfies the query's filters. Both
// backends share this predicate; pagination and ordering stay backend
// concerns.
func (q *Query) Matches(r *Record) bool {
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.Phase != "" && r.Phase != q.Phase {
		return false
	}
	if q.AnomalyType != "" && r.AnomalyType != q.AnomalyType {
		return false
	}
	if q.Escalation != "" && r.Escalation != q.Escalation {
		return false
	}
	if q.SatelliteID != "" && r.SatelliteID != q.SatelliteID {
		return false
	}
	if q.RuleFired != "" && r.RuleFired != q.RuleFired {
		return false
	}
	if q.StartTime != nil && r.RecordedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.RecordedAt.After(*q.EndTime) {
		return false
	}
	return true
}
