package audit

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy"
)

// RecordKind distinguishes the two auditable event classes.
type RecordKind string

const (
	// KindDecision marks a policy evaluation outcome.
	KindDecision RecordKind = "decision"

	// KindTransition marks a committed mission phase change.
	KindTransition RecordKind = "transition"
)

// Record is one immutable audit trail entry. A record is either a decision
// or a transition; the payload fields of the other kind stay zero. Records
// are flat so both backends can index and filter them without unpacking
// nested documents.
type Record struct {
	// Identity
	ID         string     `json:"id"`
	Kind       RecordKind `json:"kind"`
	RecordedAt time.Time  `json:"recorded_at"`

	// Caller context, when the event arrived over the API.
	SatelliteID string `json:"satellite_id,omitempty"`
	RequestID   string `json:"request_id,omitempty"`

	// Phase is the mission phase the event was evaluated or committed
	// under. For transitions this is the source phase.
	Phase string `json:"phase"`

	// Decision payload
	DecisionID        string    `json:"decision_id,omitempty"`
	AnomalyType       string    `json:"anomaly_type,omitempty"`
	Severity          string    `json:"severity,omitempty"`
	SeverityScore     float64   `json:"severity_score,omitempty"`
	Escalation        string    `json:"escalation,omitempty"`
	IsAllowed         bool      `json:"is_allowed,omitempty"`
	RecommendedAction string    `json:"recommended_action,omitempty"`
	AllowedActions    []string  `json:"allowed_actions,omitempty"`
	Confidence        float64   `json:"confidence,omitempty"`
	Reasoning         string    `json:"reasoning,omitempty"`
	RuleFired         string    `json:"rule_fired,omitempty"`
	EvaluatedAt       time.Time `json:"evaluated_at,omitempty"`

	// Transition payload
	FromPhase    string    `json:"from_phase,omitempty"`
	ToPhase      string    `json:"to_phase,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Recovery     bool      `json:"recovery,omitempty"`
	AuthorizedBy string    `json:"authorized_by,omitempty"`
	CommittedAt  time.Time `json:"committed_at,omitempty"`

	// Checksum is the SHA-256 hash of the record's canonical JSON form,
	// computed before storage so exports can be verified against
	// tampering.
	Checksum string `json:"checksum,omitempty"`
}

// NewDecisionRecord builds an audit record from an issued decision.
// satelliteID and requestID may be empty for locally evaluated decisions.
func NewDecisionRecord(d policy.Decision, satelliteID, requestID string) *Record {
	actions := make([]string, 0, len(d.AllowedActions))
	for _, a := range d.AllowedActions {
		actions = append(actions, string(a))
	}

	return &Record{
		ID:                uuid.New().String(),
		Kind:              KindDecision,
		RecordedAt:        time.Now().UTC(),
		SatelliteID:       satelliteID,
		RequestID:         requestID,
		Phase:             d.MissionPhase.String(),
		DecisionID:        d.ID,
		AnomalyType:       d.AnomalyType,
		Severity:          d.Severity.String(),
		SeverityScore:     d.SeverityScore,
		Escalation:        d.Escalation.String(),
		IsAllowed:         d.IsAllowed,
		RecommendedAction: string(d.RecommendedAction),
		AllowedActions:    actions,
		Confidence:        d.Confidence,
		Reasoning:         d.Reasoning,
		RuleFired:         d.RuleFired,
		EvaluatedAt:       d.EvaluatedAt,
	}
}

// NewTransitionRecord builds an audit record from a committed phase change.
func NewTransitionRecord(t mission.Transition, requestID string) *Record {
	return &Record{
		ID:           uuid.New().String(),
		Kind:         KindTransition,
		RecordedAt:   time.Now().UTC(),
		RequestID:    requestID,
		Phase:        t.From.String(),
		FromPhase:    t.From.String(),
		ToPhase:      t.To.String(),
		Reason:       t.Reason,
		Recovery:     t.Recovery,
		AuthorizedBy: t.AuthorizedBy,
		CommittedAt:  t.At,
	}
}

// Storage is the audit persistence contract. Implementations must be safe
// for concurrent use; the recorder writes from a background goroutine while
// the API queries.
type Storage interface {
	// Store persists one record.
	Store(ctx context.Context, record *Record) error

	// Query returns the records matching the filter, newest first unless
	// the query requests ascending order.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream returns matching records over a channel, for exports
	// that should not hold the full result set in memory. Both channels
	// are closed when the stream ends; callers must drain the error
	// channel after the record channel closes.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many were removed.
	// The retention pruner is the only caller.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Ping verifies the backend is reachable, for readiness checks.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Exporter writes records to an output in a fixed format.
type Exporter interface {
	// Export writes the records to w.
	Export(ctx context.Context, records []*Record, w io.Writer) error

	// ExportStream writes records from a channel to w, for large result
	// sets streamed out of storage.
	ExportStream(ctx context.Context, records <-chan *Record, w io.Writer) error
}
