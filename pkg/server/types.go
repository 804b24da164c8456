package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"astraguard/aegis/pkg/audit"
	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy"
)

// maxRequestBody bounds the size of accepted request bodies. Decision and
// transition requests are small; anything near this limit is malformed or
// hostile.
const maxRequestBody = 1 << 20 // 1MB

// Machine-readable error codes returned in the error envelope.
const (
	codeInvalidJSON          = "invalid_json"
	codeMissingField         = "missing_field"
	codeInvalidValue         = "invalid_value"
	codeInvalidInput         = "invalid_input"
	codeUnknownPhase         = "unknown_phase"
	codeInvalidTransition    = "invalid_transition"
	codeRecoveryNotPermitted = "recovery_not_permitted"
	codeRecoveryUnauthorized = "recovery_unauthorized"
	codeInvalidQuery         = "invalid_query"
	codeMethodNotAllowed     = "method_not_allowed"
	codeRequestTooLarge      = "request_too_large"
	codeTimeout              = "timeout"
	codeInternalError        = "internal_error"
	codeAuditDisabled        = "audit_disabled"
)

// ErrorResponse is the envelope every error response uses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code alongside the
// human-readable message, so ground software can branch without parsing
// message text.
type ErrorDetail struct {
	// Message describes the failure for operators.
	Message string `json:"message"`

	// Code is a stable identifier such as "invalid_input".
	Code string `json:"code"`

	// Param names the offending request field or query parameter, when known.
	Param string `json:"param,omitempty"`
}

// DecisionRequest submits one anomaly event for evaluation against the
// current mission phase.
type DecisionRequest struct {
	// SatelliteID identifies the reporting spacecraft. Optional; used for
	// occurrence tracking and audit attribution.
	SatelliteID string `json:"satellite_id"`

	// AnomalyType is the fault classification, e.g. "thermal_runaway".
	AnomalyType string `json:"anomaly_type"`

	// SeverityScore is the normalized severity in [0.0, 1.0].
	SeverityScore float64 `json:"severity_score"`

	// Attributes carries optional event context. Recurrence and simultaneous
	// fault counts left at zero are filled in from the occurrence tracker.
	Attributes policy.EventAttributes `json:"attributes"`
}

// DecisionResponse returns the decision together with its correlation IDs.
type DecisionResponse struct {
	SatelliteID string          `json:"satellite_id,omitempty"`
	RequestID   string          `json:"request_id"`
	Decision    policy.Decision `json:"decision"`
}

// PhaseResponse reports the current mission phase, with the committed
// transition history when the request asks for it.
type PhaseResponse struct {
	Phase       mission.Phase        `json:"phase"`
	Transitions []mission.Transition `json:"transitions,omitempty"`
}

// TransitionRequest asks the state machine to change phase.
type TransitionRequest struct {
	TargetPhase string `json:"target_phase"`
	Reason      string `json:"reason"`
}

// RecoveryRequest asks for an operator-authorized exit from SAFE_MODE.
type RecoveryRequest struct {
	TargetPhase  string `json:"target_phase"`
	Reason       string `json:"reason"`
	AuthorizedBy string `json:"authorized_by"`
}

// TransitionResponse returns the committed transition and the phase the
// satellite is now in.
type TransitionResponse struct {
	Transition   mission.Transition `json:"transition"`
	CurrentPhase mission.Phase      `json:"current_phase"`
}

// PhaseListResponse enumerates all mission phases with their policy
// constraints.
type PhaseListResponse struct {
	Current mission.Phase             `json:"current"`
	Phases  []policy.PhaseConstraints `json:"phases"`
}

// AuditRecordsResponse returns one page of matching audit records.
type AuditRecordsResponse struct {
	Records []*audit.Record `json:"records"`
	Count   int             `json:"count"`
}

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error envelope with the given status and code.
func writeError(w http.ResponseWriter, status int, message, code, param string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{
		Message: message,
		Code:    code,
		Param:   param,
	}})
}

// decodeBody reads a bounded request body into v. On failure it writes the
// error response itself and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", codeInvalidJSON, "")
		return false
	}
	if len(body) > maxRequestBody {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", maxRequestBody), codeRequestTooLarge, "")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err), codeInvalidJSON, "")
		return false
	}
	return true
}
