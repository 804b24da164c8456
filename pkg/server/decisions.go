package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"astraguard/aegis/pkg/policy"
)

// handleDecisions serves POST /v1/decisions: evaluate one anomaly event
// against the current mission phase and return the bounded decision.
func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed: use POST", codeMethodNotAllowed, "")
		return
	}

	var req DecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.AnomalyType) == "" {
		writeError(w, http.StatusBadRequest, "anomaly_type is required", codeMissingField, "anomaly_type")
		return
	}

	event := policy.AnomalyEvent{
		AnomalyType:   req.AnomalyType,
		SeverityScore: req.SeverityScore,
		Attributes:    req.Attributes,
	}

	ctx := r.Context()
	requestID := GetRequestID(ctx)

	// Enrichment failures never block a decision: the event is evaluated
	// as submitted.
	if s.tracker != nil {
		if err := s.tracker.Enrich(ctx, req.SatelliteID, &event); err != nil {
			s.logger.Warn("occurrence enrichment failed",
				"error", err,
				"satellite_id", req.SatelliteID,
				"request_id", requestID,
			)
		}
	}

	start := time.Now()
	decision, err := s.engine.EvaluateCurrent(ctx, event)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, policy.ErrInvalidInput) {
			if s.metrics != nil {
				s.metrics.RecordEvaluationError("invalid_input")
			}

			param := ""
			var inputErr *policy.InputError
			if errors.As(err, &inputErr) {
				param = inputErr.Field
			}
			writeError(w, http.StatusBadRequest, err.Error(), codeInvalidInput, param)
			return
		}

		if s.metrics != nil {
			s.metrics.RecordEvaluationError("internal")
		}
		s.logger.Error("decision evaluation failed", "error", err, "request_id", requestID)
		writeError(w, http.StatusInternalServerError, "decision evaluation failed", codeInternalError, "")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordDecision(decision, duration)
		if decision.VetoedAction != "" {
			s.metrics.RecordVeto(decision.MissionPhase, decision.VetoedAction)
		}
	}

	if s.recorder != nil {
		if err := s.recorder.RecordDecision(ctx, decision, req.SatelliteID, requestID); err != nil {
			s.logger.Warn("audit record dropped",
				"error", err,
				"decision_id", decision.ID,
				"request_id", requestID,
			)
		}
	}

	writeJSON(w, http.StatusOK, DecisionResponse{
		SatelliteID: req.SatelliteID,
		RequestID:   requestID,
		Decision:    decision,
	})
}
