package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy"
)

// handlePhase serves GET /v1/phase: the current mission phase, with the
// committed transition history when ?history=true.
func (s *Server) handlePhase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed: use GET", codeMethodNotAllowed, "")
		return
	}

	resp := PhaseResponse{Phase: s.engine.CurrentPhase()}

	if v := r.URL.Query().Get("history"); v != "" {
		includeHistory, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "history must be a boolean", codeInvalidValue, "history")
			return
		}
		if includeHistory {
			resp.Transitions = s.engine.History()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleTransitions serves POST /v1/phase/transitions: request a phase
// change along the permitted edges.
func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed: use POST", codeMethodNotAllowed, "")
		return
	}

	var req TransitionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	target, err := mission.ParsePhase(req.TargetPhase)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), codeUnknownPhase, "target_phase")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, http.StatusBadRequest, "reason is required", codeMissingField, "reason")
		return
	}

	from := s.engine.CurrentPhase()

	tr, err := s.engine.TransitionTo(target, req.Reason)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordPhaseTransition(from, target, "rejected")
		}
		if errors.Is(err, mission.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, err.Error(), codeInvalidTransition, "")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error(), codeInvalidValue, "")
		return
	}

	s.commitTransition(r.Context(), tr)
	writeJSON(w, http.StatusOK, TransitionResponse{Transition: *tr, CurrentPhase: tr.To})
}

// handleRecovery serves POST /v1/phase/recovery: the operator-authorized
// exit from SAFE_MODE.
func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed: use POST", codeMethodNotAllowed, "")
		return
	}

	var req RecoveryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	target, err := mission.ParsePhase(req.TargetPhase)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), codeUnknownPhase, "target_phase")
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		writeError(w, http.StatusBadRequest, "reason is required", codeMissingField, "reason")
		return
	}

	from := s.engine.CurrentPhase()

	tr, err := s.engine.Recover(target, req.Reason, req.AuthorizedBy)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordPhaseTransition(from, target, "rejected")
		}
		switch {
		case errors.Is(err, mission.ErrRecoveryUnauthorized):
			writeError(w, http.StatusBadRequest, err.Error(), codeRecoveryUnauthorized, "authorized_by")
		case errors.Is(err, mission.ErrRecoveryNotPermitted):
			writeError(w, http.StatusConflict, err.Error(), codeRecoveryNotPermitted, "")
		default:
			writeError(w, http.StatusBadRequest, err.Error(), codeInvalidValue, "")
		}
		return
	}

	s.commitTransition(r.Context(), tr)
	writeJSON(w, http.StatusOK, TransitionResponse{Transition: *tr, CurrentPhase: tr.To})
}

// commitTransition records telemetry and the audit record for a committed
// transition. Audit failures are logged, never surfaced: the phase has
// already changed.
func (s *Server) commitTransition(ctx context.Context, tr *mission.Transition) {
	if s.metrics != nil {
		s.metrics.RecordPhaseTransition(tr.From, tr.To, "applied")
		s.metrics.SetCurrentPhase(tr.To)
	}
	if s.recorder != nil {
		if err := s.recorder.RecordTransition(ctx, *tr, GetRequestID(ctx)); err != nil {
			s.logger.Warn("audit record dropped",
				"error", err,
				"from", tr.From.String(),
				"to", tr.To.String(),
			)
		}
	}
}

// handlePhaseList serves GET /v1/phases: every mission phase with its
// policy constraints, plus the phase the satellite is in now.
func (s *Server) handlePhaseList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed: use GET", codeMethodNotAllowed, "")
		return
	}

	phases := mission.Phases()
	resp := PhaseListResponse{
		Current: s.engine.CurrentPhase(),
		Phases:  make([]policy.PhaseConstraints, 0, len(phases)),
	}
	for _, p := range phases {
		constraints, err := s.engine.Constraints(p)
		if err != nil {
			s.logger.Error("constraint lookup failed", "error", err, "phase", p.String())
			writeError(w, http.StatusInternalServerError, "constraint lookup failed", codeInternalError, "")
			return
		}
		resp.Phases = append(resp.Phases, constraints)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleConstraints serves GET /v1/phases/{phase}/constraints: the active
// policy constraints for one phase.
func (s *Server) handleConstraints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed: use GET", codeMethodNotAllowed, "")
		return
	}

	phase, err := mission.ParsePhase(r.PathValue("phase"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error(), codeUnknownPhase, "phase")
		return
	}

	constraints, err := s.engine.Constraints(phase)
	if err != nil {
		s.logger.Error("constraint lookup failed", "error", err, "phase", phase.String())
		writeError(w, http.StatusInternalServerError, "constraint lookup failed", codeInternalError, "")
		return
	}

	writeJSON(w, http.StatusOK, constraints)
}
