package server

import (
	"net/http"
	"strconv"
	"time"

	"astraguard/aegis/pkg/audit"
	"astraguard/aegis/pkg/mission"
)

// handleAuditRecords serves GET /v1/audit/records: a filtered, paginated
// page of the audit trail. Query parameters mirror the audit query JSON
// field names (kind, phase, anomaly_type, escalation, satellite_id,
// rule_fired, start_time, end_time, limit, offset, sort_order).
func (s *Server) handleAuditRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed: use GET", codeMethodNotAllowed, "")
		return
	}

	if s.auditStore == nil {
		writeError(w, http.StatusServiceUnavailable, "audit trail is disabled", codeAuditDisabled, "")
		return
	}

	q, ok := s.parseAuditQuery(w, r)
	if !ok {
		return
	}

	audit.ApplyQueryDefaults(q, s.auditQuery.DefaultLimit)
	if err := audit.ValidateQuery(q, s.auditQuery.MaxLimit); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), codeInvalidQuery, "")
		return
	}

	records, err := s.auditStore.Query(r.Context(), q)
	if err != nil {
		s.logger.Error("audit query failed",
			"error", err,
			"request_id", GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "audit query failed", codeInternalError, "")
		return
	}
	if records == nil {
		records = []*audit.Record{}
	}

	writeJSON(w, http.StatusOK, AuditRecordsResponse{Records: records, Count: len(records)})
}

// parseAuditQuery builds an audit query from URL parameters. On failure it
// writes the error response itself and returns false.
func (s *Server) parseAuditQuery(w http.ResponseWriter, r *http.Request) (*audit.Query, bool) {
	values := r.URL.Query()

	q := &audit.Query{
		Kind:        audit.RecordKind(values.Get("kind")),
		AnomalyType: values.Get("anomaly_type"),
		Escalation:  values.Get("escalation"),
		SatelliteID: values.Get("satellite_id"),
		RuleFired:   values.Get("rule_fired"),
		SortOrder:   values.Get("sort_order"),
	}

	// The phase filter goes through ParsePhase so typos come back as a 400
	// with the valid names instead of a silently empty result.
	if v := values.Get("phase"); v != "" {
		phase, err := mission.ParsePhase(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), codeInvalidValue, "phase")
			return nil, false
		}
		q.Phase = phase.String()
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"start_time", &q.StartTime},
		{"end_time", &q.EndTime},
	} {
		if v := values.Get(p.name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, p.name+" must be RFC 3339", codeInvalidValue, p.name)
				return nil, false
			}
			*p.dst = &t
		}
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &q.Limit},
		{"offset", &q.Offset},
	} {
		if v := values.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, p.name+" must be an integer", codeInvalidValue, p.name)
				return nil, false
			}
			*p.dst = n
		}
	}

	return q, true
}
