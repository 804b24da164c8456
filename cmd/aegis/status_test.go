package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"astraguard/aegis/pkg/cli"
	"astraguard/aegis/pkg/server"
	"astraguard/aegis/pkg/telemetry/health"
)

func resetStatusFlags() {
	statusFlags.address = ""
	statusFlags.timeout = 5 * time.Second
	statusFlags.format = "text"
}

// newStatusServer serves the three endpoints the status command queries,
// answering /ready with the given HTTP status and report body.
func newStatusServer(readyStatus int, report health.Report) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(readyStatus)
		json.NewEncoder(w).Encode(report)
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health.VersionInfo{Version: "0.1.0-test", Commit: "abc123"})
	})
	mux.HandleFunc("/v1/phase", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"phase":"NOMINAL_OPS"}`))
	})
	return httptest.NewServer(mux)
}

func TestStatusHealthy(t *testing.T) {
	ts := newStatusServer(http.StatusOK, health.Report{
		Status: health.StatusReady,
		Checks: map[string]health.CheckResult{
			"policy": {Status: health.StatusOK, DurationMS: 0.2},
		},
		Timestamp: time.Now().UTC(),
	})
	defer ts.Close()

	resetStatusFlags()
	statusFlags.address = ts.URL

	if err := runStatus(testCommand(), nil); err != nil {
		t.Errorf("runStatus() against healthy instance returned error: %v", err)
	}
}

func TestStatusDegraded(t *testing.T) {
	ts := newStatusServer(http.StatusServiceUnavailable, health.Report{
		Status: health.StatusDegraded,
		Checks: map[string]health.CheckResult{
			"policy": {Status: health.StatusOK, DurationMS: 0.2},
			"audit":  {Status: health.StatusUnhealthy, Message: "storage unreachable", DurationMS: 12.4},
		},
		Timestamp: time.Now().UTC(),
	})
	defer ts.Close()

	resetStatusFlags()
	statusFlags.address = ts.URL

	err := runStatus(testCommand(), nil)
	if err == nil {
		t.Fatal("runStatus() against degraded instance should return error")
	}

	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != exitDegraded {
		t.Errorf("exit code = %d, want %d", exitErr.Code, exitDegraded)
	}
}

func TestStatusUnreachable(t *testing.T) {
	ts := newStatusServer(http.StatusOK, health.Report{Status: health.StatusReady})
	address := ts.URL
	ts.Close()

	resetStatusFlags()
	statusFlags.address = address
	statusFlags.timeout = 500 * time.Millisecond

	err := runStatus(testCommand(), nil)
	if err == nil {
		t.Fatal("runStatus() against closed instance should return error")
	}

	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != exitFailed {
		t.Errorf("exit code = %d, want %d", exitErr.Code, exitFailed)
	}
}

func TestStatusRejectsCSVFormat(t *testing.T) {
	resetStatusFlags()
	statusFlags.address = "localhost:1"
	statusFlags.format = "csv"

	if err := runStatus(testCommand(), nil); err == nil {
		t.Error("runStatus() with CSV format should return error")
	}
}

func TestNewAPIClientNormalizesAddress(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"localhost:8085", "http://localhost:8085"},
		{"http://10.0.3.7:8085", "http://10.0.3.7:8085"},
		{"https://aegis.example.com/", "https://aegis.example.com"},
	}

	for _, tt := range tests {
		client := newAPIClient(tt.address, time.Second)
		if client.baseURL != tt.want {
			t.Errorf("newAPIClient(%q).baseURL = %q, want %q", tt.address, client.baseURL, tt.want)
		}
	}
}

func TestGetJSONErrorEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/phase", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(server.ErrorResponse{
			Error: server.ErrorDetail{Message: "phase state unavailable", Code: "not_found"},
		})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := newAPIClient(ts.URL, time.Second)

	var out server.PhaseResponse
	err := client.getJSON(context.Background(), "/v1/phase", &out)
	if err == nil {
		t.Fatal("getJSON() on 404 should return error")
	}
	if !strings.Contains(err.Error(), "phase state unavailable") {
		t.Errorf("error should carry the server message, got: %v", err)
	}
}

func TestFetchReadinessDecodesDegradedBody(t *testing.T) {
	ts := newStatusServer(http.StatusServiceUnavailable, health.Report{
		Status: health.StatusDegraded,
		Checks: map[string]health.CheckResult{
			"tracker": {Status: health.StatusUnhealthy, Message: "sqlite locked"},
		},
		Timestamp: time.Now().UTC(),
	})
	defer ts.Close()

	client := newAPIClient(ts.URL, time.Second)

	report, err := fetchReadiness(context.Background(), client)
	if err != nil {
		t.Fatalf("fetchReadiness() returned error: %v", err)
	}
	if report.Status != health.StatusDegraded {
		t.Errorf("report.Status = %q, want %q", report.Status, health.StatusDegraded)
	}
	if report.Checks["tracker"].Message != "sqlite locked" {
		t.Errorf("check message = %q, want %q", report.Checks["tracker"].Message, "sqlite locked")
	}
}
