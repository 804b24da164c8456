package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"astraguard/aegis/pkg/audit/recorder"
	"astraguard/aegis/pkg/audit/storage"
	"astraguard/aegis/pkg/config"
	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy/engine"
	"astraguard/aegis/pkg/policy/engine/source"
	"astraguard/aegis/pkg/telemetry/metrics"
	"astraguard/aegis/pkg/tracker"
)

// testServer bundles the server with the components tests assert against.
type testServer struct {
	srv     *Server
	handler http.Handler
	engine  *engine.Engine
	store   *storage.MemoryStorage
	tracker *tracker.Tracker
}

// newTestServer wires a server around the built-in policy table, a memory
// audit store, and a memory occurrence tracker.
func newTestServer(t *testing.T, initial mission.Phase) *testServer {
	t.Helper()

	machine, err := mission.NewStateMachine(initial, nil)
	if err != nil {
		t.Fatalf("NewStateMachine: %v", err)
	}
	eng, err := engine.New(machine, source.NewDefaultSource(), nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { eng.Close() })

	store := storage.NewMemoryStorage()
	rec := recorder.New(store, recorder.DefaultConfig(), nil)
	t.Cleanup(func() { rec.Close() })

	trk := tracker.New(tracker.NewMemoryBackend(time.Hour), &tracker.Config{
		Enabled:       true,
		Window:        time.Hour,
		SweepInterval: time.Hour,
	})
	t.Cleanup(func() { trk.Close() })

	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Path: "/metrics"}, nil)

	cfg := config.DefaultConfig().Server
	srv, err := New(&cfg, Dependencies{
		Engine:     eng,
		Tracker:    trk,
		Recorder:   rec,
		AuditStore: store,
		Metrics:    collector,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return &testServer{
		srv:     srv,
		handler: srv.Handler(),
		engine:  eng,
		store:   store,
		tracker: trk,
	}
}

// do sends a request through the full middleware chain and returns the
// recorded response.
func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

// decodeErr extracts the error envelope from a response.
func decodeErr(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error envelope: %v (body %q)", err, w.Body.String())
	}
	return resp.Error
}

func TestNewRequiresDependencies(t *testing.T) {
	cfg := config.DefaultConfig().Server

	if _, err := New(nil, Dependencies{}); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := New(&cfg, Dependencies{}); err == nil {
		t.Error("expected error for nil engine")
	}
}

func TestStartAndStop(t *testing.T) {
	ts := newTestServer(t, mission.PhaseLaunch)
	ts.srv.config.ListenAddress = "127.0.0.1:0"

	errCh := make(chan error, 1)
	go func() {
		errCh <- ts.srv.Start(context.Background())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !ts.srv.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("server did not report running")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ts.srv.Stop()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v after Stop", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	if ts.srv.IsRunning() {
		t.Error("server still reports running after shutdown")
	}
}

func TestStartRejectsSecondCall(t *testing.T) {
	ts := newTestServer(t, mission.PhaseLaunch)
	ts.srv.config.ListenAddress = "127.0.0.1:0"

	errCh := make(chan error, 1)
	go func() {
		errCh <- ts.srv.Start(context.Background())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !ts.srv.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("server did not report running")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := ts.srv.Start(context.Background()); err == nil {
		t.Error("expected error from second Start")
	}

	ts.srv.Stop()
	<-errCh
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, mission.PhaseLaunch)

	for _, path := range []string{"/health", "/ready", "/version"} {
		w := ts.do(t, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}
}

func TestMetricsEndpointServesRouteSeries(t *testing.T) {
	ts := newTestServer(t, mission.PhaseLaunch)

	if w := ts.do(t, http.MethodGet, "/v1/phase", ""); w.Code != http.StatusOK {
		t.Fatalf("GET /v1/phase status = %d, want 200", w.Code)
	}

	w := ts.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "astra_http_requests_total") {
		t.Error("metrics exposition missing astra_http_requests_total")
	}
	// Requests are labeled by route pattern, not raw URL.
	if !strings.Contains(body, `path="/v1/phase"`) {
		t.Error("metrics exposition missing the /v1/phase route label")
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	ts := newTestServer(t, mission.PhaseLaunch)

	w := ts.do(t, http.MethodGet, "/v1/nonsense", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestResponsesCarryRequestID(t *testing.T) {
	ts := newTestServer(t, mission.PhaseLaunch)

	w := ts.do(t, http.MethodGet, "/v1/phase", "")
	if got := w.Header().Get(RequestIDHeader); got == "" {
		t.Error("response missing X-Request-ID header")
	}
}
