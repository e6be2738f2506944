package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/forgeflow/orchestrator/internal/config"
	"github.com/forgeflow/orchestrator/internal/observability"
)

// testServer is built exactly once for the whole package: observability.NewMetrics
// registers every collector with the default Prometheus registry, and a second
// call would panic on duplicate registration (see metrics_test.go).
var testServer = mustBuildTestServer()

func mustBuildTestServer() *Server {
	cfg := config.Default()
	cfg.Checkpoint.Driver = "memory"
	// Leave LLM.Providers API keys empty so build() wires zero providers;
	// these tests exercise the non-LLM endpoints only.
	cfg.LLM.Providers = map[string]config.LLMProviderConfig{}

	logger := observability.NewLogger(observability.LogConfig{Level: "error", Format: "text"})
	metrics := observability.NewMetrics()

	s, err := New(cfg, "", logger, metrics, nil)
	if err != nil {
		panic(err)
	}
	return s
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	testServer.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.AgentCount != len(testServer.agents.All()) {
		t.Errorf("agent_count = %d, want %d", body.AgentCount, len(testServer.agents.All()))
	}
}

func TestHandleAgentsListsBuiltins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	rec := httptest.NewRecorder()
	testServer.handleAgents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body []agentInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != len(testServer.agents.All()) {
		t.Fatalf("got %d agents, want %d", len(body), len(testServer.agents.All()))
	}
	foundBuilder := false
	for _, a := range body {
		if a.Name == "builder" {
			foundBuilder = true
			if len(a.Tools) == 0 {
				t.Errorf("builder has no tools listed")
			}
		}
	}
	if !foundBuilder {
		t.Errorf("builtin agent %q missing from /agents response", "builder")
	}
}

func TestHandleMetricsJSONIncludesCircuitSnapshot(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	testServer.handleMetricsJSON(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body metricsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Circuits == nil {
		t.Errorf("circuits field should be present (possibly empty), got nil")
	}
}

func TestHandleStateUnknownThreadReturns404(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/state/does-not-exist", nil)
	rec := httptest.NewRecorder()
	testServer.handleState(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleStateMissingThreadIDReturns400(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/state/", nil)
	rec := httptest.NewRecorder()
	testServer.handleState(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleThreadUnknownThreadReturns404(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/thread/does-not-exist", nil)
	rec := httptest.NewRecorder()
	testServer.handleThread(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleThreadApproveUnknownThreadReturns404(t *testing.T) {
	body := strings.NewReader(`{"approved":true}`)
	req := httptest.NewRequest(http.MethodPost, "/thread/does-not-exist/approve", body)
	rec := httptest.NewRecorder()
	testServer.handleThread(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleThreadApproveRejectsMalformedBody(t *testing.T) {
	body := strings.NewReader(`not json`)
	req := httptest.NewRequest(http.MethodPost, "/thread/some-thread/approve", body)
	rec := httptest.NewRecorder()
	testServer.handleThread(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleThreadMissingThreadIDReturns400(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/thread/", nil)
	rec := httptest.NewRecorder()
	testServer.handleThread(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleWorkflowUnknownPhaseReturns404(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/workflow/not-a-phase", nil)
	rec := httptest.NewRecorder()
	testServer.handleWorkflow(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
