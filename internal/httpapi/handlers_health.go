package httpapi

import (
	"net/http"
	"time"
)

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status      string `json:"status"`
	UptimeSecs  float64 `json:"uptime_seconds"`
	AgentCount  int    `json:"agent_count"`
}

// handleHealth reports liveness and the currently loaded agent count,
// grounded on the teacher's handleHealthz shape but without its
// channel/migration-status fields, which have no analogue here.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		UptimeSecs: time.Since(s.startTime).Seconds(),
		AgentCount: len(s.agents.All()),
	})
}

// circuitSummary is one agent's breaker state in the /metrics summary.
type circuitSummary struct {
	Agent       string `json:"agent"`
	Failures    int    `json:"failures"`
	CircuitOpen bool   `json:"circuit_open"`
}

// metricsResponse is the compact JSON summary GET /metrics returns for
// consumers that don't want to scrape Prometheus text format.
type metricsResponse struct {
	UptimeSecs float64           `json:"uptime_seconds"`
	Circuits   []circuitSummary  `json:"circuits"`
}

// handleMetricsJSON returns the same circuit-breaker data exposed on
// /metrics/prometheus as a compact JSON summary.
func (s *Server) handleMetricsJSON(w http.ResponseWriter, r *http.Request) {
	snaps := s.breaker.Snapshot()
	s.metrics.RecordCircuitSnapshot(snaps)

	circuits := make([]circuitSummary, 0, len(snaps))
	for _, sn := range snaps {
		circuits = append(circuits, circuitSummary{Agent: sn.Agent, Failures: sn.Failures, CircuitOpen: sn.CircuitOpen})
	}
	writeJSON(w, http.StatusOK, metricsResponse{
		UptimeSecs: time.Since(s.startTime).Seconds(),
		Circuits:   circuits,
	})
}
