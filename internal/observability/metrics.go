package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/forgeflow/orchestrator/internal/router"
	"github.com/forgeflow/orchestrator/internal/safety"
)

// Metrics provides a centralized interface for collecting application metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Router fallback-level decisions (L0 structured primary through L3 keyword)
//   - Circuit breaker state per agent
//   - Turn and retry ceiling enforcement
//   - Graph super-step throughput
//   - LLM request performance and token usage
//   - Tool execution patterns and latencies
//   - Error rates categorized by type and component
//   - HTTP API request latency
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	defer metrics.LLMRequestDuration("anthropic", "claude-3-opus").Observe(time.Since(start).Seconds())
type Metrics struct {
	// RouterDecisions counts routing decisions by fallback level and chosen agent.
	// Labels: level (L0_structured_primary|L1_plain_json_primary|L2_structured_secondary|L3_keyword_rule), agent
	RouterDecisions *prometheus.CounterVec

	// CircuitState reports whether an agent's circuit is currently open (1) or closed (0).
	// Labels: agent
	CircuitState *prometheus.GaugeVec

	// CircuitFailures tracks consecutive-failure counts per agent at observation time.
	// Labels: agent
	CircuitFailures *prometheus.GaugeVec

	// TurnCeilingHits counts runs that terminated because the turn ceiling was reached.
	TurnCeilingHits prometheus.Counter

	// RetrySurrenders counts Builder self-loop surrenders at the retry ceiling.
	// Labels: agent
	RetrySurrenders *prometheus.CounterVec

	// SuperSteps counts graph super-steps executed, by node name.
	// Labels: node
	SuperSteps *prometheus.CounterVec

	// SubTasksDispatched counts hierarchical sub-tasks reaching a terminal
	// outcome.
	// Labels: outcome (done|failed)
	SubTasksDispatched *prometheus.CounterVec

	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider, model
	// Buckets: 0.1s, 0.5s, 1s, 2s, 5s, 10s, 30s, 60s
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests by provider, model, and status.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	// Buckets: 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s, 10s, 30s, 60s
	ToolExecutionDuration *prometheus.HistogramVec

	// ErrorCounter tracks errors by component and error type.
	// Labels: component (router|agent|tool|executor), error_type
	ErrorCounter *prometheus.CounterVec

	// ActiveThreads is a gauge tracking threads currently executing a super-step.
	ActiveThreads prometheus.Gauge

	// ThreadDuration measures end-to-end thread run duration in seconds.
	// Buckets: 1s, 5s, 15s, 30s, 60s, 120s, 300s, 600s
	ThreadDuration prometheus.Histogram

	// HTTPRequestDuration measures HTTP API request latency.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts HTTP requests.
	// Labels: method, path, status_code
	HTTPRequestCounter *prometheus.CounterVec

	// EventsDropped counts back-pressure-dropped SSE events by type.
	// Labels: event_type
	EventsDropped *prometheus.CounterVec

	// LLMCostUSD tracks estimated cost in USD.
	// Labels: provider, model
	LLMCostUSD *prometheus.CounterVec

	// ContextWindowUsed tracks context window utilization.
	// Labels: provider, model
	// Buckets: 1000, 4000, 8000, 16000, 32000, 64000, 128000
	ContextWindowUsed *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
// This should be called once at application startup.
//
// All metrics are automatically registered with Prometheus's default registry
// and will be available at the /metrics endpoint when using the promhttp handler.
func NewMetrics() *Metrics {
	return &Metrics{
		RouterDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_router_decisions_total",
				Help: "Total number of routing decisions by fallback level and chosen agent",
			},
			[]string{"level", "agent"},
		),

		CircuitState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orchestrator_circuit_open",
				Help: "Whether an agent's circuit breaker is currently open (1) or closed (0)",
			},
			[]string{"agent"},
		),

		CircuitFailures: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orchestrator_circuit_consecutive_failures",
				Help: "Consecutive failure count per agent at last observation",
			},
			[]string{"agent"},
		),

		TurnCeilingHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orchestrator_turn_ceiling_hits_total",
				Help: "Total number of runs terminated by the turn ceiling",
			},
		),

		RetrySurrenders: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_retry_surrenders_total",
				Help: "Total number of Builder self-loop surrenders at the retry ceiling",
			},
			[]string{"agent"},
		),

		SuperSteps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_super_steps_total",
				Help: "Total number of graph super-steps executed by node",
			},
			[]string{"node"},
		),

		SubTasksDispatched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_subtasks_dispatched_total",
				Help: "Total number of hierarchical sub-tasks dispatched by outcome",
			},
			[]string{"outcome"},
		),

		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orchestrator_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orchestrator_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),

		ActiveThreads: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "orchestrator_active_threads",
				Help: "Current number of threads with a super-step in flight",
			},
		),

		ThreadDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "orchestrator_thread_duration_seconds",
				Help:    "End-to-end duration of a thread run, from Start to FINISH, in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orchestrator_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),

		EventsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_events_dropped_total",
				Help: "Total number of SSE events dropped by the event bus back-pressure policy",
			},
			[]string{"event_type"},
		),

		LLMCostUSD: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orchestrator_llm_cost_usd_total",
				Help: "Estimated LLM API cost in USD",
			},
			[]string{"provider", "model"},
		),

		ContextWindowUsed: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orchestrator_context_window_tokens",
				Help:    "Context window tokens used",
				Buckets: []float64{1000, 4000, 8000, 16000, 32000, 64000, 128000},
			},
			[]string{"provider", "model"},
		),
	}
}

// ObserveLevel implements router.LevelCounter, recording which fallback
// level produced a routing decision and which agent it chose.
func (m *Metrics) ObserveLevel(level router.Level, agent string) {
	m.RouterDecisions.WithLabelValues(level.String(), agent).Inc()
}

var _ router.LevelCounter = (*Metrics)(nil)

// RecordCircuitSnapshot updates the circuit breaker gauges from a breaker's
// current Snapshot. Call periodically (e.g. from a /state poll or a ticker)
// since the breaker itself has no subscriber hook.
func (m *Metrics) RecordCircuitSnapshot(snapshot []safety.Snapshot) {
	for _, s := range snapshot {
		open := 0.0
		if s.CircuitOpen {
			open = 1.0
		}
		m.CircuitState.WithLabelValues(s.Agent).Set(open)
		m.CircuitFailures.WithLabelValues(s.Agent).Set(float64(s.Failures))
	}
}

// RecordTurnCeilingHit records a run terminated by the turn ceiling.
func (m *Metrics) RecordTurnCeilingHit() {
	m.TurnCeilingHits.Inc()
}

// RecordRetrySurrender records a Builder self-loop surrender for agent.
func (m *Metrics) RecordRetrySurrender(agent string) {
	m.RetrySurrenders.WithLabelValues(agent).Inc()
}

// RecordSuperStep records one graph super-step executed by node.
func (m *Metrics) RecordSuperStep(node string) {
	m.SuperSteps.WithLabelValues(node).Inc()
}

// RecordSubTaskDispatched records a hierarchical sub-task reaching a
// terminal outcome ("done" or "failed").
func (m *Metrics) RecordSubTaskDispatched(outcome string) {
	m.SubTasksDispatched.WithLabelValues(outcome).Inc()
}

// RecordLLMRequest records metrics for an LLM API request.
//
// Example:
//
//	start := time.Now()
//	// ... make LLM request ...
//	metrics.RecordLLMRequest("anthropic", "claude-3-opus", "success", time.Since(start).Seconds(), 100, 500)
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolExecution records metrics for a tool execution.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordError increments the error counter for a given component and error type.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}

// ThreadStarted increments the active threads gauge.
func (m *Metrics) ThreadStarted() {
	m.ActiveThreads.Inc()
}

// ThreadEnded decrements the active threads gauge and records thread duration.
func (m *Metrics) ThreadEnded(durationSeconds float64) {
	m.ActiveThreads.Dec()
	m.ThreadDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records metrics for an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	m.HTTPRequestCounter.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}

// RecordEventDropped records a back-pressure-dropped SSE event.
func (m *Metrics) RecordEventDropped(eventType string) {
	m.EventsDropped.WithLabelValues(eventType).Inc()
}

// RecordLLMCost records estimated API cost.
func (m *Metrics) RecordLLMCost(provider, model string, costUSD float64) {
	m.LLMCostUSD.WithLabelValues(provider, model).Add(costUSD)
}

// RecordContextWindow records context window utilization.
func (m *Metrics) RecordContextWindow(provider, model string, tokensUsed int) {
	m.ContextWindowUsed.WithLabelValues(provider, model).Observe(float64(tokensUsed))
}
