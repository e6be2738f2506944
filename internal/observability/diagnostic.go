// Package observability provides diagnostic event types and emission.
package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// DiagnosticEventType identifies the type of diagnostic event.
type DiagnosticEventType string

const (
	EventTypeModelUsage       DiagnosticEventType = "model.usage"
	EventTypeRouterDecision   DiagnosticEventType = "router.decision"
	EventTypeCircuitOpen      DiagnosticEventType = "circuit.open"
	EventTypeCircuitClose     DiagnosticEventType = "circuit.close"
	EventTypeTurnCeiling      DiagnosticEventType = "turn.ceiling"
	EventTypeRetrySurrender   DiagnosticEventType = "retry.surrender"
	EventTypeSubTaskDispatch  DiagnosticEventType = "subtask.dispatch"
	EventTypeSuperStep        DiagnosticEventType = "graph.super_step"
	EventTypeDiagnosticHeartbeat DiagnosticEventType = "diagnostic.heartbeat"
)

// DiagnosticEvent is the base event structure.
type DiagnosticEvent struct {
	Type DiagnosticEventType `json:"type"`
	Seq  int64               `json:"seq"`
	Ts   int64               `json:"ts"`
}

// ModelUsageEvent tracks token usage for a model request.
type ModelUsageEvent struct {
	DiagnosticEvent
	ThreadID   string          `json:"thread_id,omitempty"`
	Agent      string          `json:"agent,omitempty"`
	Provider   string          `json:"provider,omitempty"`
	Model      string          `json:"model,omitempty"`
	Usage      UsageDetails    `json:"usage"`
	Context    *ContextDetails `json:"context,omitempty"`
	CostUSD    float64         `json:"cost_usd,omitempty"`
	DurationMs int64           `json:"duration_ms,omitempty"`
}

// UsageDetails contains token usage breakdown.
type UsageDetails struct {
	Input        int64 `json:"input,omitempty"`
	Output       int64 `json:"output,omitempty"`
	CacheRead    int64 `json:"cache_read,omitempty"`
	CacheWrite   int64 `json:"cache_write,omitempty"`
	PromptTokens int64 `json:"prompt_tokens,omitempty"`
	Total        int64 `json:"total,omitempty"`
}

// ContextDetails contains context window information.
type ContextDetails struct {
	Limit int64 `json:"limit,omitempty"`
	Used  int64 `json:"used,omitempty"`
}

// RouterDecisionEvent tracks a single routing decision.
type RouterDecisionEvent struct {
	DiagnosticEvent
	ThreadID   string  `json:"thread_id,omitempty"`
	Level      string  `json:"level"`
	Agent      string  `json:"agent"`
	Confidence float64 `json:"confidence,omitempty"`
}

// CircuitStateEvent tracks a circuit breaker opening or closing for an agent.
type CircuitStateEvent struct {
	DiagnosticEvent
	Agent    string `json:"agent"`
	Failures int    `json:"failures"`
}

// TurnCeilingEvent tracks a run terminated by the turn ceiling.
type TurnCeilingEvent struct {
	DiagnosticEvent
	ThreadID  string `json:"thread_id,omitempty"`
	TurnCount int    `json:"turn_count"`
	MaxTurns  int    `json:"max_turns"`
}

// RetrySurrenderEvent tracks a Builder self-loop surrendering at the retry ceiling.
type RetrySurrenderEvent struct {
	DiagnosticEvent
	ThreadID string `json:"thread_id,omitempty"`
	Agent    string `json:"agent"`
	Retries  int    `json:"retries"`
}

// SubTaskDispatchEvent tracks a hierarchical sub-task reaching a terminal outcome.
type SubTaskDispatchEvent struct {
	DiagnosticEvent
	ThreadID string `json:"thread_id,omitempty"`
	SubTaskID string `json:"sub_task_id"`
	Agent    string `json:"agent"`
	Outcome  string `json:"outcome"` // "done" or "failed"
}

// SuperStepEvent tracks one graph super-step.
type SuperStepEvent struct {
	DiagnosticEvent
	ThreadID string `json:"thread_id,omitempty"`
	Node     string `json:"node"`
	Step     int    `json:"step"`
}

// DiagnosticHeartbeatEvent tracks diagnostic heartbeats.
type DiagnosticHeartbeatEvent struct {
	DiagnosticEvent
	ActiveThreads int `json:"active_threads"`
	OpenCircuits  int `json:"open_circuits"`
}

// DiagnosticEventPayload is a union type for all diagnostic events.
type DiagnosticEventPayload interface {
	EventType() DiagnosticEventType
	Sequence() int64
	Timestamp() int64
}

// Implement DiagnosticEventPayload for all event types
func (e *DiagnosticEvent) EventType() DiagnosticEventType { return e.Type }
func (e *DiagnosticEvent) Sequence() int64                { return e.Seq }
func (e *DiagnosticEvent) Timestamp() int64               { return e.Ts }

// DiagnosticListener receives diagnostic events.
type DiagnosticListener func(event DiagnosticEventPayload)

// DiagnosticEmitter manages diagnostic event emission.
type DiagnosticEmitter struct {
	mu        sync.RWMutex
	seq       int64
	enabled   bool
	listeners []DiagnosticListener
}

var globalEmitter = &DiagnosticEmitter{}

// SetDiagnosticsEnabled enables or disables diagnostic events.
func SetDiagnosticsEnabled(enabled bool) {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	globalEmitter.enabled = enabled
}

// IsDiagnosticsEnabled returns whether diagnostics are enabled.
func IsDiagnosticsEnabled() bool {
	globalEmitter.mu.RLock()
	defer globalEmitter.mu.RUnlock()
	return globalEmitter.enabled
}

// OnDiagnosticEvent registers a listener for diagnostic events.
func OnDiagnosticEvent(listener DiagnosticListener) func() {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	globalEmitter.listeners = append(globalEmitter.listeners, listener)

	// Return unsubscribe function
	return func() {
		globalEmitter.mu.Lock()
		defer globalEmitter.mu.Unlock()
		for i, l := range globalEmitter.listeners {
			// Compare function pointers (this is a simplification)
			if &l == &listener {
				globalEmitter.listeners = append(globalEmitter.listeners[:i], globalEmitter.listeners[i+1:]...)
				break
			}
		}
	}
}

// nextSeq returns the next sequence number.
func nextSeq() int64 {
	return atomic.AddInt64(&globalEmitter.seq, 1)
}

// emit sends an event to all listeners.
func emit(event DiagnosticEventPayload) {
	globalEmitter.mu.RLock()
	if !globalEmitter.enabled {
		globalEmitter.mu.RUnlock()
		return
	}
	listeners := make([]DiagnosticListener, len(globalEmitter.listeners))
	copy(listeners, globalEmitter.listeners)
	globalEmitter.mu.RUnlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if recovered := recover(); recovered != nil {
					_ = recovered
				}
			}() // Ignore listener panics
			listener(event)
		}()
	}
}

// EmitModelUsage emits a model usage event.
func EmitModelUsage(e *ModelUsageEvent) {
	e.Type = EventTypeModelUsage
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitRouterDecision emits a router decision event.
func EmitRouterDecision(e *RouterDecisionEvent) {
	e.Type = EventTypeRouterDecision
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitCircuitOpen emits a circuit-open event.
func EmitCircuitOpen(e *CircuitStateEvent) {
	e.Type = EventTypeCircuitOpen
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitCircuitClose emits a circuit-close event.
func EmitCircuitClose(e *CircuitStateEvent) {
	e.Type = EventTypeCircuitClose
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitTurnCeiling emits a turn-ceiling event.
func EmitTurnCeiling(e *TurnCeilingEvent) {
	e.Type = EventTypeTurnCeiling
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitRetrySurrender emits a retry-surrender event.
func EmitRetrySurrender(e *RetrySurrenderEvent) {
	e.Type = EventTypeRetrySurrender
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitSubTaskDispatch emits a sub-task dispatch event.
func EmitSubTaskDispatch(e *SubTaskDispatchEvent) {
	e.Type = EventTypeSubTaskDispatch
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitSuperStep emits a super-step event.
func EmitSuperStep(e *SuperStepEvent) {
	e.Type = EventTypeSuperStep
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// EmitDiagnosticHeartbeat emits a diagnostic heartbeat event.
func EmitDiagnosticHeartbeat(e *DiagnosticHeartbeatEvent) {
	e.Type = EventTypeDiagnosticHeartbeat
	e.Seq = nextSeq()
	e.Ts = time.Now().UnixMilli()
	emit(e)
}

// ResetDiagnosticsForTest resets diagnostic state for testing.
func ResetDiagnosticsForTest() {
	globalEmitter.mu.Lock()
	defer globalEmitter.mu.Unlock()
	atomic.StoreInt64(&globalEmitter.seq, 0)
	globalEmitter.listeners = nil
}
