// Package safety implements the orchestrator's safety envelope: a turn
// ceiling enforced by the Router, a per-agent retry ceiling owned by
// self-loop nodes, and a circuit breaker over per-agent routing
// availability. The circuit breaker is generalized from the teacher's
// LLM-provider failover pattern (consecutive-failure counter, open state,
// cooldown window) to agent routing rather than provider selection.
package safety

import (
	"sync"
	"time"
)

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures before the circuit opens.
	Threshold int
	// Cooldown is how long the circuit stays open before allowing a probe.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns sensible defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 3, Cooldown: 30 * time.Second}
}

type agentState struct {
	failures    int
	circuitOpen bool
	openedAt    time.Time
}

// CircuitBreaker tracks per-agent consecutive-failure state and decides
// whether routing to an agent is currently allowed.
type CircuitBreaker struct {
	cfg   BreakerConfig
	mu    sync.Mutex
	state map[string]*agentState
}

// NewCircuitBreaker builds a CircuitBreaker from cfg.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, state: map[string]*agentState{}}
}

// Available reports whether agent is currently routable: either its circuit
// has never opened, or the cooldown window has elapsed since it opened.
func (b *CircuitBreaker) Available(agent string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.state[agent]
	if !ok || !s.circuitOpen {
		return true
	}
	return time.Since(s.openedAt) > b.cfg.Cooldown
}

// RecordFailure registers a failed call to agent, opening its circuit once
// the consecutive-failure threshold is reached.
func (b *CircuitBreaker) RecordFailure(agent string, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.state[agent]
	if s == nil {
		s = &agentState{}
		b.state[agent] = s
	}
	s.failures++
	if s.failures >= b.cfg.Threshold {
		s.circuitOpen = true
		s.openedAt = now
	}
}

// RecordSuccess resets agent's failure count and closes its circuit.
func (b *CircuitBreaker) RecordSuccess(agent string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.state[agent]
	if s == nil {
		return
	}
	s.failures = 0
	s.circuitOpen = false
}

// Snapshot describes one agent's breaker state, for the /state endpoint.
type Snapshot struct {
	Agent       string
	Failures    int
	CircuitOpen bool
}

// Snapshot returns the current breaker state for every agent observed so far.
func (b *CircuitBreaker) Snapshot() []Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Snapshot, 0, len(b.state))
	for name, s := range b.state {
		out = append(out, Snapshot{Agent: name, Failures: s.failures, CircuitOpen: s.circuitOpen})
	}
	return out
}
