package graph

import (
	"testing"

	"github.com/forgeflow/orchestrator/internal/checkpoint"
	"github.com/forgeflow/orchestrator/internal/events"
	"github.com/forgeflow/orchestrator/internal/safety"
)

func testMemoryStore(t *testing.T) checkpoint.Store {
	t.Helper()
	return checkpoint.NewMemoryStore()
}

func testEnvelope() *safety.Envelope {
	return safety.NewEnvelope(safety.DefaultEnvelopeConfig())
}

func testBreaker() *safety.CircuitBreaker {
	return safety.NewCircuitBreaker(safety.DefaultBreakerConfig())
}

func testBus(t *testing.T, threadID string) *events.Bus {
	t.Helper()
	return events.NewBus(threadID, events.DefaultBusConfig())
}
