package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forgeflow/orchestrator/internal/agents"
	"github.com/forgeflow/orchestrator/internal/checkpoint"
	"github.com/forgeflow/orchestrator/internal/events"
	"github.com/forgeflow/orchestrator/internal/router"
	"github.com/forgeflow/orchestrator/internal/safety"
	"github.com/forgeflow/orchestrator/internal/state"
)

// testRegistry returns a Registry seeded with the built-ins plus the named
// test agents. The built-ins carry no keyword rules in these tests, so the
// L3 fallback never selects them over an explicit keyword match.
func testRegistry(names ...string) *agents.Registry {
	r := agents.NewRegistry()
	for _, n := range names {
		_ = r.Register(agents.Manifest{Name: n, Role: n})
	}
	return r
}

func newTestRouterNode(keywordAgent, keyword string) *RouterNode {
	return newTestRouterNodeRules(map[string][]string{keywordAgent: {keyword}}, keywordAgent)
}

func newTestRouterNodeRules(rules map[string][]string, registeredAgents ...string) *RouterNode {
	rt := router.New(router.Config{KeywordRules: rules})
	reg := testRegistry(registeredAgents...)
	return NewRouterNode(rt, reg, safety.NewEnvelope(safety.DefaultEnvelopeConfig()), safety.NewCircuitBreaker(safety.DefaultBreakerConfig()))
}

// TestSingleAgentRoundTrip covers scenario S2: a user message routes to one
// agent, the agent answers without tool calls, and the next Router decision
// is FINISH.
func TestSingleAgentRoundTrip(t *testing.T) {
	routerNode := newTestRouterNodeRules(map[string][]string{
		"writer":             {"hello"},
		state.FinishSentinel: {"hi back"},
	}, "writer")

	ran := false
	writer := NodeFunc{
		NodeName: "writer",
		Fn: func(ctx context.Context, st *state.ConversationState) (state.Delta, error) {
			ran = true
			return state.Delta{
				NewMessages: []state.Message{state.NewMessage("writer", state.RoleAssistant, "hi back", fixedNow)},
				Contributor: "writer",
			}, nil
		},
	}

	store := checkpoint.NewMemoryStore()
	exec := NewExecutor([]Node{writer}, routerNode, safety.NewEnvelope(safety.DefaultEnvelopeConfig()), safety.NewCircuitBreaker(safety.DefaultBreakerConfig()), store)

	bus := events.NewBus("t1", events.DefaultBusConfig())
	defer bus.Close()

	final, err := exec.Start(context.Background(), "t1", state.NewMessage("", state.RoleUser, "hello", fixedNow), bus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("expected writer node to run")
	}
	if final.Next != state.FinishSentinel {
		t.Fatalf("expected Next to be FINISH from the agent's own decision, got %q", final.Next)
	}
	if _, ok := final.Contributors["writer"]; !ok || len(final.Contributors) != 1 {
		t.Fatalf("expected exactly one contributor (writer), got %v", final.Contributors)
	}
}

// TestTurnCeilingStopsWithoutAgentInvocation covers scenario S5: once
// TurnCount reaches MaxTurns, the Router must return FINISH without
// invoking any agent node. Seeds a checkpoint already at the ceiling so the
// Router's entry check fires on the very first super-step.
func TestTurnCeilingStopsWithoutAgentInvocation(t *testing.T) {
	routerNode := newTestRouterNode("writer", "hello")
	envelope := safety.NewEnvelope(safety.EnvelopeConfig{MaxTurns: 1, MaxRetries: 3})

	invoked := false
	writer := NodeFunc{
		NodeName: "writer",
		Fn: func(ctx context.Context, st *state.ConversationState) (state.Delta, error) {
			invoked = true
			return state.Delta{}, nil
		},
	}

	store := checkpoint.NewMemoryStore()
	seed := state.New("t2")
	seed.Messages = append(seed.Messages, state.NewMessage("", state.RoleUser, "hello", fixedNow))
	seed.Next = RouterNodeName
	seed.TurnCount = 1
	if err := store.Save(context.Background(), seed); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	exec := NewExecutor([]Node{writer}, routerNode, envelope, safety.NewCircuitBreaker(safety.DefaultBreakerConfig()), store)

	bus := events.NewBus("t2", events.DefaultBusConfig())
	defer bus.Close()

	final, err := exec.Start(context.Background(), "t2", state.NewMessage("", state.RoleUser, "ignored", fixedNow), bus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoked {
		t.Fatal("expected no agent invocation once the turn ceiling is exceeded")
	}
	if final.Next != state.FinishSentinel {
		t.Fatalf("expected FINISH, got %q", final.Next)
	}
}

// TestBuilderSelfLoopSurrendersAtRetryCeiling covers scenario S3: Builder
// keeps re-entering itself while NeedsRetry is true, and once its retry
// count would exceed MaxRetries it surrenders (appends a message, resets
// the counter) and yields to the Router instead of looping forever.
func TestBuilderSelfLoopSurrendersAtRetryCeiling(t *testing.T) {
	routerNode := newTestRouterNode(BuilderNodeName, "build")

	calls := 0
	builder := NodeFunc{
		NodeName: BuilderNodeName,
		Fn: func(ctx context.Context, st *state.ConversationState) (state.Delta, error) {
			calls++
			needsRetry := true
			return state.Delta{
				NewMessages: []state.Message{state.NewMessage(BuilderNodeName, state.RoleAssistant, "still broken", fixedNow)},
				Contributor: BuilderNodeName,
				NeedsRetry:  &needsRetry,
				LastError:   "build failed",
			}, nil
		},
	}

	store := checkpoint.NewMemoryStore()

	// The router always re-selects builder (keyword "build" matches), so the
	// run only terminates via the turn ceiling. A small MaxTurns makes the
	// test finish deterministically after the retry ceiling has already
	// been exercised at least once.
	envelope := safety.NewEnvelope(safety.EnvelopeConfig{MaxTurns: 8, MaxRetries: 2})
	exec := NewExecutor([]Node{builder}, routerNode, envelope, safety.NewCircuitBreaker(safety.DefaultBreakerConfig()), store)

	bus := events.NewBus("t3", events.DefaultBusConfig())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	final, err := exec.Start(ctx, "t3", state.NewMessage("", state.RoleUser, "build it", fixedNow), bus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls == 0 {
		t.Fatal("expected builder to run at least once")
	}
	if final.AgentRetries[BuilderNodeName] != 0 {
		t.Fatalf("expected retry counter reset to 0 after surrender, got %d", final.AgentRetries[BuilderNodeName])
	}
}

// TestResumeAfterCrash covers scenario S6: a fresh Start on a thread with an
// existing checkpoint resumes from the node named by the checkpoint's Next
// field rather than re-initializing state.
func TestResumeAfterCrash(t *testing.T) {
	routerNode := newTestRouterNode("writer", "hello")
	store := checkpoint.NewMemoryStore()

	seed := state.New("t4")
	seed.Messages = append(seed.Messages, state.NewMessage("", state.RoleUser, "hello", fixedNow))
	seed.Next = "writer"
	if err := store.Save(context.Background(), seed); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	resumed := false
	writer := NodeFunc{
		NodeName: "writer",
		Fn: func(ctx context.Context, st *state.ConversationState) (state.Delta, error) {
			resumed = true
			if len(st.Messages) != 1 {
				t.Fatalf("expected resumed state to carry the seeded message, got %d messages", len(st.Messages))
			}
			return state.Delta{
				NewMessages: []state.Message{state.NewMessage("writer", state.RoleAssistant, "resumed", fixedNow)},
				Decision:    state.Decision{Agent: state.FinishSentinel},
			}, nil
		},
	}

	exec := NewExecutor([]Node{writer}, routerNode, safety.NewEnvelope(safety.DefaultEnvelopeConfig()), safety.NewCircuitBreaker(safety.DefaultBreakerConfig()), store)
	bus := events.NewBus("t4", events.DefaultBusConfig())
	defer bus.Close()

	_, err := exec.Start(context.Background(), "t4", state.NewMessage("", state.RoleUser, "ignored, resuming instead", fixedNow), bus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resumed {
		t.Fatal("expected executor to resume into the writer node directly, not re-route")
	}
}

func TestThreadBusyRejectsConcurrentStart(t *testing.T) {
	routerNode := newTestRouterNode("writer", "hello")
	store := checkpoint.NewMemoryStore()

	release := make(chan struct{})
	entered := make(chan struct{})
	writer := NodeFunc{
		NodeName: "writer",
		Fn: func(ctx context.Context, st *state.ConversationState) (state.Delta, error) {
			close(entered)
			<-release
			return state.Delta{Decision: state.Decision{Agent: state.FinishSentinel}}, nil
		},
	}

	exec := NewExecutor([]Node{writer}, routerNode, safety.NewEnvelope(safety.DefaultEnvelopeConfig()), safety.NewCircuitBreaker(safety.DefaultBreakerConfig()), store)

	bus1 := events.NewBus("t5", events.DefaultBusConfig())
	defer bus1.Close()

	go func() {
		_, _ = exec.Start(context.Background(), "t5", state.NewMessage("", state.RoleUser, "hello", fixedNow), bus1)
	}()
	<-entered

	bus2 := events.NewBus("t5", events.DefaultBusConfig())
	defer bus2.Close()
	_, err := exec.Start(context.Background(), "t5", state.NewMessage("", state.RoleUser, "hello again", fixedNow), bus2)
	if !errors.Is(err, ErrThreadBusy) {
		t.Fatalf("expected ErrThreadBusy, got %v", err)
	}
	close(release)
}

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
