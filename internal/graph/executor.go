package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/forgeflow/orchestrator/internal/checkpoint"
	"github.com/forgeflow/orchestrator/internal/events"
	"github.com/forgeflow/orchestrator/internal/safety"
	"github.com/forgeflow/orchestrator/internal/state"
)

// ErrThreadBusy is returned when a caller tries to step a thread that
// already has a super-step in flight. Only one holder of a given thread id
// is permitted at a time.
var ErrThreadBusy = errors.New("graph: thread is busy")

// Executor runs the checkpointed super-step loop: select a node by name,
// run it, merge its Delta, checkpoint the result, emit lifecycle events,
// and pick the next node per the static edge rules (Router -> state.Next or
// END; every agent node -> Router; Builder -> Builder while NeedsRetry else
// Router).
type Executor struct {
	nodes    map[string]Node
	router   *RouterNode
	envelope *safety.Envelope
	breaker  *safety.CircuitBreaker
	store    checkpoint.Store
	tracer   Tracer

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewExecutor builds an Executor over the given agent nodes (keyed by
// Name()), the Router step, and the shared safety/checkpoint dependencies.
func NewExecutor(nodes []Node, router *RouterNode, envelope *safety.Envelope, breaker *safety.CircuitBreaker, store checkpoint.Store) *Executor {
	m := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		m[n.Name()] = n
	}
	return &Executor{
		nodes:    m,
		router:   router,
		envelope: envelope,
		breaker:  breaker,
		store:    store,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (e *Executor) lockFor(threadID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[threadID] = l
	}
	return l
}

// Start loads the latest checkpoint for threadID and resumes from the node
// named by its Next field, or — if none exists — initializes a fresh state
// containing userMessage and enters via the Router. Run emits the full
// event sequence (thread/agent_start/agent_end/handoff/done) over bus and
// checkpoints after every super-step.
func (e *Executor) Start(ctx context.Context, threadID string, userMessage state.Message, bus *events.Bus) (*state.ConversationState, error) {
	return e.StartWithEntry(ctx, threadID, userMessage, RouterNodeName, bus)
}

// StartWithEntry is Start with a caller-chosen START node for a fresh
// thread (ignored on resume, since a resumed thread always continues from
// its own checkpointed Next). Hierarchical runs pass SupervisorNodeName so
// the Supervisor produces the SubTask list before anything is routed.
func (e *Executor) StartWithEntry(ctx context.Context, threadID string, userMessage state.Message, entry string, bus *events.Bus) (*state.ConversationState, error) {
	l := e.lockFor(threadID)
	if !l.TryLock() {
		return nil, ErrThreadBusy
	}
	defer l.Unlock()

	st, err := e.store.Latest(ctx, threadID)
	if err != nil {
		if !errors.Is(err, checkpoint.ErrNotFound) {
			return nil, err
		}
		st = state.New(threadID)
		st.Messages = append(st.Messages, userMessage)
		bus.Publish(events.TypeThread, "", nil)
		st.Next = entry
	}

	return e.run(ctx, st, bus)
}

// run drives the super-step loop starting from st.Next until a FINISH
// decision is reached or ctx is cancelled.
func (e *Executor) run(ctx context.Context, st *state.ConversationState, bus *events.Bus) (*state.ConversationState, error) {
	current := st.Next
	if current == "" {
		current = RouterNodeName
	}

	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		if current == RouterNodeName {
			delta, err := e.router.Run(ctx, st)
			if err != nil {
				bus.Publish(events.TypeError, RouterNodeName, events.ErrorData{Message: err.Error()})
				return st, err
			}
			next := st.Next
			st = state.Merge(st, delta)
			if err := e.store.Save(ctx, st); err != nil {
				return st, err
			}

			if st.Next == state.FinishSentinel {
				bus.Publish(events.TypeDone, "", nil)
				return st, nil
			}
			if st.Next != next && next != "" {
				bus.Publish(events.TypeHandoff, "", events.HandoffData{From: next, To: st.Next})
			}
			current = st.Next
			continue
		}

		node, ok := e.nodes[current]
		if !ok {
			return st, fmt.Errorf("graph: unknown node %q", current)
		}

		bus.Publish(events.TypeAgentStart, current, nil)

		stepCtx := ctx
		var span trace.Span
		if e.tracer != nil {
			stepCtx, span = e.tracer.StartSpan(ctx, "super_step."+current, trace.SpanKindInternal)
		}
		delta, err := node.Run(stepCtx, st)
		if span != nil {
			if err != nil {
				recordSpanError(span, err)
			}
			span.End()
		}
		if err != nil {
			e.breaker.RecordFailure(current, time.Now())
			bus.Publish(events.TypeError, current, events.ErrorData{Message: err.Error()})
			return st, err
		}
		e.breaker.RecordSuccess(current)

		explicitDecision := delta.Decision.Agent != ""
		st = e.applyRetry(current, delta, st)
		if err := e.store.Save(ctx, st); err != nil {
			return st, err
		}
		bus.Publish(events.TypeAgentEnd, current, nil)

		if current == BuilderNodeName && st.NeedsRetry {
			if err := e.envelope.CheckRetry(current, st.AgentRetries[current]); err != nil {
				// Retry ceiling hit: surrender, reset the counter, yield to
				// the Router exactly as the self-loop edge specifies.
				st = state.Merge(st, state.Delta{
					NewMessages: []state.Message{
						state.NewMessage(current, state.RoleAssistant, "retry ceiling exceeded, surrendering to router", time.Now()),
					},
					AgentRetryDelta: map[string]int{current: 0},
					NeedsRetry:      boolPtr(false),
					ClearError:      true,
				})
				if err := e.store.Save(ctx, st); err != nil {
					return st, err
				}
				current = RouterNodeName
				continue
			}
			current = BuilderNodeName
			continue
		}

		// Hierarchical subgraph nodes (Supervisor/Dispatcher/Synthesizer)
		// route among themselves explicitly via their own Decision; every
		// other agent node always falls back to the Router.
		if explicitDecision {
			if st.Next == state.FinishSentinel {
				bus.Publish(events.TypeDone, "", nil)
				return st, nil
			}
			current = st.Next
			continue
		}

		current = RouterNodeName
	}
}

// applyRetry merges delta and, for the Builder's self-loop, bumps its retry
// counter whenever NeedsRetry is true (the self-loop's only side effect on
// AgentRetries; every other node's retries stay untouched since only
// Builder has a self-loop edge).
func (e *Executor) applyRetry(nodeName string, delta state.Delta, st *state.ConversationState) *state.ConversationState {
	merged := state.Merge(st, delta)
	if nodeName == BuilderNodeName && merged.NeedsRetry {
		merged = state.Merge(merged, state.Delta{
			AgentRetryDelta: map[string]int{nodeName: st.AgentRetries[nodeName] + 1},
		})
	}
	return merged
}

// RunOnce runs a single named node directly, bypassing the Router entirely.
// It backs the `/workflow/{phase}` endpoints, which run one representative
// agent for a spec phase (strategy/design/build/ship) without routing: load
// or create state, invoke nodeName once, merge and checkpoint its Delta,
// and return — there is no handoff, no retry loop, and no FINISH sentinel
// to chase, since a one-node run has nothing to hand off to.
func (e *Executor) RunOnce(ctx context.Context, threadID string, userMessage state.Message, nodeName string, bus *events.Bus) (*state.ConversationState, error) {
	l := e.lockFor(threadID)
	if !l.TryLock() {
		return nil, ErrThreadBusy
	}
	defer l.Unlock()

	node, ok := e.nodes[nodeName]
	if !ok {
		return nil, fmt.Errorf("graph: unknown node %q", nodeName)
	}

	st, err := e.store.Latest(ctx, threadID)
	if err != nil {
		if !errors.Is(err, checkpoint.ErrNotFound) {
			return nil, err
		}
		st = state.New(threadID)
		st.Messages = append(st.Messages, userMessage)
		bus.Publish(events.TypeThread, "", nil)
	}

	bus.Publish(events.TypeAgentStart, nodeName, nil)
	delta, err := node.Run(ctx, st)
	if err != nil {
		e.breaker.RecordFailure(nodeName, time.Now())
		bus.Publish(events.TypeError, nodeName, events.ErrorData{Message: err.Error()})
		return st, err
	}
	e.breaker.RecordSuccess(nodeName)

	st = e.applyRetry(nodeName, delta, st)
	if err := e.store.Save(ctx, st); err != nil {
		return st, err
	}
	bus.Publish(events.TypeAgentEnd, nodeName, nil)
	bus.Publish(events.TypeDone, "", nil)
	return st, nil
}

func boolPtr(b bool) *bool { return &b }
