package graph

import (
	"context"

	"github.com/forgeflow/orchestrator/internal/agents"
	"github.com/forgeflow/orchestrator/internal/router"
	"github.com/forgeflow/orchestrator/internal/safety"
	"github.com/forgeflow/orchestrator/internal/state"
)

// RouterNode wraps router.Router as a graph node. It produces no
// user-visible Message; it merges only Next and TurnCount, per the spec's
// rule that routing is itself an agent node but its output is a decision
// record, not a Message.
type RouterNode struct {
	router   *router.Router
	agents   *agents.Registry
	envelope *safety.Envelope
	breaker  *safety.CircuitBreaker
}

// NewRouterNode builds the Router step.
func NewRouterNode(r *router.Router, registry *agents.Registry, envelope *safety.Envelope, breaker *safety.CircuitBreaker) *RouterNode {
	return &RouterNode{router: r, agents: registry, envelope: envelope, breaker: breaker}
}

func (n *RouterNode) Name() string { return RouterNodeName }

// Run checks the turn ceiling first (returning FINISH with no LLM call if
// exceeded), builds the candidate list from agents whose circuit is not
// open, routes, and then re-checks the decided agent's circuit — an unknown
// or circuit-open decision also resolves to FINISH.
func (n *RouterNode) Run(ctx context.Context, st *state.ConversationState) (state.Delta, error) {
	if err := n.envelope.CheckTurn(st.TurnCount); err != nil {
		return state.Delta{Decision: state.Decision{Agent: state.FinishSentinel}}, nil
	}

	candidates := make([]router.Candidate, 0, len(n.agents.All())+1)
	for _, m := range n.agents.All() {
		if n.breaker != nil && !n.breaker.Available(m.Name) {
			continue
		}
		candidates = append(candidates, router.Candidate{Name: m.Name, Description: m.Role})
	}
	// FINISH is always selectable so any fallback level can end the run once
	// the conversation's need has been met, not just the ceiling/circuit
	// tie-break paths below.
	candidates = append(candidates, router.Candidate{Name: state.FinishSentinel, Description: "end the run and return the result to the caller"})

	content := latestContent(st)
	decision := n.router.Route(ctx, content, candidates)

	agent := decision.Agent
	if agent != state.FinishSentinel {
		if _, ok := n.agents.Lookup(agent); !ok {
			agent = state.FinishSentinel
		} else if n.breaker != nil && !n.breaker.Available(agent) {
			agent = state.FinishSentinel
		}
	}

	return state.Delta{
		Decision:      state.Decision{Agent: agent},
		IncrementTurn: true,
	}, nil
}

// latestContent returns the most recent message's content: the newest
// reply (whether from the user or the last agent to run) is what decides
// the next hop, since an agent's own answer can signal the run is done.
func latestContent(st *state.ConversationState) string {
	if len(st.Messages) == 0 {
		return ""
	}
	return st.Messages[len(st.Messages)-1].Content
}
