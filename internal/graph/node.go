// Package graph implements the checkpointed graph executor: a static node
// map (Router, one node per registered agent, an implicit END), conditional
// edges encoded as executor logic rather than data, and a super-step loop
// of select → run → merge → checkpoint → emit. Builder is the only node
// with a self-loop edge; a parallel hierarchical Supervisor/Dispatcher/
// Synthesizer subgraph is available for multi-subtask runs.
package graph

import (
	"context"

	"github.com/forgeflow/orchestrator/internal/state"
)

// BuilderNodeName is the only agent node with a self-loop edge: it re-enters
// itself while its handler reports NeedsRetry, bounded by the safety
// envelope's per-agent retry ceiling.
const BuilderNodeName = "builder"

// RouterNodeName is the reserved name of the routing node.
const RouterNodeName = "router"

// Hierarchical subgraph node names. Supervisor produces the SubTask list,
// Dispatcher strictly-sequentially runs each pending SubTask's assigned
// worker, and Synthesizer aggregates results once every SubTask is
// terminal. These three route among themselves via explicit Decisions
// rather than falling back through the Router on every hop.
const (
	SupervisorNodeName  = "supervisor"
	DispatcherNodeName  = "dispatcher"
	SynthesizerNodeName = "synthesizer"
)

// Node is one vertex in the graph: a handler that reads the current state
// and returns a Delta for the executor to merge. Nodes never mutate state
// directly.
type Node interface {
	Name() string
	Run(ctx context.Context, st *state.ConversationState) (state.Delta, error)
}

// NodeFunc adapts a function to the Node interface for nodes that don't
// need their own type (used by tests and simple stand-ins).
type NodeFunc struct {
	NodeName string
	Fn       func(ctx context.Context, st *state.ConversationState) (state.Delta, error)
}

func (f NodeFunc) Name() string { return f.NodeName }

func (f NodeFunc) Run(ctx context.Context, st *state.ConversationState) (state.Delta, error) {
	return f.Fn(ctx, st)
}
