package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeflow/orchestrator/internal/state"
)

// DispatcherNode picks the next pending SubTask and runs its assigned
// worker node, strictly sequentially: one SubTask in flight at a time,
// since ConversationState is a single value threaded through one executor
// per thread id, and concurrent dispatch would need a second accounting
// layer this package doesn't otherwise carry.
type DispatcherNode struct {
	workers map[string]Node
	now     func() time.Time
}

// NewDispatcherNode builds a Dispatcher over the given workers, keyed by
// agent name (the SubTask.AssignedTo value the Supervisor produced).
func NewDispatcherNode(workers map[string]Node) *DispatcherNode {
	return &DispatcherNode{workers: workers, now: time.Now}
}

func (n *DispatcherNode) Name() string { return DispatcherNodeName }

func (n *DispatcherNode) Run(ctx context.Context, st *state.ConversationState) (state.Delta, error) {
	idx := -1
	for i, t := range st.SubTasks {
		if t.Status == state.SubTaskPending {
			idx = i
			break
		}
	}

	if idx == -1 {
		if len(st.SubTasks) == 0 {
			return state.Delta{Decision: state.Decision{Agent: state.FinishSentinel}}, nil
		}
		return state.Delta{Decision: state.Decision{Agent: SynthesizerNodeName}}, nil
	}

	task := st.SubTasks[idx]
	updated := append([]state.SubTask(nil), st.SubTasks...)

	worker, ok := n.workers[task.AssignedTo]
	if !ok {
		updated[idx].Status = state.SubTaskFailed
		updated[idx].Result = fmt.Sprintf("no worker registered for agent %q", task.AssignedTo)
		return state.Delta{SubTasks: updated, Decision: state.Decision{Agent: DispatcherNodeName}}, nil
	}

	sub := st.Clone()
	sub.Messages = append(sub.Messages, state.NewMessage(DispatcherNodeName, state.RoleSystem, task.Description, n.now()))

	delta, err := worker.Run(ctx, sub)
	if err != nil {
		updated[idx].Status = state.SubTaskFailed
		updated[idx].Result = err.Error()
		return state.Delta{SubTasks: updated, Decision: state.Decision{Agent: DispatcherNodeName}}, nil
	}

	result := ""
	if len(delta.NewMessages) > 0 {
		result = delta.NewMessages[len(delta.NewMessages)-1].Content
	}
	updated[idx].Status = state.SubTaskDone
	updated[idx].Result = result

	out := state.Delta{
		SubTasks:    updated,
		NewMessages: delta.NewMessages,
		Contributor: delta.Contributor,
		Decision:    state.Decision{Agent: DispatcherNodeName},
	}
	return out, nil
}
