package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forgeflow/orchestrator/internal/state"
)

// SynthesizerNode aggregates every SubTask's result into
// AggregatedResults once the Dispatcher has run them all to a terminal
// status (done or failed), then ends the run.
type SynthesizerNode struct {
	now func() time.Time
}

// NewSynthesizerNode builds the Synthesizer step.
func NewSynthesizerNode() *SynthesizerNode {
	return &SynthesizerNode{now: time.Now}
}

func (n *SynthesizerNode) Name() string { return SynthesizerNodeName }

func (n *SynthesizerNode) Run(ctx context.Context, st *state.ConversationState) (state.Delta, error) {
	var b strings.Builder
	for _, t := range st.SubTasks {
		fmt.Fprintf(&b, "[%s] %s (%s): %s\n", t.Status, t.AssignedTo, t.ID, t.Result)
	}
	aggregated := b.String()

	return state.Delta{
		NewMessages: []state.Message{
			state.NewMessage(SynthesizerNodeName, state.RoleAssistant, aggregated, n.now()),
		},
		Contributor:       SynthesizerNodeName,
		AggregatedResults: aggregated,
		Decision:          state.Decision{Agent: state.FinishSentinel},
	}, nil
}
