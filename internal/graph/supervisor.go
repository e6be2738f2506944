package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/forgeflow/orchestrator/internal/agents"
	"github.com/forgeflow/orchestrator/internal/llm"
	"github.com/forgeflow/orchestrator/internal/state"
)

var supervisorSchema = json.RawMessage(`{
  "type": "object",
  "required": ["sub_tasks"],
  "properties": {
    "sub_tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["description", "assigned_to"],
        "properties": {
          "description": {"type": "string"},
          "assigned_to": {"type": "string"}
        }
      }
    }
  }
}`)

type supervisorOutput struct {
	SubTasks []struct {
		Description string `json:"description"`
		AssignedTo  string `json:"assigned_to"`
	} `json:"sub_tasks"`
}

// SupervisorNode runs the ProductManager manifest in supervisor_mode,
// decomposing the request into an ordered SubTask list for the Dispatcher.
// An empty list falls straight through to END, per spec.
type SupervisorNode struct {
	manifest agents.Manifest
	gateway  *llm.Gateway
	provider string
	model    string
	now      func() time.Time
}

// NewSupervisorNode builds the Supervisor step from the product_manager
// manifest.
func NewSupervisorNode(manifest agents.Manifest, gateway *llm.Gateway, provider, model string) *SupervisorNode {
	return &SupervisorNode{manifest: manifest, gateway: gateway, provider: provider, model: model, now: time.Now}
}

func (n *SupervisorNode) Name() string { return SupervisorNodeName }

func (n *SupervisorNode) Run(ctx context.Context, st *state.ConversationState) (state.Delta, error) {
	messages := make([]llm.Message, 0, len(st.Messages))
	for _, m := range st.Messages {
		messages = append(messages, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}

	resp, err := n.gateway.Complete(ctx, n.provider, llm.Request{
		Model:    n.model,
		System:   n.manifest.SystemPrompt + "\nDecompose the request into an ordered list of sub-tasks, each assigned to one specialist agent by name.",
		Messages: messages,
		Mode:     llm.ModeStructured,
		Schema:   supervisorSchema,
	})
	if err != nil {
		return state.Delta{}, err
	}

	var out supervisorOutput
	if err := json.Unmarshal([]byte(resp.Text), &out); err != nil {
		return state.Delta{}, fmt.Errorf("graph: supervisor output did not parse: %w", err)
	}

	subTasks := make([]state.SubTask, 0, len(out.SubTasks))
	for _, t := range out.SubTasks {
		subTasks = append(subTasks, state.SubTask{
			ID:          uuid.NewString(),
			Description: t.Description,
			AssignedTo:  t.AssignedTo,
			Status:      state.SubTaskPending,
		})
	}

	next := DispatcherNodeName
	if len(subTasks) == 0 {
		next = state.FinishSentinel
	}

	supervisorMode := true
	return state.Delta{
		SupervisorMode: &supervisorMode,
		SubTasks:       subTasks,
		Decision:       state.Decision{Agent: next},
	}, nil
}
