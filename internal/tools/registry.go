// Package tools adapts the workspace-sandboxed file/exec/websearch tools
// (internal/tools/files, internal/tools/exec, internal/tools/websearch) to
// the orchestrator's tool-calling loop, and defines the release-phase
// tools (run_tests, git_commit, open_pr) the spec adds beyond the teacher's
// tool set.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/forgeflow/orchestrator/internal/agent"
	"github.com/forgeflow/orchestrator/internal/llm"
)

// Registry holds the tools available to a node's tool-calling loop, keyed
// by name, and allow-lists them per agent per the agent manifest's Tools
// field.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]agent.Tool
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]agent.Tool{}}
}

// Register adds t, keyed by t.Name(). A later Register with the same name
// replaces the earlier one.
func (r *Registry) Register(t agent.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the named tool, or false if unregistered.
func (r *Registry) Get(name string) (agent.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Specs returns llm.ToolSpec descriptors for the named tools, in the order
// requested. Unknown names are skipped.
func (r *Registry) Specs(names []string) []llm.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.ToolSpec, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		out = append(out, llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	return out
}

// Execute runs the named tool with the given call and converts its result
// to a llm.Message the caller can append to the next turn's conversation.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) llm.Message {
	t, ok := r.Get(call.Name)
	if !ok {
		return toolResultMessage(call.ID, fmt.Sprintf(`{"error":"unknown tool %q"}`, call.Name))
	}

	result, err := t.Execute(ctx, call.Input)
	if err != nil {
		return toolResultMessage(call.ID, fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return toolResultMessage(call.ID, result.Content)
}

func toolResultMessage(callID, content string) llm.Message {
	payload, err := json.Marshal(map[string]string{"tool_call_id": callID, "content": content})
	if err != nil {
		return llm.Message{Role: llm.RoleTool, Content: content}
	}
	return llm.Message{Role: llm.RoleTool, Content: string(payload)}
}
