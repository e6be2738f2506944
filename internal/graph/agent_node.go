package graph

import (
	"context"
	"regexp"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/forgeflow/orchestrator/internal/agents"
	"github.com/forgeflow/orchestrator/internal/llm"
	"github.com/forgeflow/orchestrator/internal/state"
	"github.com/forgeflow/orchestrator/internal/tools"
)

// maxToolIterations bounds the AskLLM -> ExecuteTools -> AskLLM loop within
// a single node invocation, independent of the safety envelope's turn/retry
// ceilings (which bound super-steps, not iterations inside one).
const maxToolIterations = 6

// failurePatterns are scanned (case-insensitively) over a turn's aggregated
// tool-result content; a match sets NeedsRetry and records LastError.
var failurePatterns = regexp.MustCompile(`(?i)\b(error|exception|fail(ed|ure)?|type[- ]error|reference[- ]error|not found)\b`)

// AgentNode runs one specialist agent's manifest against the LLM gateway,
// driving a bounded tool-calling loop when the manifest has tools, and
// appends the resulting assistant Message naming the acting agent.
type AgentNode struct {
	manifest    agents.Manifest
	gateway     *llm.Gateway
	provider    string
	model       string
	tools       *tools.Registry
	concurrency int
	tracer      Tracer
	now         func() time.Time
}

// NewAgentNode builds the node for manifest, dispatching completions to
// provider/model through gateway and resolving any tool calls via registry.
// concurrency bounds how many of a single turn's tool calls run at once
// (values below 1 are treated as 1, i.e. sequential).
func NewAgentNode(manifest agents.Manifest, gateway *llm.Gateway, provider, model string, registry *tools.Registry, concurrency int) *AgentNode {
	return &AgentNode{
		manifest:    manifest,
		gateway:     gateway,
		provider:    provider,
		model:       model,
		tools:       registry,
		concurrency: concurrency,
		now:         time.Now,
	}
}

func (n *AgentNode) Name() string { return n.manifest.Name }

// Run executes one turn for this agent. On success it returns a Delta
// appending exactly one assistant Message (per the conversation-state
// invariant that every successful node invocation names the acting agent),
// plus NeedsRetry/LastError set according to the failure-pattern scan over
// any tool results produced this turn.
func (n *AgentNode) Run(ctx context.Context, st *state.ConversationState) (state.Delta, error) {
	messages := make([]llm.Message, 0, len(st.Messages)+1)
	for _, m := range st.Messages {
		messages = append(messages, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}

	mode := llm.ModePlain
	var specs []llm.ToolSpec
	if len(n.manifest.Tools) > 0 && n.tools != nil {
		specs = n.tools.Specs(n.manifest.Tools)
		if len(specs) > 0 {
			mode = llm.ModeTools
		}
	}

	var sawToolFailure bool
	var lastErr string

	for iter := 0; iter < maxToolIterations; iter++ {
		resp, err := n.gateway.Complete(ctx, n.provider, llm.Request{
			Model:    n.model,
			System:   n.manifest.SystemPrompt,
			Messages: messages,
			Mode:     mode,
			Tools:    specs,
		})
		if err != nil {
			return state.Delta{}, err
		}

		if len(resp.ToolCalls) == 0 {
			delta := state.Delta{
				NewMessages: []state.Message{
					state.NewMessage(n.manifest.Name, state.RoleAssistant, resp.Text, n.now()),
				},
				Contributor: n.manifest.Name,
			}
			if sawToolFailure {
				needsRetry := true
				delta.NeedsRetry = &needsRetry
				delta.LastError = lastErr
			} else {
				clear := false
				delta.NeedsRetry = &clear
				delta.ClearError = true
			}
			return delta, nil
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Text})

		results := make([]llm.Message, len(resp.ToolCalls))
		limit := n.concurrency
		if limit < 1 {
			limit = 1
		}
		var g errgroup.Group
		g.SetLimit(limit)
		for i, call := range resp.ToolCalls {
			i, call := i, call
			g.Go(func() error {
				toolCtx := ctx
				var span trace.Span
				if n.tracer != nil {
					toolCtx, span = n.tracer.StartSpan(ctx, "tool."+call.Name, trace.SpanKindInternal)
				}
				results[i] = n.tools.Execute(toolCtx, call)
				if span != nil {
					span.End()
				}
				return nil
			})
		}
		_ = g.Wait() // n.tools.Execute never returns an error itself; failures surface as tool-result content

		for _, result := range results {
			messages = append(messages, result)
			if failurePatterns.MatchString(result.Content) {
				sawToolFailure = true
				lastErr = result.Content
			}
		}
	}

	// Exhausted the tool-calling budget without a final text answer: surface
	// it as a retryable failure rather than looping forever.
	needsRetry := true
	return state.Delta{
		NewMessages: []state.Message{
			state.NewMessage(n.manifest.Name, state.RoleAssistant, "tool-calling budget exhausted without a final answer", n.now()),
		},
		Contributor: n.manifest.Name,
		NeedsRetry:  &needsRetry,
		LastError:   "tool-calling budget exhausted",
	}, nil
}
