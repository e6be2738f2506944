package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/forgeflow/orchestrator/internal/agent"
	"github.com/forgeflow/orchestrator/internal/tools/exec"
)

// RunTestsTool invokes the project's test command inside the workspace and
// reports pass/fail plus captured output, for the Test Engineer and Builder
// agents.
type RunTestsTool struct {
	manager *exec.Manager
	command string
	timeout time.Duration
}

// NewRunTestsTool builds a RunTestsTool that runs command (defaulting to
// "go test ./...") via manager.
func NewRunTestsTool(manager *exec.Manager, command string) *RunTestsTool {
	if command == "" {
		command = "go test ./..."
	}
	return &RunTestsTool{manager: manager, command: command, timeout: 2 * time.Minute}
}

func (t *RunTestsTool) Name() string        { return "run_tests" }
func (t *RunTestsTool) Description() string { return "Run the project's test suite and report pass/fail with output." }
func (t *RunTestsTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"package":{"type":"string","description":"Optional package path to scope the run."}}}`)
}

func (t *RunTestsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Package string `json:"package"`
	}
	_ = json.Unmarshal(params, &input)

	command := t.command
	if strings.TrimSpace(input.Package) != "" {
		command = fmt.Sprintf("go test %s", input.Package)
	}

	result, err := t.manager.RunCommand(ctx, command, "", nil, "", t.timeout)
	if err != nil {
		return &agent.ToolResult{Content: err.Error(), IsError: true}, nil
	}

	payload, _ := json.Marshal(map[string]any{
		"exit_code": result.ExitCode,
		"stdout":    result.Stdout,
		"stderr":    result.Stderr,
		"passed":    result.ExitCode == 0,
	})
	return &agent.ToolResult{Content: string(payload), IsError: result.ExitCode != 0}, nil
}

// GitCommitTool stages and commits the current workspace changes, for the
// Release Manager agent.
type GitCommitTool struct {
	manager *exec.Manager
}

// NewGitCommitTool builds a GitCommitTool backed by manager.
func NewGitCommitTool(manager *exec.Manager) *GitCommitTool {
	return &GitCommitTool{manager: manager}
}

func (t *GitCommitTool) Name() string        { return "git_commit" }
func (t *GitCommitTool) Description() string { return "Stage all changes and create a git commit with the given message." }
func (t *GitCommitTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["message"],"properties":{"message":{"type":"string"}}}`)
}

func (t *GitCommitTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(params, &input); err != nil || strings.TrimSpace(input.Message) == "" {
		return &agent.ToolResult{Content: "message is required", IsError: true}, nil
	}

	if _, err := t.manager.RunCommand(ctx, "git add -A", "", nil, "", 30*time.Second); err != nil {
		return &agent.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	result, err := t.manager.RunCommand(ctx, fmt.Sprintf("git commit -m %q", input.Message), "", nil, "", 30*time.Second)
	if err != nil {
		return &agent.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return &agent.ToolResult{Content: result.Stdout + result.Stderr, IsError: result.ExitCode != 0}, nil
}

// OpenPRTool opens a pull request for the current branch via the gh CLI,
// for the Release Manager agent.
type OpenPRTool struct {
	manager *exec.Manager
}

// NewOpenPRTool builds an OpenPRTool backed by manager.
func NewOpenPRTool(manager *exec.Manager) *OpenPRTool {
	return &OpenPRTool{manager: manager}
}

func (t *OpenPRTool) Name() string        { return "open_pr" }
func (t *OpenPRTool) Description() string { return "Open a pull request for the current branch." }
func (t *OpenPRTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","required":["title","body"],"properties":{"title":{"type":"string"},"body":{"type":"string"}}}`)
}

func (t *OpenPRTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.Unmarshal(params, &input); err != nil || strings.TrimSpace(input.Title) == "" {
		return &agent.ToolResult{Content: "title is required", IsError: true}, nil
	}

	command := fmt.Sprintf("gh pr create --title %q --body %q", input.Title, input.Body)
	result, err := t.manager.RunCommand(ctx, command, "", nil, "", 30*time.Second)
	if err != nil {
		return &agent.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return &agent.ToolResult{Content: result.Stdout + result.Stderr, IsError: result.ExitCode != 0}, nil
}
