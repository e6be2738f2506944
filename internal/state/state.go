// Package state defines the conversation state that flows through the graph
// executor: messages, artifacts, sub-tasks, and the append/overwrite rules
// used to merge a node's delta back into the authoritative state.
package state

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// FinishSentinel is the Next value that ends a run.
const FinishSentinel = "FINISH"

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one turn in the append-only conversation log.
type Message struct {
	ID        string    `json:"id"`
	Agent     string    `json:"agent,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage builds a Message with a fresh id and timestamp.
func NewMessage(agent string, role Role, content string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Agent:     agent,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
}

// ArtifactKind enumerates the structured-output types agents can produce.
type ArtifactKind string

const (
	ArtifactPRD             ArtifactKind = "prd"
	ArtifactTechPlan        ArtifactKind = "tech_plan"
	ArtifactSecurityReview  ArtifactKind = "security_review"
	ArtifactCodeReview      ArtifactKind = "code_review"
	ArtifactTestPlan        ArtifactKind = "test_plan"
	ArtifactGeneric         ArtifactKind = "generic"
)

// Artifact is a structured-output contribution from an agent, appended to
// the conversation's artifact list. Payload holds the kind-specific body;
// callers unmarshal it according to Kind.
type Artifact struct {
	ID        string          `json:"id"`
	Kind      ArtifactKind    `json:"kind"`
	Agent     string          `json:"agent"`
	Title     string          `json:"title"`
	Payload   any             `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewArtifact builds an Artifact with a fresh id.
func NewArtifact(kind ArtifactKind, agent, title string, payload any, now time.Time) Artifact {
	return Artifact{
		ID:        uuid.NewString(),
		Kind:      kind,
		Agent:     agent,
		Title:     title,
		Payload:   payload,
		CreatedAt: now,
	}
}

// SubTaskStatus tracks a hierarchical sub-task's lifecycle.
type SubTaskStatus string

const (
	SubTaskPending    SubTaskStatus = "pending"
	SubTaskInProgress SubTaskStatus = "in_progress"
	SubTaskDone       SubTaskStatus = "done"
	SubTaskFailed     SubTaskStatus = "failed"
)

// SubTask is one unit of work dispatched by a Supervisor in hierarchical mode.
type SubTask struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	AssignedTo  string        `json:"assigned_to"`
	Status      SubTaskStatus `json:"status"`
	Result      string        `json:"result,omitempty"`
}

// ApprovalStatus tracks the human-in-the-loop gate.
type ApprovalStatus string

const (
	ApprovalNotRequired ApprovalStatus = "not_required"
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalGranted     ApprovalStatus = "granted"
	ApprovalDenied      ApprovalStatus = "denied"
)

// ConversationState is the single authoritative record the graph executor
// checkpoints after every super-step. Treat it as immutable by convention:
// nodes never mutate it directly, they return a Delta that the executor
// merges via Merge.
type ConversationState struct {
	ThreadID string `json:"thread_id"`

	Messages     []Message  `json:"messages"`
	Artifacts    []Artifact `json:"artifacts"`
	Contributors map[string]struct{} `json:"-"`

	Next string `json:"next"`

	TurnCount    int            `json:"turn_count"`
	AgentRetries map[string]int `json:"agent_retries"`
	LastError    string         `json:"last_error,omitempty"`
	NeedsRetry   bool           `json:"needs_retry"`

	// Hierarchical mode.
	SupervisorMode    bool      `json:"supervisor_mode"`
	SubTasks          []SubTask `json:"sub_tasks,omitempty"`
	AggregatedResults string    `json:"aggregated_results,omitempty"`
	ParentTaskID      string    `json:"parent_task_id,omitempty"`

	// Human-in-the-loop.
	Phase            string         `json:"phase,omitempty"`
	ApprovalStatus   ApprovalStatus `json:"approval_status,omitempty"`
	RequiresApproval bool           `json:"requires_approval"`

	Step int `json:"step"`
}

// conversationStateJSON mirrors ConversationState for serialization,
// representing Contributors as a sorted slice since map[string]struct{}
// round-trips through encoding/json awkwardly.
type conversationStateJSON struct {
	ThreadID string `json:"thread_id"`

	Messages     []Message  `json:"messages"`
	Artifacts    []Artifact `json:"artifacts"`
	Contributors []string   `json:"contributors"`

	Next string `json:"next"`

	TurnCount    int            `json:"turn_count"`
	AgentRetries map[string]int `json:"agent_retries"`
	LastError    string         `json:"last_error,omitempty"`
	NeedsRetry   bool           `json:"needs_retry"`

	SupervisorMode    bool      `json:"supervisor_mode"`
	SubTasks          []SubTask `json:"sub_tasks,omitempty"`
	AggregatedResults string    `json:"aggregated_results,omitempty"`
	ParentTaskID      string    `json:"parent_task_id,omitempty"`

	Phase            string         `json:"phase,omitempty"`
	ApprovalStatus   ApprovalStatus `json:"approval_status,omitempty"`
	RequiresApproval bool           `json:"requires_approval"`

	Step int `json:"step"`
}

// MarshalJSON implements json.Marshaler, serializing Contributors as a
// sorted slice.
func (s ConversationState) MarshalJSON() ([]byte, error) {
	contributors := make([]string, 0, len(s.Contributors))
	for name := range s.Contributors {
		contributors = append(contributors, name)
	}
	sort.Strings(contributors)

	return json.Marshal(conversationStateJSON{
		ThreadID:          s.ThreadID,
		Messages:          s.Messages,
		Artifacts:         s.Artifacts,
		Contributors:      contributors,
		Next:              s.Next,
		TurnCount:         s.TurnCount,
		AgentRetries:      s.AgentRetries,
		LastError:         s.LastError,
		NeedsRetry:        s.NeedsRetry,
		SupervisorMode:    s.SupervisorMode,
		SubTasks:          s.SubTasks,
		AggregatedResults: s.AggregatedResults,
		ParentTaskID:      s.ParentTaskID,
		Phase:             s.Phase,
		ApprovalStatus:    s.ApprovalStatus,
		RequiresApproval:  s.RequiresApproval,
		Step:              s.Step,
	})
}

// UnmarshalJSON implements json.Unmarshaler, rebuilding Contributors from
// its serialized slice form.
func (s *ConversationState) UnmarshalJSON(data []byte) error {
	var aux conversationStateJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ThreadID = aux.ThreadID
	s.Messages = aux.Messages
	s.Artifacts = aux.Artifacts
	s.Contributors = make(map[string]struct{}, len(aux.Contributors))
	for _, name := range aux.Contributors {
		s.Contributors[name] = struct{}{}
	}
	s.Next = aux.Next
	s.TurnCount = aux.TurnCount
	s.AgentRetries = aux.AgentRetries
	s.LastError = aux.LastError
	s.NeedsRetry = aux.NeedsRetry
	s.SupervisorMode = aux.SupervisorMode
	s.SubTasks = aux.SubTasks
	s.AggregatedResults = aux.AggregatedResults
	s.ParentTaskID = aux.ParentTaskID
	s.Phase = aux.Phase
	s.ApprovalStatus = aux.ApprovalStatus
	s.RequiresApproval = aux.RequiresApproval
	s.Step = aux.Step
	return nil
}

// New creates an empty ConversationState for a new thread.
func New(threadID string) *ConversationState {
	return &ConversationState{
		ThreadID:     threadID,
		Contributors: map[string]struct{}{},
		AgentRetries: map[string]int{},
		ApprovalStatus: ApprovalNotRequired,
	}
}

// ContributorList returns the contributor set as a sorted-by-insertion slice.
// Order is not guaranteed; callers needing determinism should sort.
func (s *ConversationState) ContributorList() []string {
	out := make([]string, 0, len(s.Contributors))
	for name := range s.Contributors {
		out = append(out, name)
	}
	return out
}

// Clone returns a deep-enough copy of s for safe concurrent reads (e.g. to
// hand to an SSE snapshot) while a new super-step is being computed.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Artifacts = append([]Artifact(nil), s.Artifacts...)
	out.SubTasks = append([]SubTask(nil), s.SubTasks...)
	out.Contributors = make(map[string]struct{}, len(s.Contributors))
	for k := range s.Contributors {
		out.Contributors[k] = struct{}{}
	}
	out.AgentRetries = make(map[string]int, len(s.AgentRetries))
	for k, v := range s.AgentRetries {
		out.AgentRetries[k] = v
	}
	return &out
}
