// Package checkpoint persists one ConversationState row per graph
// super-step, keyed by (thread_id, step), so a run can be resumed from its
// latest checkpoint after a crash or an intentional pause (e.g. awaiting
// human approval).
package checkpoint

import (
	"context"

	"github.com/forgeflow/orchestrator/internal/state"
)

// Store is the checkpoint persistence contract. Implementations must be
// safe for concurrent use across threads (but not across steps of the same
// thread — the Graph Executor already serializes those with its per-thread
// lock).
type Store interface {
	// Save writes a new checkpoint row for s at its current Step.
	Save(ctx context.Context, s *state.ConversationState) error
	// Latest returns the highest-step checkpoint for threadID, or
	// ErrNotFound if the thread has no checkpoints.
	Latest(ctx context.Context, threadID string) (*state.ConversationState, error)
	// History returns every checkpoint for threadID in ascending step order.
	History(ctx context.Context, threadID string) ([]*state.ConversationState, error)
	// Close releases any underlying resources.
	Close() error
}

// ErrNotFound is returned when a thread has no checkpoints.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "checkpoint: thread not found" }
