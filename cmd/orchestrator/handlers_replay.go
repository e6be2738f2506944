package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/forgeflow/orchestrator/internal/checkpoint"
	"github.com/forgeflow/orchestrator/internal/config"
	"github.com/forgeflow/orchestrator/internal/observability"
	"github.com/forgeflow/orchestrator/internal/state"
)

// runReplayThread opens the configured checkpoint store, loads threadID's
// full history, and renders it with the same timeline formatter the HTTP
// server's event bus would use for a live run — checkpoints are the only
// durable record of a thread's steps, since the event bus itself is
// ephemeral and has no subscriber once a request completes.
func runReplayThread(ctx context.Context, out io.Writer, configPath, threadID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var store checkpoint.Store
	switch cfg.Checkpoint.Driver {
	case "memory":
		store = checkpoint.NewMemoryStore()
	default:
		store, err = checkpoint.NewSQLiteStore(cfg.Checkpoint.DSN)
		if err != nil {
			return fmt.Errorf("failed to open checkpoint store: %w", err)
		}
	}
	defer store.Close()

	history, err := store.History(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to load thread history: %w", err)
	}
	if len(history) == 0 {
		fmt.Fprintf(out, "no checkpoints found for thread %s\n", threadID)
		return nil
	}

	events := make([]*observability.Event, 0, len(history))
	for _, st := range history {
		events = append(events, checkpointToEvent(threadID, st))
	}

	timeline := observability.BuildTimeline(events)
	fmt.Fprintln(out, observability.FormatTimeline(timeline))
	return nil
}

// checkpointToEvent projects one checkpointed step onto the timeline event
// shape: node id is the step's Next (what it handed off to), timestamp is
// the most recent message's CreatedAt so steps sort in the order they ran.
func checkpointToEvent(threadID string, st *state.ConversationState) *observability.Event {
	ts := time.Time{}
	if n := len(st.Messages); n > 0 {
		ts = st.Messages[n-1].CreatedAt
	}
	eventType := observability.EventTypeNodeEnd
	if st.LastError != "" {
		eventType = observability.EventTypeRunError
	}
	if st.RequiresApproval {
		eventType = observability.EventTypeApprovalReq
	}
	return &observability.Event{
		Type:      eventType,
		Timestamp: ts,
		RunID:     threadID,
		NodeID:    st.Next,
		Name:      fmt.Sprintf("step %d -> %s", st.Step, st.Next),
		Error:     st.LastError,
		Data: map[string]interface{}{
			"phase":           st.Phase,
			"contributors":    st.ContributorList(),
			"approval_status": string(st.ApprovalStatus),
		},
	}
}
