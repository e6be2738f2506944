package checkpoint

import (
	"context"
	"sync"

	"github.com/forgeflow/orchestrator/internal/state"
)

// MemoryStore is an in-process Store used in tests and for the keyword-only
// (no persistence) deployment mode.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string][]*state.ConversationState // thread_id -> steps ascending
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[string][]*state.ConversationState{}}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, s *state.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ThreadID] = append(m.rows[s.ThreadID], s.Clone())
	return nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(ctx context.Context, threadID string) (*state.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps := m.rows[threadID]
	if len(steps) == 0 {
		return nil, ErrNotFound
	}
	return steps[len(steps)-1].Clone(), nil
}

// History implements Store.
func (m *MemoryStore) History(ctx context.Context, threadID string) ([]*state.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	steps := m.rows[threadID]
	out := make([]*state.ConversationState, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
