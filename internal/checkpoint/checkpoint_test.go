package checkpoint

import (
	"context"
	"testing"

	"github.com/forgeflow/orchestrator/internal/state"
)

func testStores(t *testing.T) map[string]Store {
	sqliteStore, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestSaveAndLatestRoundTrips(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := state.New("thread-1")
			s = state.Merge(s, state.Delta{NewMessages: []state.Message{{ID: "m1", Content: "hi"}}, Contributor: "builder"})

			if err := store.Save(ctx, s); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := store.Latest(ctx, "thread-1")
			if err != nil {
				t.Fatalf("Latest: %v", err)
			}
			if len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
				t.Fatalf("got messages %+v", got.Messages)
			}
			if _, ok := got.Contributors["builder"]; !ok {
				t.Fatalf("expected contributor 'builder' to round-trip, got %+v", got.Contributors)
			}
		})
	}
}

func TestLatestReturnsMostRecentStep(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := state.New("thread-2")
			s = state.Merge(s, state.Delta{IncrementTurn: true})
			if err := store.Save(ctx, s); err != nil {
				t.Fatal(err)
			}
			s = state.Merge(s, state.Delta{IncrementTurn: true})
			if err := store.Save(ctx, s); err != nil {
				t.Fatal(err)
			}

			got, err := store.Latest(ctx, "thread-2")
			if err != nil {
				t.Fatal(err)
			}
			if got.Step != 2 {
				t.Fatalf("Step = %d, want 2", got.Step)
			}
		})
	}
}

func TestLatestReturnsNotFoundForUnknownThread(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Latest(context.Background(), "nope"); err != ErrNotFound {
				t.Fatalf("got %v, want ErrNotFound", err)
			}
		})
	}
}

func TestHistoryReturnsAscendingSteps(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := state.New("thread-3")
			for i := 0; i < 3; i++ {
				s = state.Merge(s, state.Delta{IncrementTurn: true})
				if err := store.Save(ctx, s); err != nil {
					t.Fatal(err)
				}
			}
			hist, err := store.History(ctx, "thread-3")
			if err != nil {
				t.Fatal(err)
			}
			if len(hist) != 3 {
				t.Fatalf("got %d checkpoints, want 3", len(hist))
			}
			for i, h := range hist {
				if h.Step != i+1 {
					t.Errorf("hist[%d].Step = %d, want %d", i, h.Step, i+1)
				}
			}
		})
	}
}
