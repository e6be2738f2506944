package state

import "testing"

func TestMergeAppendsMessagesAndArtifacts(t *testing.T) {
	s := New("t1")
	s = Merge(s, Delta{
		NewMessages:  []Message{{ID: "m1", Content: "hi"}},
		NewArtifacts: []Artifact{{ID: "a1", Kind: ArtifactPRD}},
		Contributor:  "product_manager",
	})
	if len(s.Messages) != 1 || len(s.Artifacts) != 1 {
		t.Fatalf("expected 1 message and 1 artifact, got %d/%d", len(s.Messages), len(s.Artifacts))
	}
	if _, ok := s.Contributors["product_manager"]; !ok {
		t.Error("expected product_manager in contributors")
	}

	s = Merge(s, Delta{NewMessages: []Message{{ID: "m2"}}})
	if len(s.Messages) != 2 {
		t.Fatalf("expected append semantics, got %d messages", len(s.Messages))
	}
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	s := New("t1")
	before := len(s.Messages)
	_ = Merge(s, Delta{NewMessages: []Message{{ID: "m1"}}})
	if len(s.Messages) != before {
		t.Error("Merge must not mutate the input state")
	}
}

func TestMergeRetryCountsOverwritePerAgent(t *testing.T) {
	s := New("t1")
	s = Merge(s, Delta{AgentRetryDelta: map[string]int{"builder": 1}})
	s = Merge(s, Delta{AgentRetryDelta: map[string]int{"builder": 2, "architect": 1}})
	if s.AgentRetries["builder"] != 2 {
		t.Errorf("builder retries = %d, want 2", s.AgentRetries["builder"])
	}
	if s.AgentRetries["architect"] != 1 {
		t.Errorf("architect retries = %d, want 1", s.AgentRetries["architect"])
	}
}

func TestMergeDecisionFinishSentinel(t *testing.T) {
	s := New("t1")
	d := Delta{Decision: Decision{Agent: FinishSentinel}}
	if !d.Decision.Finished() {
		t.Fatal("expected Decision.Finished() to be true for FinishSentinel")
	}
	s = Merge(s, d)
	if s.Next != FinishSentinel {
		t.Errorf("Next = %q, want FINISH", s.Next)
	}
}

func TestIncrementTurnAndClearError(t *testing.T) {
	s := New("t1")
	s = Merge(s, Delta{LastError: "boom", IncrementTurn: true})
	if s.TurnCount != 1 || s.LastError != "boom" {
		t.Fatalf("got turn=%d err=%q", s.TurnCount, s.LastError)
	}
	s = Merge(s, Delta{ClearError: true, IncrementTurn: true})
	if s.TurnCount != 2 || s.LastError != "" {
		t.Fatalf("got turn=%d err=%q", s.TurnCount, s.LastError)
	}
}
