package router

import (
	"context"
	"testing"

	"github.com/forgeflow/orchestrator/internal/llm"
)

type fakeProvider struct {
	name string
	fn   func(req llm.Request) (*llm.Response, error)
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f.fn(req)
}

type countingCounter struct {
	levels []Level
}

func (c *countingCounter) ObserveLevel(level Level, agent string) {
	c.levels = append(c.levels, level)
}

var candidates = []Candidate{
	{Name: "builder", Description: "implements code"},
	{Name: "security", Description: "reviews vulnerabilities"},
}

func TestRouteUsesL0WhenPrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "anthropic", fn: func(req llm.Request) (*llm.Response, error) {
		return &llm.Response{Text: `{"agent":"security","confidence":0.9}`}, nil
	}}
	gw := llm.NewGateway(primary)
	counter := &countingCounter{}
	r := New(Config{Gateway: gw, PrimaryProvider: "anthropic", Counter: counter})

	d := r.Route(context.Background(), "please check for vulnerabilities", candidates)
	if d.Agent != "security" || d.Level != L0Structured {
		t.Fatalf("got %+v", d)
	}
	if len(counter.levels) != 1 || counter.levels[0] != L0Structured {
		t.Errorf("counter = %v", counter.levels)
	}
}

func TestRouteFallsBackToL3WhenNoGateway(t *testing.T) {
	r := New(Config{KeywordRules: map[string][]string{
		"security": {"vulnerability", "cve"},
	}})
	d := r.Route(context.Background(), "found a CVE in the dependency", candidates)
	if d.Agent != "security" || d.Level != L3Keyword {
		t.Fatalf("got %+v", d)
	}
}

func TestRouteL3DefaultsToFirstCandidateWithNoKeywordMatch(t *testing.T) {
	r := New(Config{})
	d := r.Route(context.Background(), "something unrelated entirely", candidates)
	if d.Agent != candidates[0].Name {
		t.Fatalf("got agent %q, want default %q", d.Agent, candidates[0].Name)
	}
}

func TestRouteFallsThroughToL2OnInvalidPrimaryJSON(t *testing.T) {
	primary := &fakeProvider{name: "anthropic", fn: func(req llm.Request) (*llm.Response, error) {
		return &llm.Response{Text: "not json at all"}, nil
	}}
	secondary := &fakeProvider{name: "openai", fn: func(req llm.Request) (*llm.Response, error) {
		return &llm.Response{Text: `{"agent":"builder","confidence":0.5}`}, nil
	}}
	gw := llm.NewGateway(primary, secondary)
	r := New(Config{Gateway: gw, PrimaryProvider: "anthropic", SecondaryProvider: "openai"})

	d := r.Route(context.Background(), "implement the login form", candidates)
	if d.Agent != "builder" || d.Level != L2StructuredSecondary {
		t.Fatalf("got %+v", d)
	}
}

func TestLevelStringIsStable(t *testing.T) {
	for _, l := range []Level{L0Structured, L1PlainJSON, L2StructuredSecondary, L3Keyword} {
		if l.String() == "unknown" {
			t.Errorf("Level %d stringified to unknown", l)
		}
	}
}
