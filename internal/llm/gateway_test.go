package llm

import (
	"context"
	"sync/atomic"
	"testing"
)

type fakeProvider struct {
	name  string
	calls atomic.Int32
	fn    func(attempt int) (*Response, error)
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	n := int(f.calls.Add(1))
	return f.fn(n)
}

func TestGatewayRetriesRateLimited(t *testing.T) {
	p := &fakeProvider{name: "flaky", fn: func(attempt int) (*Response, error) {
		if attempt < 2 {
			return nil, &Error{Kind: FailureRateLimited, Provider: "flaky", Err: errTest}
		}
		return &Response{Text: "ok"}, nil
	}}
	g := NewGateway(p)

	resp, err := g.Complete(context.Background(), "flaky", Request{Mode: ModePlain})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("Text = %q, want ok", resp.Text)
	}
	if p.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", p.calls.Load())
	}
}

func TestGatewayDoesNotRetryUnauthorized(t *testing.T) {
	p := &fakeProvider{name: "bad-key", fn: func(attempt int) (*Response, error) {
		return nil, &Error{Kind: FailureUnauthorized, Provider: "bad-key", Err: errTest}
	}}
	g := NewGateway(p)

	_, err := g.Complete(context.Background(), "bad-key", Request{Mode: ModePlain})
	if err == nil {
		t.Fatal("expected error")
	}
	if p.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on unauthorized)", p.calls.Load())
	}
}

func TestGatewayUnknownProvider(t *testing.T) {
	g := NewGateway()
	if _, err := g.Complete(context.Background(), "nope", Request{}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestGatewayRejectsSchemaViolationStructuredOutput(t *testing.T) {
	p := &fakeProvider{name: "structured", fn: func(attempt int) (*Response, error) {
		return &Response{Text: `{"wrong_field": 1}`}, nil
	}}
	g := NewGateway(p)

	schema := []byte(`{"type":"object","required":["title"],"properties":{"title":{"type":"string"}}}`)
	_, err := g.Complete(context.Background(), "structured", Request{Mode: ModeStructured, Schema: schema})
	if err == nil {
		t.Fatal("expected schema violation error")
	}
}

var errTest = &testErr{"boom"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
