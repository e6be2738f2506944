package graph

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts a span around one super-step or tool call.
// *observability.Tracer satisfies this structurally (see its StartSpan
// method); internal/graph cannot import internal/observability directly
// since observability depends on internal/router, which this package also
// imports, and observability depends on internal/llm transitively.
type Tracer interface {
	StartSpan(ctx context.Context, name string, kind trace.SpanKind) (context.Context, trace.Span)
}

// SetTracer installs t as the Executor's span source for super-steps. A
// nil Tracer (the zero value) leaves Run untraced.
func (e *Executor) SetTracer(t Tracer) {
	e.tracer = t
}

// SetTracer installs t as this node's span source for its tool calls. A
// nil Tracer (the zero value) leaves tool execution untraced.
func (n *AgentNode) SetTracer(t Tracer) {
	n.tracer = t
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
