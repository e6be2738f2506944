package llm

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts a span around a gateway call. *observability.Tracer
// satisfies this structurally (see its StartSpan method); internal/llm
// cannot import internal/observability directly since observability
// already depends on internal/llm transitively through internal/router.
type Tracer interface {
	StartSpan(ctx context.Context, name string, kind trace.SpanKind) (context.Context, trace.Span)
}

// SetTracer installs t as the Gateway's span source. A nil Tracer (the
// zero value) leaves Complete untraced.
func (g *Gateway) SetTracer(t Tracer) {
	g.tracer = t
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
