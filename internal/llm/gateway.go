package llm

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/forgeflow/orchestrator/internal/backoff"
)

// Gateway dispatches completion requests to a named set of Providers,
// retrying transient failures with jittered backoff and validating
// structured-mode responses against the caller's schema.
type Gateway struct {
	providers   map[string]Provider
	maxAttempts int
	policy      backoff.BackoffPolicy
	tracer      Tracer
}

// NewGateway builds a Gateway over the given providers, keyed by
// Provider.Name().
func NewGateway(providers ...Provider) *Gateway {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Gateway{
		providers:   m,
		maxAttempts: 3,
		policy:      backoff.DefaultPolicy(),
	}
}

// Provider returns the named provider, or false if unregistered.
func (g *Gateway) Provider(name string) (Provider, bool) {
	p, ok := g.providers[name]
	return p, ok
}

// Complete runs req against providerName. Failures classified as
// FailureTimeout or FailureRateLimited are retried up to maxAttempts with
// jittered backoff; every other failure (including a schema violation on a
// ModeStructured response) is returned immediately. Unclassified errors
// (a plain error the provider adapter didn't wrap) are treated as
// non-retryable.
func (g *Gateway) Complete(ctx context.Context, providerName string, req Request) (*Response, error) {
	p, ok := g.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q", providerName)
	}

	var span trace.Span
	if g.tracer != nil {
		ctx, span = g.tracer.StartSpan(ctx, "llm."+providerName, trace.SpanKindClient)
		defer span.End()
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := p.Complete(ctx, req)
		if err == nil && req.Mode == ModeStructured {
			err = ValidateStructured(req.Schema, []byte(resp.Text))
		}
		if err == nil {
			return resp, nil
		}

		lastErr = err
		kind, retryable := classify(err)
		_ = kind
		if !retryable || attempt == g.maxAttempts {
			if span != nil {
				recordSpanError(span, err)
			}
			return nil, err
		}
		if sleepErr := backoff.SleepWithBackoff(ctx, g.policy, attempt); sleepErr != nil {
			return nil, sleepErr
		}
	}
	if span != nil {
		recordSpanError(span, lastErr)
	}
	return nil, lastErr
}

func classify(err error) (FailureKind, bool) {
	if e, ok := AsError(err); ok {
		return e.Kind, e.IsRetryable()
	}
	return FailureProviderError, false
}
