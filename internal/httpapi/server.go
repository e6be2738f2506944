// Package httpapi implements the orchestrator's HTTP surface: the /chat,
// /chat/stream, /workflow/{phase}, /thread/{id}, /state/{id}, /agents,
// /health, /metrics and /metrics/prometheus endpoints.
//
// Related functionality is organized in separate files:
//   - build.go: wires providers, nodes and the Executor from config
//   - lifecycle.go: HTTP listener startup and graceful shutdown
//   - middleware.go: request logging and Prometheus instrumentation
//   - handlers_*.go: one file per endpoint group
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/forgeflow/orchestrator/internal/agents"
	"github.com/forgeflow/orchestrator/internal/checkpoint"
	"github.com/forgeflow/orchestrator/internal/config"
	"github.com/forgeflow/orchestrator/internal/events"
	"github.com/forgeflow/orchestrator/internal/graph"
	"github.com/forgeflow/orchestrator/internal/llm"
	"github.com/forgeflow/orchestrator/internal/observability"
	"github.com/forgeflow/orchestrator/internal/safety"
	"github.com/forgeflow/orchestrator/internal/tools"
)

// Server is the orchestrator's HTTP server: it owns the wired graph
// executor and every dependency the handlers need, and mounts the full
// route table over a single *http.Server.
type Server struct {
	config     *config.Config
	configPath string
	logger     *observability.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer

	agents   *agents.Registry
	tools    *tools.Registry
	gateway  *llm.Gateway
	envelope *safety.Envelope
	breaker  *safety.CircuitBreaker
	store    checkpoint.Store
	executor *graph.Executor

	phaseEntry map[string]string // "strategy"|"design"|"build"|"ship" -> node name

	// busyGroup collapses concurrent requests against the same thread id
	// so a second caller fails fast with ErrThreadBusy instead of blocking
	// on the Executor's per-thread lock.
	busyGroup singleflight.Group

	httpServer   *http.Server
	httpListener net.Listener
	startTime    time.Time

	watcher *agents.Watcher
}

// New builds a Server from cfg, wiring LLM providers, the tool registry,
// every agent node (plus the hierarchical Supervisor/Dispatcher/Synthesizer
// trio), the Router, the safety envelope/circuit breaker, the checkpoint
// store, and the graph Executor — grounded on the teacher's
// gateway.NewManagedServer construction sequence (config -> providers ->
// runtime -> server). tracer may be nil, in which case spans are skipped
// everywhere they'd otherwise be recorded.
func New(cfg *config.Config, configPath string, logger *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) (*Server, error) {
	s := &Server{
		config:     cfg,
		configPath: configPath,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		startTime:  time.Now(),
		phaseEntry: map[string]string{
			"strategy": "product_manager",
			"design":   "designer",
			"build":    "builder",
			"ship":     "release_manager",
		},
	}

	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) logf(ctx context.Context, level slog.Level, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	switch level {
	case slog.LevelDebug:
		s.logger.Debug(ctx, msg, args...)
	case slog.LevelWarn:
		s.logger.Warn(ctx, msg, args...)
	case slog.LevelError:
		s.logger.Error(ctx, msg, args...)
	default:
		s.logger.Info(ctx, msg, args...)
	}
}

// drainBus discards every event from b until it closes, so a caller that
// doesn't need the event stream (the synchronous /chat and /workflow
// handlers) never blocks the Executor's high-priority lane on a channel
// nobody is reading.
func drainBus(b *events.Bus) {
	go func() {
		for range b.Out() {
		}
	}()
}
