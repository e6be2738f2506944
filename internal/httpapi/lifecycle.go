package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Start builds the route table and begins serving on cfg.Server.Host:Port.
// Grounded on the teacher's startHTTPServer: plain http.ServeMux, a
// ReadHeaderTimeout'd *http.Server, and a background Serve goroutine that
// swallows only http.ErrServerClosed.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	mux := http.NewServeMux()

	mux.Handle("/metrics/prometheus", promhttp.Handler())
	mux.HandleFunc("/metrics", s.handleMetricsJSON)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/agents", s.handleAgents)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/chat/stream", s.handleChatStream)
	mux.HandleFunc("/workflow/", s.handleWorkflow)
	mux.HandleFunc("/thread/", s.handleThread)
	mux.HandleFunc("/state/", s.handleState)

	handler := s.instrument(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: s.config.Server.ReadHeaderTimeout,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", addr, err)
	}
	s.httpServer = server
	s.httpListener = listener

	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			s.logf(ctx, slog.LevelWarn, "plugin watcher failed to start", "error", err)
		}
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logf(ctx, slog.LevelError, "http server error", "error", err)
		}
	}()

	s.logf(ctx, slog.LevelInfo, "starting http server", "addr", addr)
	return nil
}

// Stop gracefully shuts down the HTTP listener and the checkpoint store.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logf(ctx, slog.LevelWarn, "http server shutdown error", "error", err)
		}
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
