// Package main provides the CLI entry point for the orchestrator, a
// multi-agent LLM orchestration server.
//
// orchestrator routes a single conversation thread across a registry of
// specialist agents (product manager, designer, builder, release manager,
// and others), checkpointing state after every super-step and exposing the
// run over HTTP as both a synchronous call and a Server-Sent Events stream.
//
// # Basic Usage
//
// Start the server:
//
//	orchestrator serve --config orchestrator.yaml
//
// List the registered agents:
//
//	orchestrator agents list --config orchestrator.yaml
//
// Inspect a thread's checkpoint history:
//
//	orchestrator replay-thread <thread-id> --config orchestrator.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main so tests can exercise it without os.Exit.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "orchestrator - multi-agent LLM orchestration server",
		Long: `orchestrator routes conversation threads across a registry of
specialist agents, checkpointing state after every super-step.

Agent roles: product manager, designer, builder, release manager, and
supporting specialists reachable via handoff or supervisor dispatch.
LLM providers: Anthropic (primary), OpenAI (secondary fallback).`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildAgentsCmd(),
		buildReplayThreadCmd(),
	)

	return rootCmd
}
