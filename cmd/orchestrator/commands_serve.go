package main

import "github.com/spf13/cobra"

// buildServeCmd creates the "serve" command that starts the HTTP server.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestrator HTTP server",
		Long: `Start the orchestrator HTTP server.

The server will:
1. Load configuration from the specified file
2. Initialize LLM providers (Anthropic, OpenAI)
3. Load the agent registry (built-in specialists plus any plugin manifests)
4. Open the checkpoint store
5. Serve /chat, /chat/stream, /workflow/{phase}, /thread/{id}, /state/{id},
   /agents, /health, /metrics, and /metrics/prometheus

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		Example: `  orchestrator serve --config orchestrator.yaml
  orchestrator serve --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "orchestrator.yaml", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
