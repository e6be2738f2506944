package main

import "github.com/spf13/cobra"

// buildReplayThreadCmd creates the "replay-thread" command, which prints a
// thread's checkpoint history as a timeline for debugging.
func buildReplayThreadCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "replay-thread <thread-id>",
		Short: "Print a thread's checkpoint history as a timeline",
		Long: `Loads every checkpoint saved for a thread, in step order, and renders
it as a timeline showing which node ran at each step, what it handed off
to, and where errors or approval gates occurred.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplayThread(cmd.Context(), cmd.OutOrStdout(), configPath, args[0])
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "orchestrator.yaml", "Path to YAML configuration file")
	return cmd
}
