package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/forgeflow/orchestrator/internal/agents"
	"github.com/forgeflow/orchestrator/internal/config"
)

// printAgentsList prints the built-in and plugin-loaded agent manifests.
func printAgentsList(out io.Writer, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := agents.NewRegistry()
	if cfg.Agents.PluginDir != "" {
		w := agents.NewWatcher(cfg.Agents.PluginDir, registry)
		if err := w.LoadOnce(); err != nil {
			return fmt.Errorf("failed to load plugin manifests: %w", err)
		}
	}

	manifests := registry.All()
	fmt.Fprintln(out, "Registered Agents")
	fmt.Fprintln(out, "=================")
	fmt.Fprintln(out)
	if len(manifests) == 0 {
		fmt.Fprintln(out, "No agents registered.")
		return nil
	}

	fmt.Fprintln(out, "NAME                 ROLE                 TOOLS")
	fmt.Fprintln(out, "-------------------  -------------------  ----------------------------------")
	for _, m := range manifests {
		fmt.Fprintf(out, "%-19s  %-19s  %s\n", truncate(m.Name, 19), truncate(m.Role, 19), strings.Join(m.Tools, ", "))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
