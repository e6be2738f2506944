package httpapi

import (
	"fmt"

	"github.com/forgeflow/orchestrator/internal/agents"
	"github.com/forgeflow/orchestrator/internal/checkpoint"
	"github.com/forgeflow/orchestrator/internal/graph"
	"github.com/forgeflow/orchestrator/internal/llm"
	"github.com/forgeflow/orchestrator/internal/router"
	"github.com/forgeflow/orchestrator/internal/safety"
	"github.com/forgeflow/orchestrator/internal/tools"
	"github.com/forgeflow/orchestrator/internal/tools/exec"
	"github.com/forgeflow/orchestrator/internal/tools/files"
	"github.com/forgeflow/orchestrator/internal/tools/websearch"
)

// build wires the full dependency graph from s.config, grounded on the
// teacher's runtime.go provider/tool/registry setup sequence generalized
// from a single-agent runtime to the Router plus thirteen specialist nodes.
func (s *Server) build() error {
	cfg := s.config

	providers := make([]llm.Provider, 0, 2)
	if pc, ok := cfg.LLM.Providers[cfg.Router.PrimaryProvider]; ok && pc.APIKey != "" {
		p, err := llm.NewAnthropicProvider(llm.AnthropicConfig{
			APIKey: pc.APIKey, BaseURL: pc.BaseURL, DefaultModel: pc.DefaultModel,
		})
		if err != nil {
			return fmt.Errorf("httpapi: anthropic provider: %w", err)
		}
		providers = append(providers, p)
	}
	if pc, ok := cfg.LLM.Providers[cfg.Router.SecondaryProvider]; ok && pc.APIKey != "" {
		p, err := llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey: pc.APIKey, BaseURL: pc.BaseURL, DefaultModel: pc.DefaultModel,
		})
		if err != nil {
			return fmt.Errorf("httpapi: openai provider: %w", err)
		}
		providers = append(providers, p)
	}
	s.gateway = llm.NewGateway(providers...)
	if s.tracer != nil {
		s.gateway.SetTracer(s.tracer)
	}

	s.agents = agents.NewRegistry()
	if cfg.Agents.PluginDir != "" {
		w := agents.NewWatcher(cfg.Agents.PluginDir, s.agents)
		if err := w.LoadOnce(); err != nil {
			return fmt.Errorf("httpapi: load plugin manifests: %w", err)
		}
		if cfg.Agents.WatchPlugins {
			s.watcher = w
		}
	}

	s.tools = s.buildToolRegistry()

	s.envelope = safety.NewEnvelope(safety.EnvelopeConfig{
		MaxTurns: cfg.Safety.MaxTurns, MaxRetries: cfg.Safety.MaxRetries,
	})
	s.breaker = safety.NewCircuitBreaker(safety.BreakerConfig{
		Threshold: cfg.Safety.CircuitBreakerThreshold, Cooldown: cfg.Safety.CircuitBreakerCooldown,
	})

	rt := router.New(router.Config{
		Gateway:           s.gateway,
		PrimaryProvider:   cfg.Router.PrimaryProvider,
		SecondaryProvider: cfg.Router.SecondaryProvider,
		KeywordRules:      cfg.Router.KeywordRules,
		Counter:           s.metrics,
	})
	routerNode := graph.NewRouterNode(rt, s.agents, s.envelope, s.breaker)

	nodes := make([]graph.Node, 0, len(s.agents.All())+3)
	workers := make(map[string]graph.Node, len(s.agents.All()))
	var supervisorManifest *agents.Manifest
	for _, m := range s.agents.All() {
		n := graph.NewAgentNode(m, s.gateway, cfg.Router.PrimaryProvider, cfg.LLM.Providers[cfg.Router.PrimaryProvider].DefaultModel, s.tools, cfg.Tools.ToolCallConcurrency)
		if s.tracer != nil {
			n.SetTracer(s.tracer)
		}
		nodes = append(nodes, n)
		workers[m.Name] = n
		if m.Name == "product_manager" {
			mm := m
			supervisorManifest = &mm
		}
	}
	if supervisorManifest != nil {
		nodes = append(nodes,
			graph.NewSupervisorNode(*supervisorManifest, s.gateway, cfg.Router.PrimaryProvider, cfg.LLM.Providers[cfg.Router.PrimaryProvider].DefaultModel),
			graph.NewDispatcherNode(workers),
			graph.NewSynthesizerNode(),
		)
	}

	switch cfg.Checkpoint.Driver {
	case "memory":
		s.store = checkpoint.NewMemoryStore()
	default:
		sqliteStore, sqliteErr := checkpoint.NewSQLiteStore(cfg.Checkpoint.DSN)
		if sqliteErr != nil {
			return fmt.Errorf("httpapi: checkpoint store: %w", sqliteErr)
		}
		if s.tracer != nil {
			sqliteStore.SetTracer(s.tracer)
		}
		s.store = sqliteStore
	}

	s.executor = graph.NewExecutor(nodes, routerNode, s.envelope, s.breaker, s.store)
	if s.tracer != nil {
		s.executor.SetTracer(s.tracer)
	}
	return nil
}

// buildToolRegistry assembles the built-in tool set, grounded on the
// teacher's tools.Registry construction in runtime.go: sandboxed file I/O,
// bounded shell execution, bounded HTTP fetch, and the release tools
// layered over the same exec.Manager.
func (s *Server) buildToolRegistry() *tools.Registry {
	cfg := s.config.Tools
	reg := tools.NewRegistry()

	fileCfg := files.Config{Workspace: cfg.WorkspaceRoot, MaxReadBytes: cfg.MaxOutputBytes}
	reg.Register(files.NewReadTool(fileCfg))
	reg.Register(files.NewWriteTool(fileCfg))
	reg.Register(files.NewEditTool(fileCfg))
	reg.Register(files.NewApplyPatchTool(fileCfg))
	reg.Register(files.NewListTool(fileCfg))

	manager := exec.NewManager(cfg.WorkspaceRoot)
	reg.Register(exec.NewExecTool("run_shell", manager))

	reg.Register(websearch.NewWebFetchTool(&websearch.FetchConfig{MaxChars: int(cfg.HTTPMaxBodyBytes)}))
	reg.Register(websearch.NewWebSearchTool(&websearch.Config{}))

	reg.Register(tools.NewRunTestsTool(manager, "go test ./..."))
	reg.Register(tools.NewGitCommitTool(manager))
	reg.Register(tools.NewOpenPRTool(manager))
	return reg
}
