// Package agents implements the agent registry: the thirteen built-in
// specialist manifests plus hot-reloadable plugin manifests loaded from a
// directory of YAML files. Manifests are pure data (name, system prompt,
// tool allow-list, handoff candidates) — no dynamic code loading.
package agents

import (
	"fmt"
	"sort"
	"sync"
)

// Manifest describes one specialist agent.
type Manifest struct {
	Name         string   `yaml:"name"`
	Role         string   `yaml:"role"`
	SystemPrompt string   `yaml:"system_prompt"`
	Tools        []string `yaml:"tools"`
	// Keywords seeds the router's L3 deterministic fallback table for this
	// agent; empty means the agent is only reachable via L0-L2 routing.
	Keywords []string `yaml:"keywords"`
}

// Registry holds the active set of agent manifests and serves the router's
// candidate-description queries.
type Registry struct {
	mu         sync.RWMutex
	manifests  map[string]Manifest
	generation int // bumped on every reload, lets callers lazily rebuild caches
}

// NewRegistry builds a Registry seeded with the built-in specialist agents.
func NewRegistry() *Registry {
	r := &Registry{manifests: map[string]Manifest{}}
	for _, m := range BuiltinManifests() {
		r.manifests[m.Name] = m
	}
	return r
}

// Register adds or replaces a manifest and bumps the generation counter.
func (r *Registry) Register(m Manifest) error {
	if m.Name == "" {
		return fmt.Errorf("agents: manifest must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[m.Name] = m
	r.generation++
	return nil
}

// Lookup returns the manifest for name, or false if unknown.
func (r *Registry) Lookup(name string) (Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manifests[name]
	return m, ok
}

// Generation returns the current reload generation. Callers (e.g. the
// router's candidate-description cache) compare this against a
// last-built-at value to decide whether to rebuild lazily, rather than
// rebuilding on every single manifest change.
func (r *Registry) Generation() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// All returns every registered manifest, sorted by name for determinism.
func (r *Registry) All() []Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Manifest, 0, len(r.manifests))
	for _, m := range r.manifests {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Descriptions renders a router-context string ("name: role — prompt
// summary") for every registered agent, used to build the L0/L2 structured
// routing prompt.
func (r *Registry) Descriptions() []string {
	all := r.All()
	out := make([]string, 0, len(all))
	for _, m := range all {
		out = append(out, fmt.Sprintf("%s: %s", m.Name, m.Role))
	}
	return out
}
