package httpapi

import "net/http"

// agentInfo describes one registered specialist for GET /agents.
type agentInfo struct {
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Tools    []string `json:"tools"`
	Keywords []string `json:"keywords,omitempty"`
}

// handleAgents lists every agent currently in the registry, built-in or
// loaded from a plugin manifest.
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	manifests := s.agents.All()
	out := make([]agentInfo, 0, len(manifests))
	for _, m := range manifests {
		out = append(out, agentInfo{Name: m.Name, Role: m.Role, Tools: m.Tools, Keywords: m.Keywords})
	}
	writeJSON(w, http.StatusOK, out)
}
