package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgeflow/orchestrator/internal/events"
	"github.com/forgeflow/orchestrator/internal/state"
)

// workflowResponse is the body of POST /workflow/{phase}.
type workflowResponse struct {
	ThreadID     string           `json:"threadId"`
	Phase        string           `json:"phase"`
	Contributors []string         `json:"contributors"`
	Messages     []state.Message  `json:"messages"`
}

// handleWorkflow runs exactly one representative agent for a named phase,
// bypassing the Router entirely: POST /workflow/strategy runs the product
// manager alone, /workflow/design the designer, /workflow/build the
// builder, /workflow/ship the release manager.
func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	phase := strings.TrimPrefix(r.URL.Path, "/workflow/")
	phase = strings.Trim(phase, "/")
	nodeName, ok := s.phaseEntry[phase]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown workflow phase: "+phase)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	bus := events.NewBus(threadID, events.DefaultBusConfig())
	drainBus(bus)

	msg := state.NewMessage("user", state.RoleUser, req.Message, time.Now())
	st, err := s.executor.RunOnce(r.Context(), threadID, msg, nodeName, bus)
	bus.Close()
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, workflowResponse{
		ThreadID:     st.ThreadID,
		Phase:        phase,
		Contributors: st.ContributorList(),
		Messages:     st.Messages,
	})
}
