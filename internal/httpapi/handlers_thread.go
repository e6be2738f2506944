package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/forgeflow/orchestrator/internal/checkpoint"
	"github.com/forgeflow/orchestrator/internal/events"
	"github.com/forgeflow/orchestrator/internal/state"
)

// threadResponse is the body of GET /thread/{id}.
type threadResponse struct {
	ThreadID         string              `json:"threadId"`
	Phase            string              `json:"phase,omitempty"`
	ApprovalStatus   state.ApprovalStatus `json:"approvalStatus"`
	RequiresApproval bool                `json:"requiresApproval"`
	Contributors     []string            `json:"contributors"`
	Messages         []state.Message     `json:"messages"`
}

// approveRequest is the body of POST /thread/{id}/approve.
type approveRequest struct {
	Approved bool `json:"approved"`
}

// handleThread dispatches GET /thread/{id} and POST /thread/{id}/approve
// based on the trailing path segment and method.
func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/thread/")
	threadID, action, _ := strings.Cut(rest, "/")
	if threadID == "" {
		writeError(w, http.StatusBadRequest, "missing thread id")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getThread(w, r, threadID)
	case action == "approve" && r.Method == http.MethodPost:
		s.approveThread(w, r, threadID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request, threadID string) {
	st, err := s.store.Latest(r.Context(), threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, threadResponse{
		ThreadID:         st.ThreadID,
		Phase:            st.Phase,
		ApprovalStatus:   st.ApprovalStatus,
		RequiresApproval: st.RequiresApproval,
		Contributors:     st.ContributorList(),
		Messages:         st.Messages,
	})
}

// approveThread resolves a thread paused on RequiresApproval: it merges the
// human decision into the checkpointed state and, on approval, resumes the
// run from its checkpointed Next exactly as a second Start call would. A
// denial clears RequiresApproval without resuming, leaving the thread
// parked for a human to redirect some other way.
func (s *Server) approveThread(w http.ResponseWriter, r *http.Request, threadID string) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	st, err := s.store.Latest(r.Context(), threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !st.RequiresApproval {
		writeError(w, http.StatusConflict, "thread is not awaiting approval")
		return
	}

	decision := state.ApprovalDenied
	if req.Approved {
		decision = state.ApprovalGranted
	}
	st = state.Merge(st, state.Delta{
		ApprovalStatus:   decision,
		RequiresApproval: boolPtr(false),
	})
	if err := s.store.Save(r.Context(), st); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !req.Approved {
		writeJSON(w, http.StatusOK, threadResponse{
			ThreadID:         st.ThreadID,
			Phase:            st.Phase,
			ApprovalStatus:   st.ApprovalStatus,
			RequiresApproval: st.RequiresApproval,
			Contributors:     st.ContributorList(),
			Messages:         st.Messages,
		})
		return
	}

	bus := events.NewBus(threadID, events.DefaultBusConfig())
	drainBus(bus)
	resumed, err := s.runStart(r.Context(), threadID, "", bus)
	bus.Close()
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threadResponse{
		ThreadID:         resumed.ThreadID,
		Phase:            resumed.Phase,
		ApprovalStatus:   resumed.ApprovalStatus,
		RequiresApproval: resumed.RequiresApproval,
		Contributors:     resumed.ContributorList(),
		Messages:         resumed.Messages,
	})
}

func boolPtr(b bool) *bool { return &b }
