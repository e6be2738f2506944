package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/forgeflow/orchestrator/internal/checkpoint"
)

// handleState dumps the raw latest checkpoint for a thread, for debugging.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	threadID := strings.TrimPrefix(r.URL.Path, "/state/")
	threadID = strings.Trim(threadID, "/")
	if threadID == "" {
		writeError(w, http.StatusBadRequest, "missing thread id")
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
	writeJSON(w, http.StatusOK, st)
}
