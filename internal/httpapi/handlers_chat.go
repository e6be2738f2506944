package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/forgeflow/orchestrator/internal/events"
	"github.com/forgeflow/orchestrator/internal/graph"
	"github.com/forgeflow/orchestrator/internal/state"
)

// chatRequest is the body of POST /chat and POST /chat/stream.
type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"threadId"`
}

// chatResponse is the body of POST /chat.
type chatResponse struct {
	ThreadID     string   `json:"threadId"`
	Result       string   `json:"result"`
	Contributors []string `json:"contributors"`
	History      []state.Message `json:"history"`
}

// handleChat runs a thread to END synchronously.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
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

	st, err := s.runStart(r.Context(), threadID, req.Message, bus)
	bus.Close()
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ThreadID:     st.ThreadID,
		Result:       lastMessageContent(st),
		Contributors: st.ContributorList(),
		History:      st.Messages,
	})
}

// handleChatStream runs a thread to END, streaming the §4.7 event set as
// Server-Sent Events.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
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

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	bus := events.NewBus(threadID, events.DefaultBusConfig())
	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		_, runErr = s.runStart(r.Context(), threadID, req.Message, bus)
		bus.Close()
	}()

	for e := range bus.Out() {
		writeSSE(w, e)
		flusher.Flush()
	}
	<-done
	if runErr != nil {
		s.logf(r.Context(), slog.LevelWarn, "chat stream run failed", "thread_id", threadID, "error", runErr)
		writeSSE(w, events.Event{ThreadID: threadID, Type: events.TypeError, Data: events.ErrorData{Message: runErr.Error()}})
		flusher.Flush()
	}
}

// runStart collapses concurrent requests against the same thread id through
// s.busyGroup, so a second caller observes ErrThreadBusy immediately instead
// of piling up behind the Executor's per-thread lock.
func (s *Server) runStart(ctx context.Context, threadID, message string, bus *events.Bus) (*state.ConversationState, error) {
	v, err, _ := s.busyGroup.Do(threadID, func() (any, error) {
		msg := state.NewMessage("user", state.RoleUser, message, time.Now())
		return s.executor.Start(ctx, threadID, msg, bus)
	})
	if err != nil {
		return nil, err
	}
	return v.(*state.ConversationState), nil
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, graph.ErrThreadBusy) {
		writeError(w, http.StatusConflict, "thread is busy")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func lastMessageContent(st *state.ConversationState) string {
	if st == nil || len(st.Messages) == 0 {
		return ""
	}
	return st.Messages[len(st.Messages)-1].Content
}
