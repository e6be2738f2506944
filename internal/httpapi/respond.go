package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/forgeflow/orchestrator/internal/events"
)

// writeJSON marshals v as the JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a {"error": message} JSON body with the given status.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeSSE writes one event as a Server-Sent Events frame: an `event:` line
// naming the event's Type and a `data:` line holding its JSON encoding.
func writeSSE(w http.ResponseWriter, e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
}
