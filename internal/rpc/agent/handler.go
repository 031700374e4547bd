package agent

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/planforge/planforge/internal/observability"
	"github.com/planforge/planforge/internal/rpc"
)

// Handler processes chat requests and streams NDJSON events.
type Handler struct {
	runner  Runner
	metrics *observability.Metrics
}

// NewHandler constructs a handler instance.
func NewHandler(runner Runner, metrics *observability.Metrics) *Handler {
	return &Handler{runner: runner, metrics: metrics}
}

// ServeHTTP handles POST /agent/chat with an NDJSON stream of ChatEvent.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.metrics.RecordTransportError("ndjson", "method_not_allowed")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.metrics.IncActiveSessions("ndjson")
	defer h.metrics.DecActiveSessions("ndjson")

	var req rpc.ChatTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordTransportError("ndjson", "decode")
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.CorrelationID == "" {
		req.CorrelationID = req.SessionID + "-corr"
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, err := h.runner.Run(r, req)
	if err != nil {
		h.metrics.RecordTransportError("ndjson", "runner_error")
		http.Error(w, fmt.Sprintf("runner error: %v", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	writer := bufio.NewWriter(w)
	for ev := range events {
		if err := json.NewEncoder(writer).Encode(ev); err != nil {
			break
		}
		writer.Flush()
		flusher.Flush()
	}
}

// ResetHandler clears a session's conversation over plain JSON.
type ResetHandler struct {
	resetter interface{ ResetSession(string) }
}

// NewResetHandler constructs a reset endpoint around anything that can
// reset a session.
func NewResetHandler(resetter interface{ ResetSession(string) }) *ResetHandler {
	return &ResetHandler{resetter: resetter}
}

func (h *ResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req rpc.ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	h.resetter.ResetSession(req.SessionID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rpc.ResetResponse{SessionID: req.SessionID, OK: true})
}
