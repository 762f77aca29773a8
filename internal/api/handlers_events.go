package api

import (
	"net/http"

	"github.com/mehedi/hookpulse/internal/delivery"
)

type EventHandler struct {
	fanout *delivery.Fanout
}

func NewEventHandler(fanout *delivery.Fanout) *EventHandler {
	return &EventHandler{fanout: fanout}
}

type publishEventRequest struct {
	Event   string            `json:"event"`
	Payload map[string]string `json:"payload"`
}

// Publish fans an event out to every active webhook of the account and
// waits for all delivery cycles to finish.
func (h *EventHandler) Publish(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req publishEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Event == "" {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}

	results, err := h.fanout.Publish(r.Context(), acc.ID, req.Event, req.Payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to publish event")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event":      req.Event,
		"dispatched": len(results),
		"results":    results,
	})
}
