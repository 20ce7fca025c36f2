package handlers

import (
	"net/http"

	"crosslake-dev/strait/pkg/gateway"
)

// healthStatus is the health endpoint's response body.
type healthStatus struct {
	Status string `json:"status"`
}

// Health reports gateway liveness and probes the backend.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.Health(r.Context()); err != nil {
		h.logger.Warn("backend health probe failed", "error", err)
		gateway.WriteJSON(w, http.StatusServiceUnavailable, healthStatus{Status: "unhealthy"})
		return
	}
	gateway.WriteJSON(w, http.StatusOK, healthStatus{Status: "healthy"})
}
