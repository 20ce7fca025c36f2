package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"crosslake-dev/strait/pkg/gateway/middleware"
	"crosslake-dev/strait/pkg/gateway/types"
)

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteRawJSON writes a pre-encoded JSON body with the given status.
func WriteRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// WriteErrorResponse writes an error envelope at its mapped status.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) {
	WriteJSON(w, errResp.Error.HTTPStatusCode(), errResp)
}

// SetSessionHeader exposes the assigned or continued session id to the
// client. No-op for an empty id.
func SetSessionHeader(w http.ResponseWriter, sessionID string) {
	if sessionID != "" {
		w.Header().Set(middleware.SessionIDHeader, sessionID)
	}
}
