package handlers

import (
	"net/http"

	"crosslake-dev/strait/pkg/gateway"
	"crosslake-dev/strait/pkg/gateway/types"
	"crosslake-dev/strait/pkg/session"
	"crosslake-dev/strait/pkg/translate"
)

// loadOwnedSession fetches the session named in the query and enforces
// ownership, writing the error response itself on failure.
func (h *Handler) loadOwnedSession(w http.ResponseWriter, r *http.Request) *session.Record {
	who, err := h.authenticate(r)
	if err != nil {
		gateway.WriteError(w, err)
		return nil
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		gateway.WriteErrorResponse(w, types.NewInvalidRequestError(
			"Missing required query parameter.", "session_id", types.CodeMissingField))
		return nil
	}

	record, err := h.sessions.Load(r.Context(), sessionID)
	if err != nil {
		gateway.WriteError(w, err)
		return nil
	}
	if err := record.CheckOwner(who.fingerprint); err != nil {
		gateway.WriteError(w, err)
		return nil
	}
	return record
}

// BedrockHistory returns a session's history in Converse shape.
func (h *Handler) BedrockHistory(w http.ResponseWriter, r *http.Request) {
	record := h.loadOwnedSession(w, r)
	if record == nil {
		return
	}

	gateway.SetSessionHeader(w, record.SessionID)
	gateway.WriteJSON(w, http.StatusOK, translate.ProjectBedrockHistory(record.History))
}

// ChatHistory returns a session's history in OpenAI shape.
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	record := h.loadOwnedSession(w, r)
	if record == nil {
		return
	}

	messages := record.History
	if messages == nil {
		messages = []types.ChatMessage{}
	}

	gateway.SetSessionHeader(w, record.SessionID)
	gateway.WriteJSON(w, http.StatusOK, types.OpenAIHistory{Messages: messages})
}

// SessionIDs lists the caller's sessions.
func (h *Handler) SessionIDs(w http.ResponseWriter, r *http.Request) {
	who, err := h.authenticate(r)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}

	ids, err := h.sessions.ListByOwner(r.Context(), who.fingerprint)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	gateway.WriteJSON(w, http.StatusOK, types.SessionList{SessionIDs: ids})
}
