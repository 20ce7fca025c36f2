package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"crosslake-dev/strait/pkg/gateway"
	"crosslake-dev/strait/pkg/gateway/types"
	"crosslake-dev/strait/pkg/transcode"
	"crosslake-dev/strait/pkg/translate"
)

// ChatCompletions handles the OpenAI-compatible passthrough endpoint. The
// request's session_id and enable_history control fields are consumed here
// and never forwarded; the rest of the body passes through, unknown vendor
// fields included. Streaming is selected by the request's stream flag.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	who, err := h.authenticate(r)
	if err != nil {
		h.observe(endpointChatCompletions, "error", started)
		gateway.WriteError(w, err)
		return
	}

	var req types.ChatCompletionRequest
	if err := gateway.ReadJSONBody(r, &req); err != nil {
		h.observe(endpointChatCompletions, "error", started)
		gateway.WriteErrorResponse(w, types.NewInvalidRequestError(err.Error(), "", types.CodeInvalidJSON))
		return
	}

	if err := h.applyPromptReference(r.Context(), &req); err != nil {
		h.observe(endpointChatCompletions, "error", started)
		gateway.WriteError(w, err)
		return
	}

	conv, err := h.resolveConversation(r.Context(), &req, who)
	if err != nil {
		h.observe(endpointChatCompletions, "error", started)
		gateway.WriteError(w, err)
		return
	}
	req.Messages = translate.PrependHistory(conv.history, req.Messages)

	if req.Stream {
		h.streamCompletion(w, r, &req, who, conv, started)
		return
	}

	backendResp, err := h.backend.ChatCompletion(r.Context(), &req, who.credential)
	if err != nil {
		h.observe(endpointChatCompletions, "error", started)
		gateway.WriteError(w, err)
		return
	}

	// The backend body is relayed verbatim so vendor fields the typed
	// response does not model survive; only session_id is added.
	body := []byte(backendResp.Raw)
	if conv.enabled {
		assistant := ""
		if len(backendResp.Choices) > 0 {
			assistant = backendResp.Choices[0].Message.Content
		}
		if err := h.persistTurn(r.Context(), conv, who, req.Messages, assistant); err != nil {
			h.logger.Error("failed to persist session turn", "error", err, "session_id", conv.sessionID)
		}
		injected, err := transcode.InjectSessionID(backendResp.Raw, conv.sessionID)
		if err != nil {
			h.observe(endpointChatCompletions, "error", started)
			gateway.WriteErrorResponse(w, types.NewServerError("Failed to encode response."))
			return
		}
		body = injected
	}

	h.recordUsage(r.Context(), who, req.Model, backendResp.Usage)
	h.observe(endpointChatCompletions, "success", started)

	gateway.SetSessionHeader(w, conv.sessionID)
	gateway.WriteRawJSON(w, http.StatusOK, body)
}

// streamCompletion forwards a backend SSE stream to the client, injecting
// the session id into the first chunk only.
func (h *Handler) streamCompletion(w http.ResponseWriter, r *http.Request, req *types.ChatCompletionRequest, who *caller, conv *conversation, started time.Time) {
	reader, err := h.backend.ChatCompletionStream(r.Context(), req, who.credential)
	if err != nil {
		h.observe(endpointChatCompletions, "error", started)
		gateway.WriteError(w, err)
		return
	}
	defer reader.Close()

	transcode.SetSSEHeaders(w)
	gateway.SetSessionHeader(w, conv.sessionID)
	w.WriteHeader(http.StatusOK)

	forwarder := transcode.NewSSEForwarder(w, conv.sessionID)
	for {
		event, err := reader.Read(r.Context())
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Error("stream interrupted",
					"error", err,
					"session_id", conv.sessionID,
				)
			}
			break
		}
		if err := forwarder.Forward(event); err != nil {
			h.logger.Error("failed to forward chunk", "error", err)
			break
		}
	}
	if err := forwarder.Done(); err != nil {
		h.logger.Debug("failed to write stream sentinel", "error", err)
	}

	if conv.enabled {
		if err := h.persistTurn(r.Context(), conv, who, req.Messages, forwarder.Message()); err != nil {
			h.logger.Error("failed to persist session turn", "error", err, "session_id", conv.sessionID)
		}
	}
	h.observe(endpointChatCompletions, "success", started)
}
