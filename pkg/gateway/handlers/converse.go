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

// eventStreamContentType is the media type of the binary event stream.
const eventStreamContentType = "application/vnd.amazon.eventstream"

// Converse handles the non-streaming Converse endpoint.
func (h *Handler) Converse(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	who, err := h.authenticate(r)
	if err != nil {
		h.observe(endpointConverse, "error", started)
		gateway.WriteError(w, err)
		return
	}

	var converseReq types.ConverseRequest
	if err := gateway.ReadJSONBody(r, &converseReq); err != nil {
		h.observe(endpointConverse, "error", started)
		gateway.WriteErrorResponse(w, types.NewInvalidRequestError(err.Error(), "", types.CodeInvalidJSON))
		return
	}

	backendReq, err := translate.BedrockToOpenAI(&converseReq, modelFromPath(r))
	if err != nil {
		h.observe(endpointConverse, "error", started)
		gateway.WriteErrorResponse(w, types.NewInvalidRequestError(err.Error(), "additionalModelRequestFields", types.CodeInvalidValue))
		return
	}

	if err := h.applyPromptReference(r.Context(), backendReq); err != nil {
		h.observe(endpointConverse, "error", started)
		gateway.WriteError(w, err)
		return
	}

	conv, err := h.resolveConversation(r.Context(), backendReq, who)
	if err != nil {
		h.observe(endpointConverse, "error", started)
		gateway.WriteError(w, err)
		return
	}
	backendReq.Messages = translate.PrependHistory(conv.history, backendReq.Messages)

	backendResp, err := h.backend.ChatCompletion(r.Context(), backendReq, who.credential)
	if err != nil {
		h.observe(endpointConverse, "error", started)
		gateway.WriteError(w, err)
		return
	}

	response := translate.OpenAIToBedrock(backendResp)

	if conv.enabled {
		assistant := response.Output.Message
		text := ""
		if len(assistant.Content) > 0 {
			text = assistant.Content[0].Text
		}
		if err := h.persistTurn(r.Context(), conv, who, backendReq.Messages, text); err != nil {
			h.logger.Error("failed to persist session turn", "error", err, "session_id", conv.sessionID)
		}
		response.SessionID = conv.sessionID
	}

	h.recordUsage(r.Context(), who, backendReq.Model, backendResp.Usage)
	h.observe(endpointConverse, "success", started)

	gateway.SetSessionHeader(w, conv.sessionID)
	gateway.WriteJSON(w, http.StatusOK, response)
}

// ConverseStream handles the streaming Converse endpoint, emitting binary
// event-stream frames.
func (h *Handler) ConverseStream(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	who, err := h.authenticate(r)
	if err != nil {
		h.observe(endpointConverseStream, "error", started)
		gateway.WriteError(w, err)
		return
	}

	var converseReq types.ConverseRequest
	if err := gateway.ReadJSONBody(r, &converseReq); err != nil {
		h.observe(endpointConverseStream, "error", started)
		gateway.WriteErrorResponse(w, types.NewInvalidRequestError(err.Error(), "", types.CodeInvalidJSON))
		return
	}

	backendReq, err := translate.BedrockToOpenAI(&converseReq, modelFromPath(r))
	if err != nil {
		h.observe(endpointConverseStream, "error", started)
		gateway.WriteErrorResponse(w, types.NewInvalidRequestError(err.Error(), "additionalModelRequestFields", types.CodeInvalidValue))
		return
	}

	if err := h.applyPromptReference(r.Context(), backendReq); err != nil {
		h.observe(endpointConverseStream, "error", started)
		gateway.WriteError(w, err)
		return
	}

	conv, err := h.resolveConversation(r.Context(), backendReq, who)
	if err != nil {
		h.observe(endpointConverseStream, "error", started)
		gateway.WriteError(w, err)
		return
	}
	backendReq.Messages = translate.PrependHistory(conv.history, backendReq.Messages)

	reader, err := h.backend.ChatCompletionStream(r.Context(), backendReq, who.credential)
	if err != nil {
		h.observe(endpointConverseStream, "error", started)
		gateway.WriteError(w, err)
		return
	}
	defer reader.Close()

	// Headers are committed before the first frame; errors mid-stream can
	// only terminate the stream, not change the status.
	w.Header().Set("Content-Type", eventStreamContentType)
	gateway.SetSessionHeader(w, conv.sessionID)
	w.WriteHeader(http.StatusOK)

	transcoder := transcode.NewTranscoder(w)
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
		if err := transcoder.Feed(&event.Chunk); err != nil {
			h.logger.Error("failed to emit frame", "error", err)
			break
		}
		if h.metrics != nil && len(event.Chunk.Choices) > 0 && event.Chunk.Choices[0].Delta.Content != "" {
			h.metrics.RecordStreamEvent(transcode.EventContentBlockDelta)
		}
	}

	if conv.enabled {
		if err := h.persistTurn(r.Context(), conv, who, backendReq.Messages, transcoder.Message()); err != nil {
			h.logger.Error("failed to persist session turn", "error", err, "session_id", conv.sessionID)
		}
	}
	h.observe(endpointConverseStream, "success", started)
}

func (h *Handler) observe(endpoint, status string, started time.Time) {
	if h.metrics != nil {
		h.metrics.RecordRequest(endpoint, status, time.Since(started))
	}
}
