package handlers

import "net/http"

// Routes returns the gateway's route table.
//
// The Converse routes come in one- and two-segment model forms: a prompt ARN
// contains a slash ("arn:...:prompt/<id>"), which the path parser splits
// into two segments.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Health)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/liveliness", h.Health)

	mux.HandleFunc("POST /bedrock/model/{modelID}/converse", h.Converse)
	mux.HandleFunc("POST /bedrock/model/{modelID}/{modelRest}/converse", h.Converse)
	mux.HandleFunc("POST /bedrock/model/{modelID}/converse-stream", h.ConverseStream)
	mux.HandleFunc("POST /bedrock/model/{modelID}/{modelRest}/converse-stream", h.ConverseStream)

	mux.HandleFunc("POST /v1/chat/completions", h.ChatCompletions)
	mux.HandleFunc("POST /chat/completions", h.ChatCompletions)

	mux.HandleFunc("GET /bedrock/chat-history", h.BedrockHistory)
	mux.HandleFunc("GET /chat-history", h.ChatHistory)
	mux.HandleFunc("GET /session-ids", h.SessionIDs)

	mux.HandleFunc("POST /key/generate", h.GenerateKey)
	mux.HandleFunc("POST /user/new", h.NewUser)

	return mux
}
