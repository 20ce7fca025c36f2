package types

import "encoding/json"

// ChatCompletionRequest is an OpenAI-compatible chat completion request.
//
// Two gateway control fields ("session_id", "enable_history") and the
// "promptVariables" extension ride in on the body but are never forwarded to
// the backend; they are captured during unmarshaling and excluded from the
// marshaled form. All other unknown fields are preserved verbatim in Extra
// and re-emitted when the request is forwarded.
type ChatCompletionRequest struct {
	Model            string        `json:"model"`
	Messages         []ChatMessage `json:"messages,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	Stop             []string      `json:"stop,omitempty"`
	Stream           bool          `json:"stream,omitempty"`
	N                int           `json:"n,omitempty"`
	User             string        `json:"user,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`

	// SessionID selects an existing server-side conversation.
	SessionID string `json:"-"`

	// EnableHistory requests a new server-side conversation when no
	// session id is supplied.
	EnableHistory bool `json:"-"`

	// PromptVariables supplies values when Model is a prompt ARN.
	PromptVariables map[string]PromptVariable `json:"-"`

	// Extra holds unrecognized vendor fields, passed through untouched.
	Extra map[string]json.RawMessage `json:"-"`
}

// ChatMessage is one chat turn in OpenAI format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message roles shared by both protocols.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// chatRequestFields are the JSON keys owned by the typed struct; everything
// else in the body lands in Extra.
var chatRequestFields = []string{
	"model", "messages", "temperature", "max_tokens", "top_p", "stop",
	"stream", "n", "user", "presence_penalty", "frequency_penalty",
	"session_id", "enable_history", "promptVariables",
}

// UnmarshalJSON decodes the typed fields, pulls out the gateway control keys,
// and stashes any remaining fields in Extra.
func (r *ChatCompletionRequest) UnmarshalJSON(data []byte) error {
	type plain ChatCompletionRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["session_id"]; ok {
		if err := json.Unmarshal(v, &p.SessionID); err != nil {
			return err
		}
	}
	if v, ok := raw["enable_history"]; ok {
		if err := json.Unmarshal(v, &p.EnableHistory); err != nil {
			return err
		}
	}
	if v, ok := raw["promptVariables"]; ok {
		if err := json.Unmarshal(v, &p.PromptVariables); err != nil {
			return err
		}
	}

	for _, field := range chatRequestFields {
		delete(raw, field)
	}
	if len(raw) > 0 {
		p.Extra = raw
	}

	*r = ChatCompletionRequest(p)
	return nil
}

// MarshalJSON emits the typed fields merged with Extra. The control keys are
// never emitted, so the backend only sees protocol fields.
func (r ChatCompletionRequest) MarshalJSON() ([]byte, error) {
	type plain ChatCompletionRequest
	base, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range r.Extra {
		if _, exists := merged[key]; !exists {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// ChatCompletionResponse is an OpenAI-compatible chat completion response.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`

	// SessionID is injected by the gateway when history is enabled.
	SessionID string `json:"session_id,omitempty"`

	// Raw is the backend's response body exactly as received. Passthrough
	// forwarding writes it verbatim so vendor fields the typed struct does
	// not model survive the trip.
	Raw json.RawMessage `json:"-"`
}

// ChatChoice is a single completion choice.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// ChatUsage holds OpenAI token counters.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one SSE chunk of a streamed completion.
type ChatCompletionChunk struct {
	ID      string        `json:"id,omitempty"`
	Object  string        `json:"object,omitempty"`
	Created int64         `json:"created,omitempty"`
	Model   string        `json:"model,omitempty"`
	Choices []ChunkChoice `json:"choices"`

	// SessionID is injected into the first forwarded chunk only.
	SessionID string `json:"session_id,omitempty"`
}

// ChunkChoice is a single choice inside a stream chunk.
type ChunkChoice struct {
	Index        int       `json:"index"`
	Delta        ChatDelta `json:"delta"`
	FinishReason string    `json:"finish_reason,omitempty"`
}

// ChatDelta is the incremental content of a stream chunk.
type ChatDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// OpenAIHistory is the OpenAI-shaped history read-back.
type OpenAIHistory struct {
	Messages []ChatMessage `json:"messages"`
}

// SessionList is the response of the session-listing endpoint.
type SessionList struct {
	SessionIDs []string `json:"session_ids"`
}

// Finish reasons emitted by OpenAI-compatible backends.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
)
