package types

import "encoding/json"

// ConverseRequest is the Bedrock Converse request body.
type ConverseRequest struct {
	// Messages is the ordered conversation sent to the model.
	Messages []BedrockMessage `json:"messages,omitempty"`

	// System carries system-prompt text blocks, merged into a single
	// system message during translation.
	System []SystemBlock `json:"system,omitempty"`

	// InferenceConfig holds the sampling parameters.
	InferenceConfig *InferenceConfig `json:"inferenceConfig,omitempty"`

	// AdditionalModelRequestFields passes vendor-specific fields through to
	// the backend untouched, except for the session control keys
	// ("session_id", "enable_history") which the gateway consumes.
	AdditionalModelRequestFields map[string]json.RawMessage `json:"additionalModelRequestFields,omitempty"`

	// PromptVariables supplies values for {{placeholder}} substitution when
	// the model identifier is a prompt ARN.
	PromptVariables map[string]PromptVariable `json:"promptVariables,omitempty"`
}

// BedrockMessage is one conversation turn in Converse format.
type BedrockMessage struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is a single content part. Only text parts are modeled.
type ContentBlock struct {
	Text string `json:"text"`
}

// SystemBlock is a system-prompt text part.
type SystemBlock struct {
	Text string `json:"text"`
}

// InferenceConfig holds Converse sampling parameters. Pointers distinguish
// "absent" from zero values so unset parameters are not forwarded.
type InferenceConfig struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     *int     `json:"maxTokens,omitempty"`
	StopSequences []string `json:"stopSequences,omitempty"`
	TopP          *float64 `json:"topP,omitempty"`
}

// PromptVariable is a template variable value.
type PromptVariable struct {
	Text string `json:"text"`
}

// ConverseResponse is the Bedrock Converse response body.
type ConverseResponse struct {
	Output     ConverseOutput `json:"output"`
	Usage      BedrockUsage   `json:"usage"`
	StopReason string         `json:"stopReason,omitempty"`

	// SessionID is echoed back when server-side history is enabled.
	SessionID string `json:"session_id,omitempty"`
}

// ConverseOutput wraps the assistant message.
type ConverseOutput struct {
	Message BedrockMessage `json:"message"`
}

// BedrockUsage mirrors the OpenAI usage counters under Converse names.
type BedrockUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// BedrockHistory is the Converse-shaped history read-back: system text blocks
// separated from the remaining turns, order preserved.
type BedrockHistory struct {
	Messages []BedrockMessage `json:"messages"`
	System   []SystemBlock    `json:"system"`
}

// Streaming event payloads. Each is JSON-encoded into one event-stream frame
// whose :event-type header names the event.

// MessageStartEvent opens the assistant message.
type MessageStartEvent struct {
	Role string `json:"role"`
}

// ContentBlockDeltaEvent carries one incremental text fragment. Only content
// block index 0 is produced.
type ContentBlockDeltaEvent struct {
	ContentBlockIndex int       `json:"contentBlockIndex"`
	Delta             TextDelta `json:"delta"`
}

// TextDelta is the text fragment inside a content block delta.
type TextDelta struct {
	Text string `json:"text"`
}

// MessageStopEvent closes the assistant message with a mapped stop reason.
type MessageStopEvent struct {
	StopReason string `json:"stopReason"`
}

// Stop reasons produced by the finish-reason mapping.
const (
	StopReasonEndTurn         = "end_turn"
	StopReasonMaxTokens       = "max_tokens"
	StopReasonToolUse         = "tool_use"
	StopReasonContentFiltered = "content_filtered"
)
