package translate

import (
	"encoding/json"
	"fmt"
	"strings"

	"crosslake-dev/strait/pkg/gateway/types"
)

// Control keys consumed by the gateway. They ride in on
// additionalModelRequestFields but must never reach the backend.
const (
	ControlKeySessionID     = "session_id"
	ControlKeyEnableHistory = "enable_history"
)

// BedrockToOpenAI converts a Converse request into an OpenAI chat completion
// request for the given backend model.
//
// System text blocks are space-joined into a single leading system message.
// Each remaining message has its text parts concatenated into one content
// string, preserving role and order. Sampling parameters are renamed 1:1.
// Vendor fields in additionalModelRequestFields pass through untouched except
// the two session control keys, which are lifted into the request's control
// fields instead.
func BedrockToOpenAI(req *types.ConverseRequest, modelID string) (*types.ChatCompletionRequest, error) {
	out := &types.ChatCompletionRequest{Model: modelID}

	if systemText := mergeSystemBlocks(req.System); systemText != "" {
		out.Messages = append(out.Messages, types.ChatMessage{
			Role:    types.RoleSystem,
			Content: systemText,
		})
	}

	for _, message := range req.Messages {
		out.Messages = append(out.Messages, types.ChatMessage{
			Role:    message.Role,
			Content: joinContentBlocks(message.Content),
		})
	}

	if cfg := req.InferenceConfig; cfg != nil {
		out.Temperature = cfg.Temperature
		out.MaxTokens = cfg.MaxTokens
		out.TopP = cfg.TopP
		out.Stop = cfg.StopSequences
	}

	for key, value := range req.AdditionalModelRequestFields {
		switch key {
		case ControlKeySessionID:
			if err := json.Unmarshal(value, &out.SessionID); err != nil {
				return nil, fmt.Errorf("translate: decode %s: %w", ControlKeySessionID, err)
			}
		case ControlKeyEnableHistory:
			if err := json.Unmarshal(value, &out.EnableHistory); err != nil {
				return nil, fmt.Errorf("translate: decode %s: %w", ControlKeyEnableHistory, err)
			}
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = value
		}
	}

	out.PromptVariables = req.PromptVariables
	return out, nil
}

// ApplyResolvedPrompt replaces the outgoing conversation with the resolved
// template text as a single user message and retargets the request at the
// template's bound model. Client-supplied messages and system content are
// overridden, not merged.
func ApplyResolvedPrompt(req *types.ChatCompletionRequest, text, modelID string) {
	req.Model = modelID
	req.Messages = []types.ChatMessage{{Role: types.RoleUser, Content: text}}
}

// OpenAIToBedrock converts a chat completion response into Converse form.
// The first choice's message becomes output.message with role assistant.
func OpenAIToBedrock(resp *types.ChatCompletionResponse) *types.ConverseResponse {
	out := &types.ConverseResponse{
		Usage: types.BedrockUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		StopReason: types.StopReasonEndTurn,
	}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Output.Message = types.BedrockMessage{
			Role:    types.RoleAssistant,
			Content: []types.ContentBlock{{Text: choice.Message.Content}},
		}
		out.StopReason = MapFinishReason(choice.FinishReason)
	}

	return out
}

// MapFinishReason maps an OpenAI finish reason to a Converse stop reason.
// Unrecognized or missing values default to end_turn.
func MapFinishReason(finishReason string) string {
	switch finishReason {
	case types.FinishReasonStop:
		return types.StopReasonEndTurn
	case types.FinishReasonLength:
		return types.StopReasonMaxTokens
	case types.FinishReasonToolCalls:
		return types.StopReasonToolUse
	case types.FinishReasonContentFilter:
		return types.StopReasonContentFiltered
	default:
		return types.StopReasonEndTurn
	}
}

// VariableValues flattens Converse prompt variables into plain name/value
// pairs for template substitution.
func VariableValues(variables map[string]types.PromptVariable) map[string]string {
	if len(variables) == 0 {
		return nil
	}
	values := make(map[string]string, len(variables))
	for name, variable := range variables {
		values[name] = variable.Text
	}
	return values
}

func mergeSystemBlocks(blocks []types.SystemBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, " ")
}

func joinContentBlocks(blocks []types.ContentBlock) string {
	var builder strings.Builder
	for _, block := range blocks {
		builder.WriteString(block.Text)
	}
	return builder.String()
}
