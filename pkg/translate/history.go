package translate

import "crosslake-dev/strait/pkg/gateway/types"

// ProjectBedrockHistory renders a stored conversation into Converse form for
// read-back. System-role messages become system text blocks; every other
// message becomes a single-block turn. Relative order within each partition
// is preserved.
func ProjectBedrockHistory(history []types.ChatMessage) *types.BedrockHistory {
	projected := &types.BedrockHistory{
		Messages: []types.BedrockMessage{},
		System:   []types.SystemBlock{},
	}

	for _, message := range history {
		if message.Role == types.RoleSystem {
			projected.System = append(projected.System, types.SystemBlock{Text: message.Content})
			continue
		}
		projected.Messages = append(projected.Messages, types.BedrockMessage{
			Role:    message.Role,
			Content: []types.ContentBlock{{Text: message.Content}},
		})
	}

	return projected
}

// PrependHistory places the stored conversation before the request's new
// messages, forming the full context window for the backend call.
func PrependHistory(history []types.ChatMessage, incoming []types.ChatMessage) []types.ChatMessage {
	if len(history) == 0 {
		return incoming
	}
	combined := make([]types.ChatMessage, 0, len(history)+len(incoming))
	combined = append(combined, history...)
	combined = append(combined, incoming...)
	return combined
}
