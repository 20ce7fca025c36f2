// Package types defines the wire records for the two protocols the gateway
// translates between: the Bedrock Converse shape (JSON request/response plus
// binary event-stream frames) and the OpenAI chat-completions shape (JSON
// plus SSE streaming), together with the OpenAI-compatible error envelope
// returned on every failure path.
package types
