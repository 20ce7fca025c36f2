package transcode

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"crosslake-dev/strait/pkg/upstream"
)

// SSEForwarder re-emits backend stream chunks to the client as Server-Sent
// Events. The session identifier is injected into the first forwarded chunk
// only; every other chunk is forwarded byte-for-byte, so vendor fields the
// typed chunk does not model survive the trip.
type SSEForwarder struct {
	w         io.Writer
	flusher   http.Flusher
	sessionID string
	sentFirst bool
	message   strings.Builder
}

// NewSSEForwarder creates a forwarder. sessionID may be empty, in which case
// no injection happens.
func NewSSEForwarder(w io.Writer, sessionID string) *SSEForwarder {
	f := &SSEForwarder{w: w, sessionID: sessionID}
	if flusher, ok := w.(http.Flusher); ok {
		f.flusher = flusher
	}
	return f
}

// Forward writes one backend event to the client and accumulates its
// content delta.
func (f *SSEForwarder) Forward(event *upstream.Event) error {
	payload := event.Raw

	if !f.sentFirst && f.sessionID != "" {
		injected, err := InjectSessionID(event.Raw, f.sessionID)
		if err != nil {
			return err
		}
		payload = injected
	}
	f.sentFirst = true

	if len(event.Chunk.Choices) > 0 {
		f.message.WriteString(event.Chunk.Choices[0].Delta.Content)
	}

	if _, err := fmt.Fprintf(f.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("transcode: write sse chunk: %w", err)
	}
	if f.flusher != nil {
		f.flusher.Flush()
	}
	return nil
}

// Done writes the terminal sentinel.
func (f *SSEForwarder) Done() error {
	if _, err := io.WriteString(f.w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("transcode: write sse sentinel: %w", err)
	}
	if f.flusher != nil {
		f.flusher.Flush()
	}
	return nil
}

// Message returns the accumulated assistant text.
func (f *SSEForwarder) Message() string {
	return f.message.String()
}

// SetSSEHeaders sets the response headers for an SSE stream.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// InjectSessionID adds the session id key to a raw JSON object without
// disturbing its other fields.
func InjectSessionID(raw json.RawMessage, sessionID string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("transcode: decode payload: %w", err)
	}

	encoded, err := json.Marshal(sessionID)
	if err != nil {
		return nil, fmt.Errorf("transcode: encode session id: %w", err)
	}
	fields["session_id"] = encoded

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("transcode: re-encode payload: %w", err)
	}
	return merged, nil
}
