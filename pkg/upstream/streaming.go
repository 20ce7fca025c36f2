package upstream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"crosslake-dev/strait/pkg/gateway/types"
)

// Event is one parsed SSE data line from the backend stream. Raw is the
// data payload exactly as received, so passthrough forwarding does not lose
// vendor fields the typed chunk does not model.
type Event struct {
	Raw   json.RawMessage
	Chunk types.ChatCompletionChunk
}

// StreamReader reads Server-Sent Events from a backend completion stream.
// It buffers partial reads across chunk boundaries, strips the "data: "
// prefix when present (bare JSON lines are accepted too), treats "[DONE]"
// as the terminal sentinel, and silently skips comment lines and lines that
// do not parse as chunks.
type StreamReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

const maxStreamLine = 1024 * 1024

func newStreamReader(body io.ReadCloser) *StreamReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxStreamLine)
	return &StreamReader{body: body, scanner: scanner}
}

// Read returns the next event. Returns io.EOF on the [DONE] sentinel or
// when the stream ends.
func (s *StreamReader) Read(ctx context.Context) (*Event, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("upstream: read stream: %w", err)
			}
			return nil, io.EOF
		}

		line := s.scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		// The "data: " prefix is optional; some backends emit bare JSON.
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil, io.EOF
		}

		var chunk types.ChatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Malformed lines are dropped, not surfaced.
			continue
		}

		return &Event{Raw: json.RawMessage(data), Chunk: chunk}, nil
	}
}

// Close closes the underlying connection. Safe to call multiple times.
func (s *StreamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
