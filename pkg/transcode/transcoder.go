package transcode

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"crosslake-dev/strait/pkg/eventstream"
	"crosslake-dev/strait/pkg/gateway/types"
	"crosslake-dev/strait/pkg/translate"
)

// Event-stream frame types emitted during a Converse stream.
const (
	EventMessageStart      = "messageStart"
	EventContentBlockDelta = "contentBlockDelta"
	EventMessageStop       = "messageStop"
)

// State is the transcoder's position in the stream lifecycle.
type State int

const (
	NotStarted State = iota
	Started
	Stopped
)

// FrameWriter encodes JSON payloads as event-stream frames on a writer,
// flushing after each frame so clients see events as they happen.
type FrameWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewFrameWriter creates a frame writer. If w implements http.Flusher the
// writer flushes after every frame.
func NewFrameWriter(w io.Writer) *FrameWriter {
	fw := &FrameWriter{w: w}
	if flusher, ok := w.(http.Flusher); ok {
		fw.flusher = flusher
	}
	return fw
}

// WriteEvent encodes payload as JSON inside a frame of the given event type.
func (fw *FrameWriter) WriteEvent(eventType string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("transcode: marshal %s payload: %w", eventType, err)
	}
	if _, err := fw.w.Write(eventstream.Encode(encoded, eventType)); err != nil {
		return fmt.Errorf("transcode: write %s frame: %w", eventType, err)
	}
	if fw.flusher != nil {
		fw.flusher.Flush()
	}
	return nil
}

// Transcoder converts backend stream deltas into Converse event-stream
// frames. It is single-use: one transcoder per request.
type Transcoder struct {
	frames     *FrameWriter
	state      State
	message    strings.Builder
	stopReason string
}

// NewTranscoder creates a transcoder writing frames to w.
func NewTranscoder(w io.Writer) *Transcoder {
	return &Transcoder{frames: NewFrameWriter(w)}
}

// Feed processes one backend chunk.
//
// The first delta carrying a role opens the message with a messageStart
// frame. Non-empty content is accumulated and emitted as a contentBlockDelta
// at index 0. A finish reason closes the message with a messageStop frame
// carrying the mapped stop reason; later chunks are ignored.
func (t *Transcoder) Feed(chunk *types.ChatCompletionChunk) error {
	if t.state == Stopped || len(chunk.Choices) == 0 {
		return nil
	}
	choice := chunk.Choices[0]

	if t.state == NotStarted && choice.Delta.Role != "" {
		if err := t.frames.WriteEvent(EventMessageStart, types.MessageStartEvent{
			Role: choice.Delta.Role,
		}); err != nil {
			return err
		}
		t.state = Started
	}

	if choice.Delta.Content != "" {
		t.message.WriteString(choice.Delta.Content)
		if err := t.frames.WriteEvent(EventContentBlockDelta, types.ContentBlockDeltaEvent{
			ContentBlockIndex: 0,
			Delta:             types.TextDelta{Text: choice.Delta.Content},
		}); err != nil {
			return err
		}
	}

	if choice.FinishReason != "" {
		t.stopReason = translate.MapFinishReason(choice.FinishReason)
		if err := t.frames.WriteEvent(EventMessageStop, types.MessageStopEvent{
			StopReason: t.stopReason,
		}); err != nil {
			return err
		}
		t.state = Stopped
	}

	return nil
}

// Message returns the accumulated assistant text.
func (t *Transcoder) Message() string {
	return t.message.String()
}

// StopReason returns the mapped stop reason, defaulting to end_turn when the
// backend never supplied a finish reason.
func (t *Transcoder) StopReason() string {
	if t.stopReason == "" {
		return types.StopReasonEndTurn
	}
	return t.stopReason
}

// State returns the transcoder's current state.
func (t *Transcoder) State() State {
	return t.state
}
