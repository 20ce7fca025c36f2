// Package transcode turns a backend completion stream into a client-visible
// response stream. The Converse mode re-emits deltas as binary event-stream
// frames driven by a single-pass state machine; the passthrough mode
// re-emits the backend's own chunks as Server-Sent Events. Both modes
// accumulate the full assistant message for session persistence.
package transcode
