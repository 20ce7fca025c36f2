// Package eventstream implements the binary event-stream frame format used by
// Bedrock Converse streaming responses (application/vnd.amazon.eventstream).
//
// Each frame carries a single header (":event-type") identifying the event and
// a JSON payload, protected by two CRC-32 checksums: one over the 8-byte
// prelude and one over the entire message. The layout is produced bit-exact so
// that stock Bedrock streaming clients can decode it.
package eventstream
