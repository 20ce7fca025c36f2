package eventstream

import (
	"encoding/binary"
	"hash/crc32"
)

const (
	// headerTypeString is the wire tag for a UTF-8 string header value.
	headerTypeString = 0x07

	// framingOverhead is the fixed byte count added to headers and payload:
	// 4 (total length) + 4 (headers length) + 4 (prelude CRC) + 4 (message CRC).
	framingOverhead = 16

	// eventTypeHeader is the single header name carried on every frame.
	eventTypeHeader = ":event-type"
)

// Encode builds one event-stream frame for the given payload and event type.
//
// Frame layout, all integers big-endian:
//
//	[4] total length = len(payload) + len(headers) + 16
//	[4] headers length
//	[4] CRC-32 of the preceding 8 bytes
//	[n] headers: 1-byte name length, name, 1-byte value type (0x07),
//	    2-byte value length, value
//	[m] payload
//	[4] CRC-32 of everything above
func Encode(payload []byte, eventType string) []byte {
	headers := encodeHeaders(eventType)

	totalLength := len(payload) + len(headers) + framingOverhead

	frame := make([]byte, 0, totalLength)
	frame = binary.BigEndian.AppendUint32(frame, uint32(totalLength))
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(headers)))

	preludeCRC := crc32.ChecksumIEEE(frame)
	frame = binary.BigEndian.AppendUint32(frame, preludeCRC)

	frame = append(frame, headers...)
	frame = append(frame, payload...)

	messageCRC := crc32.ChecksumIEEE(frame)
	frame = binary.BigEndian.AppendUint32(frame, messageCRC)

	return frame
}

// encodeHeaders encodes the single :event-type header entry.
func encodeHeaders(eventType string) []byte {
	name := []byte(eventTypeHeader)
	value := []byte(eventType)

	headers := make([]byte, 0, 1+len(name)+1+2+len(value))
	headers = append(headers, byte(len(name)))
	headers = append(headers, name...)
	headers = append(headers, headerTypeString)
	headers = binary.BigEndian.AppendUint16(headers, uint16(len(value)))
	headers = append(headers, value...)

	return headers
}
