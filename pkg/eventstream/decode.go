package eventstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// Frame is a decoded event-stream frame.
type Frame struct {
	EventType string
	Payload   []byte
}

var (
	// ErrShortFrame indicates the input is smaller than the fixed framing overhead.
	ErrShortFrame = errors.New("eventstream: frame shorter than framing overhead")

	// ErrChecksum indicates a CRC-32 mismatch in the prelude or message checksum.
	ErrChecksum = errors.New("eventstream: checksum mismatch")
)

// Decode parses a single frame from b and returns the frame plus the number of
// bytes consumed. Both checksums are verified.
func Decode(b []byte) (*Frame, int, error) {
	if len(b) < framingOverhead {
		return nil, 0, ErrShortFrame
	}

	totalLength := int(binary.BigEndian.Uint32(b[0:4]))
	headersLength := int(binary.BigEndian.Uint32(b[4:8]))
	if totalLength < framingOverhead || totalLength > len(b) {
		return nil, 0, fmt.Errorf("eventstream: declared length %d exceeds input %d", totalLength, len(b))
	}
	if headersLength > totalLength-framingOverhead {
		return nil, 0, fmt.Errorf("eventstream: declared headers length %d exceeds frame body %d", headersLength, totalLength-framingOverhead)
	}

	preludeCRC := binary.BigEndian.Uint32(b[8:12])
	if crc32.ChecksumIEEE(b[0:8]) != preludeCRC {
		return nil, 0, fmt.Errorf("%w: prelude", ErrChecksum)
	}

	messageCRC := binary.BigEndian.Uint32(b[totalLength-4 : totalLength])
	if crc32.ChecksumIEEE(b[0:totalLength-4]) != messageCRC {
		return nil, 0, fmt.Errorf("%w: message", ErrChecksum)
	}

	headers := b[12 : 12+headersLength]
	payload := b[12+headersLength : totalLength-4]

	eventType, err := decodeEventType(headers)
	if err != nil {
		return nil, 0, err
	}

	return &Frame{
		EventType: eventType,
		Payload:   payload,
	}, totalLength, nil
}

// decodeEventType walks the header block and returns the :event-type value.
func decodeEventType(headers []byte) (string, error) {
	for len(headers) > 0 {
		nameLen := int(headers[0])
		if len(headers) < 1+nameLen+1+2 {
			return "", errors.New("eventstream: truncated header")
		}
		name := string(headers[1 : 1+nameLen])
		valueType := headers[1+nameLen]
		if valueType != headerTypeString {
			return "", fmt.Errorf("eventstream: unsupported header value type 0x%02x", valueType)
		}
		valueLen := int(binary.BigEndian.Uint16(headers[1+nameLen+1 : 1+nameLen+3]))
		if len(headers) < 1+nameLen+3+valueLen {
			return "", errors.New("eventstream: truncated header value")
		}
		value := string(headers[1+nameLen+3 : 1+nameLen+3+valueLen])
		if name == eventTypeHeader {
			return value, nil
		}
		headers = headers[1+nameLen+3+valueLen:]
	}
	return "", errors.New("eventstream: missing :event-type header")
}
