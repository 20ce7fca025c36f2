package upstream

import (
	"errors"
	"fmt"
	"time"
)

// Error is a non-2xx backend response. Status and body are kept verbatim so
// the gateway can propagate them to the client unchanged.
type Error struct {
	StatusCode int
	Body       []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream: backend returned status %d: %s", e.StatusCode, string(e.Body))
}

// TimeoutError is a non-streaming request that exceeded the client timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream: request timed out after %s", e.Timeout)
}

// ErrUnhealthy is returned by Health when the backend probe fails.
var ErrUnhealthy = errors.New("upstream: backend unhealthy")
