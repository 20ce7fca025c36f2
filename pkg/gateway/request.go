package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxRequestBodySize bounds inbound request bodies. 10 MB accommodates long
// conversations without letting a single request exhaust memory.
const MaxRequestBodySize = 10 * 1024 * 1024

// ReadJSONBody reads and decodes a JSON request body into dst, enforcing the
// size limit.
func ReadJSONBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return fmt.Errorf("gateway: read body: %w", err)
	}
	if len(body) > MaxRequestBodySize {
		return fmt.Errorf("gateway: request body exceeds %d bytes", MaxRequestBodySize)
	}
	if len(body) == 0 {
		return fmt.Errorf("gateway: empty request body")
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("gateway: decode body: %w", err)
	}
	return nil
}
