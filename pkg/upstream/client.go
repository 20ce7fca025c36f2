package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"crosslake-dev/strait/pkg/gateway/types"
)

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend root, without a trailing slash.
	BaseURL string

	// APIKey authenticates requests when the caller does not supply its
	// own credential. Optional.
	APIKey string

	// Timeout bounds non-streaming requests. Default: 155s, sized for
	// slow long-form completions. Streaming requests are never bounded
	// by this timeout.
	Timeout time.Duration

	// MaxRetries is the retry count for transient failures on
	// non-streaming requests. Streaming requests are never retried.
	MaxRetries int

	// Connection pool settings.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultConfig returns the default backend client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:             155 * time.Second,
		MaxRetries:          2,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// Client talks to the OpenAI-compatible backend. It keeps two HTTP clients
// over a shared pooled transport: a bounded one for JSON calls and an
// unbounded one for streams.
type Client struct {
	config    Config
	client    *http.Client
	streaming *http.Client
	logger    *slog.Logger
}

// NewClient creates a backend client with connection pooling.
func NewClient(config Config) *Client {
	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config:    config,
		client:    &http.Client{Transport: transport, Timeout: config.Timeout},
		streaming: &http.Client{Transport: transport},
		logger:    slog.Default().With("component", "upstream"),
	}
}

// ChatCompletion performs a non-streaming completion call. The credential
// overrides the configured API key when non-empty.
func (c *Client) ChatCompletion(ctx context.Context, req *types.ChatCompletionRequest, credential string) (*types.ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: marshal request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/chat/completions", body, credential)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upstream: read response: %w", err)
	}

	var decoded types.ChatCompletionResponse
	if err := json.Unmarshal(responseBody, &decoded); err != nil {
		return nil, fmt.Errorf("upstream: decode response: %w", err)
	}
	decoded.Raw = responseBody
	return &decoded, nil
}

// ChatCompletionStream starts a streaming completion call and returns a
// reader over the SSE stream. The caller must Close the reader on every
// exit path.
func (c *Client) ChatCompletionStream(ctx context.Context, req *types.ChatCompletionRequest, credential string) (*StreamReader, error) {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	c.setHeaders(httpReq, credential)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streaming.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream: start stream: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &Error{StatusCode: resp.StatusCode, Body: errorBody}
	}

	return newStreamReader(resp.Body), nil
}

// Forward relays a request body to a backend path unchanged and returns the
// raw response. Used for the account and key provisioning passthrough.
func (c *Client) Forward(ctx context.Context, method, path string, body []byte, credential string) (*http.Response, error) {
	return c.do(ctx, method, path, body, credential)
}

// Health probes the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("upstream: build health request: %w", err)
	}
	c.setHeaders(req, "")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

const maxErrorBody = 64 * 1024

// do performs a bounded request with retry on transient failures. Backend
// error statuses below 500 are returned immediately with their body intact.
func (c *Client) do(ctx context.Context, method, path string, body []byte, credential string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			c.logger.Debug("retrying backend request",
				"attempt", attempt,
				"backoff", backoff,
				"path", path,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("upstream: build request: %w", err)
		}
		c.setHeaders(req, credential)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if timeoutErr, ok := err.(interface{ Timeout() bool }); ok && timeoutErr.Timeout() {
				return nil, &TimeoutError{Timeout: c.config.Timeout}
			}
			lastErr = err
			c.logger.Warn("backend request failed, will retry",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode < 500 {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}
			errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			return nil, &Error{StatusCode: resp.StatusCode, Body: errorBody}
		}

		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		lastErr = &Error{StatusCode: resp.StatusCode, Body: errorBody}
		c.logger.Warn("backend returned server error, will retry",
			"status", resp.StatusCode,
			"attempt", attempt+1,
		)
	}

	if backendErr, ok := lastErr.(*Error); ok {
		return nil, backendErr
	}
	return nil, fmt.Errorf("upstream: request failed: %w", lastErr)
}

func (c *Client) setHeaders(req *http.Request, credential string) {
	if req.Body != nil || req.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case credential != "":
		req.Header.Set("Authorization", "Bearer "+credential)
	case c.config.APIKey != "":
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}
