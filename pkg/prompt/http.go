package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPRegistry fetches templates from a remote registry service over HTTP.
type HTTPRegistry struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// HTTPRegistryConfig configures the remote registry client.
type HTTPRegistryConfig struct {
	// BaseURL is the registry root, without a trailing slash.
	BaseURL string

	// APIKey authenticates to the registry. Optional.
	APIKey string

	// Timeout bounds each fetch. Default: 10s.
	Timeout time.Duration
}

// NewHTTPRegistry creates a remote registry client.
func NewHTTPRegistry(config HTTPRegistryConfig) *HTTPRegistry {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRegistry{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type registryResponse struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// GetPrompt implements Registry. A 404 maps to ErrTemplateNotFound; any
// other non-200 status is surfaced with the registry's response body.
func (r *HTTPRegistry) GetPrompt(ctx context.Context, id, version string) (*Template, error) {
	endpoint := r.baseURL + "/prompts/" + url.PathEscape(id)
	if version != "" {
		endpoint += "?version=" + url.QueryEscape(version)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("prompt: build registry request: %w", err)
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prompt: fetch %q: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("prompt: registry returned status %d for %q: %s",
			resp.StatusCode, id, string(body))
	}

	var decoded registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("prompt: decode registry response for %q: %w", id, err)
	}

	return &Template{Text: decoded.Text, ModelID: decoded.ModelID}, nil
}
