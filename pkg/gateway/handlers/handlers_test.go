package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"crosslake-dev/strait/pkg/auth"
	"crosslake-dev/strait/pkg/gateway/types"
	"crosslake-dev/strait/pkg/prompt"
	"crosslake-dev/strait/pkg/session"
	"crosslake-dev/strait/pkg/upstream"
)

// fakeBackend is an OpenAI-compatible echo backend. Completions echo the
// last user message; streams emit a fixed delta sequence. Request bodies and
// credentials are captured for assertions.
type fakeBackend struct {
	mu           sync.Mutex
	lastBody     []byte
	lastAuth     string
	lastPath     string
	finishReason string
	healthy      bool

	// rawCompletion overrides the echoed completion body when set.
	rawCompletion []byte

	server *httptest.Server
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{healthy: true}
	b.server = httptest.NewServer(http.HandlerFunc(b.handle))
	return b
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.lastBody = body
	b.lastAuth = r.Header.Get("Authorization")
	b.lastPath = r.URL.Path
	finishReason := b.finishReason
	healthy := b.healthy
	rawCompletion := b.rawCompletion
	b.mu.Unlock()

	switch r.URL.Path {
	case "/health":
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status": "ok"}`))

	case "/v1/chat/completions":
		var req struct {
			Stream   bool                `json:"stream"`
			Messages []types.ChatMessage `json:"messages"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if req.Stream {
			b.streamResponse(w)
			return
		}

		if rawCompletion != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write(rawCompletion)
			return
		}

		echo := ""
		for _, message := range req.Messages {
			if message.Role == types.RoleUser {
				echo = message.Content
			}
		}

		resp := types.ChatCompletionResponse{
			ID:     "cmpl-test",
			Object: "chat.completion",
			Model:  "backend-model",
			Choices: []types.ChatChoice{{
				Message:      types.ChatMessage{Role: types.RoleAssistant, Content: echo},
				FinishReason: finishReason,
			}},
			Usage: types.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)

	case "/user/new", "/key/generate":
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"path": %q, "received": %s}`, r.URL.Path, string(body))

	default:
		http.NotFound(w, r)
	}
}

func (b *fakeBackend) streamResponse(w http.ResponseWriter) {
	flusher := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")

	lines := []string{
		`data: {"id": "cmpl-test", "choices": [{"index": 0, "delta": {"role": "assistant"}}]}`,
		`data: {"id": "cmpl-test", "choices": [{"index": 0, "delta": {"content": "Hi"}}]}`,
		`data: {"id": "cmpl-test", "choices": [{"index": 0, "delta": {"content": " there"}}]}`,
		`data: {"id": "cmpl-test", "choices": [{"index": 0, "delta": {}, "finish_reason": "stop"}]}`,
		`data: [DONE]`,
	}
	for _, line := range lines {
		io.WriteString(w, line+"\n\n")
		flusher.Flush()
	}
}

func (b *fakeBackend) capturedBody() map[string]json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var fields map[string]json.RawMessage
	json.Unmarshal(b.lastBody, &fields)
	return fields
}

func (b *fakeBackend) close() { b.server.Close() }

// fakeVerifier accepts one known token.
type fakeVerifier struct {
	token   string
	subject string
}

func (v *fakeVerifier) Verify(tokenString string) (string, error) {
	if tokenString != v.token {
		return "", auth.ErrInvalidToken
	}
	return v.subject, nil
}

// testRegistry serves fixed templates.
type testRegistry map[string]*prompt.Template

func (r testRegistry) GetPrompt(_ context.Context, id, version string) (*prompt.Template, error) {
	key := id
	if version != "" {
		key = id + ":" + version
	}
	template, ok := r[key]
	if !ok {
		return nil, prompt.ErrTemplateNotFound
	}
	return template, nil
}

type testEnv struct {
	backend  *fakeBackend
	sessions *session.MemoryStore
	handler  *Handler
	mux      *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := newFakeBackend()
	t.Cleanup(backend.close)

	sessions := session.NewMemoryStore()

	config := upstream.DefaultConfig()
	config.BaseURL = backend.server.URL
	config.MaxRetries = 0

	handler := New(Config{
		Sessions: sessions,
		Backend:  upstream.NewClient(config),
		Prompts: testRegistry{
			"PROMPT123": {Text: "Summarize: {{document}}", ModelID: "prompt-bound-model"},
		},
		Verifier:  &fakeVerifier{token: "okta-token", subject: "jdoe@example.com"},
		MasterKey: "sk-master",
	})

	return &testEnv{
		backend:  backend,
		sessions: sessions,
		handler:  handler,
		mux:      handler.Routes(),
	}
}

func (e *testEnv) request(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	recorder := httptest.NewRecorder()
	e.mux.ServeHTTP(recorder, req)
	return recorder
}
