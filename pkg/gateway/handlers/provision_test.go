package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"crosslake-dev/strait/pkg/gateway/types"
)

func TestNewUser_RawCredentialPassthrough(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{"user_id": "chosen-id", "user_role": "admin"}
	recorder := env.request(t, http.MethodPost, "/user/new", "sk-direct", body)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	// A raw credential is forwarded as presented, body untouched.
	env.backend.mu.Lock()
	auth, path := env.backend.lastAuth, env.backend.lastPath
	env.backend.mu.Unlock()
	if auth != "Bearer sk-direct" {
		t.Errorf("forwarded credential = %q", auth)
	}
	if path != "/user/new" {
		t.Errorf("forwarded path = %q", path)
	}

	fields := env.backend.capturedBody()
	if string(fields["user_id"]) != `"chosen-id"` {
		t.Errorf("user_id = %s", fields["user_id"])
	}
	if string(fields["user_role"]) != `"admin"` {
		t.Errorf("user_role = %s", fields["user_role"])
	}
}

func TestNewUser_FederatedIdentity(t *testing.T) {
	env := newTestEnv(t)

	// The caller tries to pick its own identity and role; both are
	// overwritten from the verified token.
	body := map[string]any{
		"user_id":   "attacker-chosen",
		"user_role": "admin",
		"team":      "research",
	}
	recorder := env.request(t, http.MethodPost, "/user/new", "okta-token", body)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	env.backend.mu.Lock()
	auth := env.backend.lastAuth
	env.backend.mu.Unlock()
	if auth != "Bearer sk-master" {
		t.Errorf("forwarded credential = %q, want master key", auth)
	}

	fields := env.backend.capturedBody()
	if string(fields["user_id"]) != `"jdoe@example.com"` {
		t.Errorf("user_id = %s", fields["user_id"])
	}
	if string(fields["user_email"]) != `"jdoe@example.com"` {
		t.Errorf("user_email = %s", fields["user_email"])
	}
	if string(fields["user_role"]) != `"internal_user"` {
		t.Errorf("user_role = %s", fields["user_role"])
	}
	// Unrelated fields survive the merge.
	if string(fields["team"]) != `"research"` {
		t.Errorf("team = %s", fields["team"])
	}
}

func TestNewUser_InvalidToken(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.request(t, http.MethodPost, "/user/new", "forged-token", map[string]any{})
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", recorder.Code)
	}
}

func TestNewUser_MissingCredential(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.request(t, http.MethodPost, "/user/new", "", map[string]any{})
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", recorder.Code)
	}
}

func TestGenerateKey_UsesMasterKey(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{"key_alias": "ci-runner"}
	recorder := env.request(t, http.MethodPost, "/key/generate", "sk-any-caller", body)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}

	env.backend.mu.Lock()
	auth, path := env.backend.lastAuth, env.backend.lastPath
	env.backend.mu.Unlock()
	if auth != "Bearer sk-master" {
		t.Errorf("forwarded credential = %q, want master key", auth)
	}
	if path != "/key/generate" {
		t.Errorf("forwarded path = %q", path)
	}

	// The backend response comes back verbatim.
	var resp map[string]json.RawMessage
	json.Unmarshal(recorder.Body.Bytes(), &resp)
	if string(resp["path"]) != `"/key/generate"` {
		t.Errorf("relayed path = %s", resp["path"])
	}
}

func TestGenerateKey_MissingCredential(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.request(t, http.MethodPost, "/key/generate", "", map[string]any{})
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", recorder.Code)
	}

	var errResp types.ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&errResp)
	if errResp.Error.Code != types.CodeMissingCredential {
		t.Errorf("code = %q", errResp.Error.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.request(t, http.MethodGet, "/health", "", nil)
	if recorder.Code != http.StatusOK {
		t.Errorf("status = %d", recorder.Code)
	}

	env.backend.mu.Lock()
	env.backend.healthy = false
	env.backend.mu.Unlock()

	recorder = env.request(t, http.MethodGet, "/health", "", nil)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", recorder.Code)
	}

	var resp map[string]string
	json.Unmarshal(recorder.Body.Bytes(), &resp)
	if resp["status"] != "unhealthy" {
		t.Errorf("status body = %q", resp["status"])
	}
}
