package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"crosslake-dev/strait/pkg/eventstream"
	"crosslake-dev/strait/pkg/gateway/types"
	"crosslake-dev/strait/pkg/transcode"
)

func converseBody(text string) *types.ConverseRequest {
	return &types.ConverseRequest{
		Messages: []types.BedrockMessage{
			{Role: types.RoleUser, Content: []types.ContentBlock{{Text: text}}},
		},
	}
}

func TestConverse_EchoRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.request(t, http.MethodPost, "/bedrock/model/test-model/converse",
		"sk-caller", converseBody("hello backend"))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var resp types.ConverseResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.Output.Message.Role != types.RoleAssistant {
		t.Errorf("role = %q", resp.Output.Message.Role)
	}
	if got := resp.Output.Message.Content[0].Text; got != "hello backend" {
		t.Errorf("echoed content = %q", got)
	}

	// The backend sent no finish reason; the stop reason defaults.
	if resp.StopReason != types.StopReasonEndTurn {
		t.Errorf("stopReason = %q, want end_turn", resp.StopReason)
	}

	if resp.Usage != (types.BedrockUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}) {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestConverse_MissingCredential(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.request(t, http.MethodPost, "/bedrock/model/test-model/converse",
		"", converseBody("hi"))

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", recorder.Code)
	}

	var errResp types.ErrorResponse
	if err := json.NewDecoder(recorder.Body).Decode(&errResp); err != nil {
		t.Fatalf("decoding error: %v", err)
	}
	if errResp.Error.Code != types.CodeMissingCredential {
		t.Errorf("code = %q", errResp.Error.Code)
	}
}

func TestConverse_HistoryLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// First turn: enable history, no session id yet.
	first := converseBody("first question")
	first.AdditionalModelRequestFields = map[string]json.RawMessage{
		"enable_history": json.RawMessage(`true`),
	}

	recorder := env.request(t, http.MethodPost, "/bedrock/model/test-model/converse", "sk-owner", first)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	sessionID := recorder.Header().Get("X-Session-Id")
	if sessionID == "" {
		t.Fatal("no X-Session-Id header on first turn")
	}

	var resp types.ConverseResponse
	json.NewDecoder(recorder.Body).Decode(&resp)
	if resp.SessionID != sessionID {
		t.Errorf("body session_id = %q, header = %q", resp.SessionID, sessionID)
	}

	// Second turn continues the session.
	second := converseBody("second question")
	second.AdditionalModelRequestFields = map[string]json.RawMessage{
		"session_id": json.RawMessage(`"` + sessionID + `"`),
	}

	recorder = env.request(t, http.MethodPost, "/bedrock/model/test-model/converse", "sk-owner", second)
	if recorder.Code != http.StatusOK {
		t.Fatalf("second turn status = %d", recorder.Code)
	}

	// Each turn stores its user message and the assistant reply.
	record, err := env.sessions.Load(t.Context(), sessionID)
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	if len(record.History) != 4 {
		t.Fatalf("history length = %d, want 4: %+v", len(record.History), record.History)
	}
	wantRoles := []string{types.RoleUser, types.RoleAssistant, types.RoleUser, types.RoleAssistant}
	for i, want := range wantRoles {
		if record.History[i].Role != want {
			t.Errorf("history[%d].Role = %q, want %q", i, record.History[i].Role, want)
		}
	}
	if record.History[2].Content != "second question" {
		t.Errorf("history[2] = %+v", record.History[2])
	}
}

func TestConverse_WrongOwnerRejected(t *testing.T) {
	env := newTestEnv(t)

	first := converseBody("private question")
	first.AdditionalModelRequestFields = map[string]json.RawMessage{
		"enable_history": json.RawMessage(`true`),
	}
	recorder := env.request(t, http.MethodPost, "/bedrock/model/test-model/converse", "sk-owner", first)
	sessionID := recorder.Header().Get("X-Session-Id")

	intrusion := converseBody("steal it")
	intrusion.AdditionalModelRequestFields = map[string]json.RawMessage{
		"session_id": json.RawMessage(`"` + sessionID + `"`),
	}
	recorder = env.request(t, http.MethodPost, "/bedrock/model/test-model/converse", "sk-intruder", intrusion)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", recorder.Code)
	}

	// The original history is untouched.
	record, err := env.sessions.Load(t.Context(), sessionID)
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	if len(record.History) != 2 {
		t.Errorf("history length = %d after rejected access", len(record.History))
	}
}

func TestConverse_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	body := converseBody("hi")
	body.AdditionalModelRequestFields = map[string]json.RawMessage{
		"session_id": json.RawMessage(`"no-such-session"`),
	}
	recorder := env.request(t, http.MethodPost, "/bedrock/model/test-model/converse", "sk-x", body)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", recorder.Code)
	}
}

func TestConverse_PromptReference(t *testing.T) {
	env := newTestEnv(t)

	body := &types.ConverseRequest{
		PromptVariables: map[string]types.PromptVariable{
			"document": {Text: "the quarterly report"},
		},
	}

	// The ARN's slash splits the model id across two path segments.
	recorder := env.request(t, http.MethodPost,
		"/bedrock/model/arn:aws:bedrock:us-east-1:123456789012:prompt/PROMPT123/converse",
		"sk-caller", body)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	// The backend saw the resolved template as a single user message, and
	// the template's bound model.
	fields := env.backend.capturedBody()
	if string(fields["model"]) != `"prompt-bound-model"` {
		t.Errorf("forwarded model = %s", fields["model"])
	}

	var messages []types.ChatMessage
	json.Unmarshal(fields["messages"], &messages)
	if len(messages) != 1 || messages[0].Content != "Summarize: the quarterly report" {
		t.Errorf("forwarded messages = %+v", messages)
	}
}

func TestConverse_PromptVariableMismatch(t *testing.T) {
	env := newTestEnv(t)

	body := &types.ConverseRequest{
		PromptVariables: map[string]types.PromptVariable{
			"wrong": {Text: "x"},
		},
	}
	recorder := env.request(t, http.MethodPost,
		"/bedrock/model/arn:aws:bedrock:us-east-1:123456789012:prompt/PROMPT123/converse",
		"sk-caller", body)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", recorder.Code)
	}

	var errResp types.ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&errResp)
	if errResp.Error.Code != types.CodeVariableMismatch {
		t.Errorf("code = %q", errResp.Error.Code)
	}
}

func TestConverse_UnknownPrompt(t *testing.T) {
	env := newTestEnv(t)

	recorder := env.request(t, http.MethodPost,
		"/bedrock/model/arn:aws:bedrock:us-east-1:123456789012:prompt/MISSING/converse",
		"sk-caller", &types.ConverseRequest{})

	if recorder.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", recorder.Code)
	}
}

func TestConverseStream_EmitsFrames(t *testing.T) {
	env := newTestEnv(t)

	body := converseBody("stream please")
	body.AdditionalModelRequestFields = map[string]json.RawMessage{
		"enable_history": json.RawMessage(`true`),
	}
	recorder := env.request(t, http.MethodPost, "/bedrock/model/test-model/converse-stream", "sk-caller", body)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if got := recorder.Header().Get("Content-Type"); got != eventStreamContentType {
		t.Errorf("Content-Type = %q", got)
	}

	sessionID := recorder.Header().Get("X-Session-Id")
	if sessionID == "" {
		t.Fatal("no X-Session-Id header")
	}

	// Decode the full frame sequence.
	raw := recorder.Body.Bytes()
	var eventTypes []string
	var text string
	for len(raw) > 0 {
		frame, n, err := eventstream.Decode(raw)
		if err != nil {
			t.Fatalf("decoding frame: %v", err)
		}
		eventTypes = append(eventTypes, frame.EventType)
		if frame.EventType == transcode.EventContentBlockDelta {
			var delta types.ContentBlockDeltaEvent
			json.Unmarshal(frame.Payload, &delta)
			text += delta.Delta.Text
		}
		raw = raw[n:]
	}

	want := []string{
		transcode.EventMessageStart,
		transcode.EventContentBlockDelta,
		transcode.EventContentBlockDelta,
		transcode.EventMessageStop,
	}
	if len(eventTypes) != len(want) {
		t.Fatalf("event types = %v", eventTypes)
	}
	for i := range want {
		if eventTypes[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, eventTypes[i], want[i])
		}
	}
	if text != "Hi there" {
		t.Errorf("streamed text = %q", text)
	}

	// The accumulated reply was persisted once.
	record, err := env.sessions.Load(t.Context(), sessionID)
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	last := record.History[len(record.History)-1]
	if last.Role != types.RoleAssistant || last.Content != "Hi there" {
		t.Errorf("persisted assistant message = %+v", last)
	}
}
