package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"crosslake-dev/strait/pkg/auth"
	"crosslake-dev/strait/pkg/gateway/types"
	"crosslake-dev/strait/pkg/prompt"
	"crosslake-dev/strait/pkg/session"
	"crosslake-dev/strait/pkg/translate"
	"crosslake-dev/strait/pkg/upstream"
	"crosslake-dev/strait/pkg/usage"
)

// Endpoint labels used for metrics, kept free of path parameters.
const (
	endpointConverse        = "converse"
	endpointConverseStream  = "converse-stream"
	endpointChatCompletions = "chat-completions"
)

// Handler serves the gateway endpoints. All dependencies are injected; the
// handler itself is stateless across requests.
type Handler struct {
	sessions session.Store
	backend  *upstream.Client
	prompts  prompt.Registry
	verifier auth.IdentityVerifier
	usage    *usage.Store
	metrics  *usage.Metrics
	logger   *slog.Logger

	// masterKey re-authenticates provisioning requests before forwarding.
	masterKey string
}

// Config wires the handler's collaborators.
type Config struct {
	Sessions  session.Store
	Backend   *upstream.Client
	Prompts   prompt.Registry
	Verifier  auth.IdentityVerifier
	Usage     *usage.Store
	Metrics   *usage.Metrics
	MasterKey string
}

// New creates the gateway handler.
func New(cfg Config) *Handler {
	return &Handler{
		sessions:  cfg.Sessions,
		backend:   cfg.Backend,
		prompts:   cfg.Prompts,
		verifier:  cfg.Verifier,
		usage:     cfg.Usage,
		metrics:   cfg.Metrics,
		masterKey: cfg.MasterKey,
		logger:    slog.Default().With("component", "gateway.handlers"),
	}
}

// caller is one authenticated request's identity.
type caller struct {
	credential  string
	fingerprint string
}

// authenticate extracts the bearer credential and derives the owner
// fingerprint. The raw credential is never logged or stored.
func (h *Handler) authenticate(r *http.Request) (*caller, error) {
	credential, err := auth.ExtractBearer(r)
	if err != nil {
		return nil, err
	}
	return &caller{
		credential:  credential,
		fingerprint: auth.Fingerprint(credential),
	}, nil
}

// conversation is the session state resolved for one request.
type conversation struct {
	sessionID string
	history   []types.ChatMessage
	enabled   bool
	isNew     bool
}

// resolveConversation loads an existing session or assigns a new one.
//
// A supplied session id must exist and be owned by the caller. Without one,
// enable_history mints a fresh id; otherwise history stays off and nothing
// is persisted.
func (h *Handler) resolveConversation(ctx context.Context, req *types.ChatCompletionRequest, who *caller) (*conversation, error) {
	if req.SessionID != "" {
		record, err := h.sessions.Load(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		if err := record.CheckOwner(who.fingerprint); err != nil {
			return nil, err
		}
		return &conversation{
			sessionID: req.SessionID,
			history:   record.History,
			enabled:   true,
		}, nil
	}

	if req.EnableHistory {
		return &conversation{
			sessionID: uuid.NewString(),
			enabled:   true,
			isNew:     true,
		}, nil
	}

	return &conversation{}, nil
}

// persistTurn stores the completed turn: the full outgoing message list plus
// the assistant reply. Called exactly once per request, after the backend
// response (or stream) is complete. Last writer wins on concurrent turns.
func (h *Handler) persistTurn(ctx context.Context, conv *conversation, who *caller, sent []types.ChatMessage, assistant string) error {
	if !conv.enabled {
		return nil
	}

	// The turn is stored even when the client has already disconnected.
	ctx = context.WithoutCancel(ctx)

	history := append(append([]types.ChatMessage{}, sent...), types.ChatMessage{
		Role:    types.RoleAssistant,
		Content: assistant,
	})

	if conv.isNew {
		if err := h.sessions.Create(ctx, conv.sessionID, history, who.fingerprint); err != nil {
			return err
		}
	} else {
		if err := h.sessions.ReplaceHistory(ctx, conv.sessionID, history); err != nil {
			return err
		}
	}

	h.logger.Debug("session turn persisted",
		"session_id", conv.sessionID,
		"messages", len(history),
	)
	return nil
}

// applyPromptReference resolves a prompt-ARN model identifier and rewrites
// the outgoing request. A plain model id passes through unchanged.
func (h *Handler) applyPromptReference(ctx context.Context, req *types.ChatCompletionRequest) error {
	if !prompt.IsReference(req.Model) {
		return nil
	}
	if h.prompts == nil {
		return prompt.ErrTemplateNotFound
	}

	ref, err := prompt.ParseReference(req.Model)
	if err != nil {
		return err
	}

	resolved, err := prompt.Resolve(ctx, h.prompts, ref, translate.VariableValues(req.PromptVariables))
	if err != nil {
		return err
	}

	translate.ApplyResolvedPrompt(req, resolved.Text, resolved.ModelID)
	return nil
}

// recordUsage persists and exports token counters for one completion.
func (h *Handler) recordUsage(ctx context.Context, who *caller, model string, u types.ChatUsage) {
	if h.metrics != nil {
		h.metrics.RecordTokens(model, u.PromptTokens, u.CompletionTokens)
	}
	if h.usage == nil {
		return
	}
	err := h.usage.Record(ctx, usage.Entry{
		OwnerFingerprint: who.fingerprint,
		Model:            model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	})
	if err != nil {
		h.logger.Error("failed to record usage", "error", err)
	}
}

// modelFromPath reassembles the model identifier from the route. Prompt ARNs
// contain a slash, so the streaming and non-streaming Converse routes accept
// an optional second segment.
func modelFromPath(r *http.Request) string {
	model := r.PathValue("modelID")
	if rest := r.PathValue("modelRest"); rest != "" {
		model = model + "/" + rest
	}
	return model
}
