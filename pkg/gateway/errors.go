package gateway

import (
	"errors"
	"log/slog"
	"net/http"

	"crosslake-dev/strait/pkg/auth"
	"crosslake-dev/strait/pkg/gateway/types"
	"crosslake-dev/strait/pkg/prompt"
	"crosslake-dev/strait/pkg/session"
	"crosslake-dev/strait/pkg/upstream"
)

// WriteError maps an internal error onto the HTTP response.
//
// Backend error responses are propagated verbatim, status and body intact,
// so clients see exactly what the backend said. Everything else is mapped to
// the standard error envelope.
func WriteError(w http.ResponseWriter, err error) {
	var backendErr *upstream.Error
	if errors.As(err, &backendErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(backendErr.StatusCode)
		if _, writeErr := w.Write(backendErr.Body); writeErr != nil {
			slog.Error("failed to write upstream error body", "error", writeErr)
		}
		return
	}

	WriteErrorResponse(w, MapError(err))
}

// MapError classifies an internal error into the standard envelope.
func MapError(err error) *types.ErrorResponse {
	var mismatchErr *prompt.VariableMismatchError
	var timeoutErr *upstream.TimeoutError

	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return types.NewAuthenticationError(
			"Missing or malformed Authorization header. Expected: Bearer <token>.",
			types.CodeMissingCredential,
		)

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingClaim):
		return types.NewAuthenticationError(err.Error(), types.CodeMissingCredential)

	case errors.Is(err, session.ErrNotFound):
		return types.NewNotFoundError("Session not found.", types.CodeSessionNotFound)

	case errors.Is(err, session.ErrNotOwner):
		return types.NewAuthenticationError(
			"The presented credential does not own this session.",
			types.CodeNotSessionOwner,
		)

	case errors.Is(err, prompt.ErrNotReference),
		errors.Is(err, prompt.ErrTemplateNotFound):
		return types.NewNotFoundError(err.Error(), types.CodePromptNotFound)

	case errors.As(err, &mismatchErr):
		return types.NewInvalidRequestError(mismatchErr.Error(), "promptVariables", types.CodeVariableMismatch)

	case errors.As(err, &timeoutErr):
		return types.NewErrorResponse(
			"The backend did not respond in time.",
			types.ErrorTypeGatewayTimeout, "", types.CodeUpstreamError,
		)

	case errors.Is(err, upstream.ErrUnhealthy):
		return types.NewErrorResponse(
			"The backend is unavailable.",
			types.ErrorTypeServiceUnavailable, "", types.CodeUpstreamError,
		)

	default:
		slog.Error("unclassified internal error", "error", err)
		return types.NewServerError("An internal error occurred. Please try again later.")
	}
}
