package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"crosslake-dev/strait/pkg/auth"
	"crosslake-dev/strait/pkg/gateway"
	"crosslake-dev/strait/pkg/gateway/types"
)

// internalUserRole is forced onto every federated provisioning request. A
// verified-but-untrusted caller must not be able to request a privileged
// role for itself in the body.
const internalUserRole = "internal_user"

// NewUser provisions a backend account.
//
// A raw backend credential is forwarded as presented. A federated identity
// token is verified first; the verified subject is bound to the account
// identifiers and the request is re-authenticated with the master key, so
// the backend performs the creation on the caller's behalf.
func (h *Handler) NewUser(w http.ResponseWriter, r *http.Request) {
	credential, err := auth.ExtractBearer(r)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, gateway.MaxRequestBodySize))
	if err != nil {
		gateway.WriteErrorResponse(w, types.NewInvalidRequestError("Failed to read request body.", "", types.CodeInvalidJSON))
		return
	}

	forwardCredential := credential

	if !auth.IsRawCredential(credential) {
		if h.verifier == nil {
			gateway.WriteError(w, auth.ErrInvalidToken)
			return
		}
		subject, err := h.verifier.Verify(credential)
		if err != nil {
			gateway.WriteError(w, err)
			return
		}

		fields := make(map[string]json.RawMessage)
		if len(body) > 0 {
			if err := json.Unmarshal(body, &fields); err != nil {
				gateway.WriteErrorResponse(w, types.NewInvalidRequestError(err.Error(), "", types.CodeInvalidJSON))
				return
			}
		}

		encodedSubject, _ := json.Marshal(subject)
		encodedRole, _ := json.Marshal(internalUserRole)
		fields["user_id"] = encodedSubject
		fields["user_email"] = encodedSubject
		fields["user_role"] = encodedRole

		if body, err = json.Marshal(fields); err != nil {
			gateway.WriteErrorResponse(w, types.NewServerError("Failed to build provisioning request."))
			return
		}

		forwardCredential = h.masterKey

		h.logger.Info("provisioning federated user", "subject", subject)
	}

	h.forward(w, r, "/user/new", body, forwardCredential)
}

// GenerateKey forwards a key-creation request, re-authenticated with the
// master key.
func (h *Handler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.ExtractBearer(r); err != nil {
		gateway.WriteError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, gateway.MaxRequestBodySize))
	if err != nil {
		gateway.WriteErrorResponse(w, types.NewInvalidRequestError("Failed to read request body.", "", types.CodeInvalidJSON))
		return
	}

	h.forward(w, r, "/key/generate", body, h.masterKey)
}

// forward relays a provisioning call and copies the backend response back
// verbatim.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request, path string, body []byte, credential string) {
	resp, err := h.backend.Forward(r.Context(), http.MethodPost, path, body, credential)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	defer resp.Body.Close()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to relay provisioning response", "error", err)
	}
}
