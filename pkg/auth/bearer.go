package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// AuthorizationHeader is the HTTP header carrying the bearer credential.
const AuthorizationHeader = "Authorization"

// ErrMissingCredential is returned when the Authorization header is absent
// or not of the form "Bearer <token>".
var ErrMissingCredential = errors.New("auth: missing or malformed Authorization header")

// ExtractBearer returns the bearer token from the request's Authorization
// header. The scheme comparison is case-insensitive.
func ExtractBearer(r *http.Request) (string, error) {
	header := r.Header.Get(AuthorizationHeader)
	if header == "" {
		return "", ErrMissingCredential
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMissingCredential
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}

// Fingerprint returns the hex-encoded SHA-256 digest of the credential.
// The fingerprint is the session-ownership key; the raw credential is
// discarded after the backend call.
func Fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// IsRawCredential reports whether the token looks like a backend API key
// rather than a federated identity token. Backend keys carry the "sk-"
// prefix; anything else is handed to the identity verifier.
func IsRawCredential(token string) bool {
	return strings.HasPrefix(token, "sk-")
}
