// Package session provides the durable, credential-bound conversation store.
//
// Each session row holds an opaque session id, the ordered message history in
// OpenAI shape, and the SHA-256 fingerprint of the owning credential. The
// fingerprint is fixed at creation; every read or history replacement must
// present a matching fingerprint.
//
// ReplaceHistory is a full overwrite with no optimistic versioning: two
// concurrent requests on the same session race and the later write wins.
// This mirrors the reference behavior and is documented rather than fixed.
package session
