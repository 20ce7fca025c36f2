// Package auth extracts bearer credentials, derives their fingerprints, and
// verifies federated identity tokens for the provisioning path.
//
// The raw credential is never stored or logged; all ownership checks are
// performed against its SHA-256 fingerprint.
package auth
