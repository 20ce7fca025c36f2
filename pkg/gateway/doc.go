// Package gateway holds the HTTP boundary of the translation gateway:
// request parsing, response writing, and the mapping from internal errors to
// the OpenAI-compatible error envelope.
package gateway
