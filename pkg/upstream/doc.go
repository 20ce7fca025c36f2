// Package upstream is the HTTP client for the OpenAI-compatible backend.
// Non-streaming calls run under a bounded timeout; streaming calls have no
// transport timeout and rely on the backend's stream termination or the
// [DONE] sentinel.
package upstream
