// Package handlers implements the gateway's HTTP endpoints: the Converse
// surface, the chat-completions passthrough surface, history read-back,
// account provisioning, and health.
package handlers
