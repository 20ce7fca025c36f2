// Strait is a protocol-translation gateway between the Bedrock Converse API
// and OpenAI-compatible chat-completion backends.
//
// It accepts requests in either protocol and forwards them to a single
// OpenAI-compatible backend, providing:
//   - Converse JSON and binary event-stream translation
//   - Server-side conversation history with session ownership
//   - Managed prompt references with variable substitution
//   - Federated user provisioning and key generation
//   - Token usage accounting and Prometheus metrics
//
// Usage:
//
//	# Start the gateway with default configuration
//	strait run
//
//	# Start with a custom configuration file
//	strait run --config /path/to/config.yaml
//
//	# Show version information
//	strait version
package main

func main() {
	Execute()
}
