// Package translate is the stateless format converter between the Bedrock
// Converse shape and the OpenAI chat-completions shape. Request translation
// runs B to O, response translation runs O to B, and history projection
// renders a stored OpenAI-shaped conversation back into Converse form.
package translate
