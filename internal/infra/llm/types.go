// Package llm defines the model-server client abstraction shared by the
// chat and retrieval providers. Adapters (Ollama, OpenAI) implement the
// same interface so the capability layer is never coupled to one vendor.
package llm

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the client default when non-empty.
	Model    string
	Messages []Message
}

// ChatResponse is the output from a non-streaming chat completion.
type ChatResponse struct {
	Content          string // the assistant message text
	FinishReason     string // "stop" | "length" | ...
	PromptTokens     int
	CompletionTokens int
}

// EmbedRequest is the input for a batch embedding call.
type EmbedRequest struct {
	// Model overrides the client default when non-empty.
	Model string
	Texts []string
}

// EmbedResponse is the output from a batch embedding call.
// Embeddings[i] corresponds to Texts[i] in the request.
type EmbedResponse struct {
	Embeddings [][]float32
}

// ModelMeta describes the client / model identity.
type ModelMeta struct {
	ID       string // e.g. "qwen2.5:14b", "gpt-4o-mini"
	Provider string // e.g. "ollama", "openai"
}
