package llm

import "context"

// Client is the model-agnostic interface for upstream model servers.
type Client interface {
	// ChatCompletion performs a non-streaming chat completion.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Embed computes dense vector representations for a batch of texts.
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)

	// ModelInfo returns static metadata about the client/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the upstream is reachable and operational.
	HealthCheck(ctx context.Context) error
}

// ModelLister is implemented by clients whose upstream can enumerate its
// installed models (Ollama's /api/tags). Health probes use it for details.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}
