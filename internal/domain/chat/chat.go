// Package chat implements the chat-completion capability. The provider
// flattens the conversation into an upstream chat request, trying a primary
// model and falling back once to a secondary model on any failure. The
// cloud variant is the same provider over an OpenAI client with a single
// model; which one is active is decided once at process start.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/pearllabs/lolo/internal/domain/task"
	"github.com/pearllabs/lolo/internal/infra/llm"
)

const healthTimeout = 2 * time.Second

// Provider implements task.Provider for the chat capability.
type Provider struct {
	name     string
	client   llm.Client
	primary  string
	fallback string // empty disables the fallback attempt
}

// NewLocal creates the local (Ollama-backed) chat provider with a primary
// and a fallback model against the same endpoint.
func NewLocal(client llm.Client, primary, fallback string) *Provider {
	return &Provider{name: "llm", client: client, primary: primary, fallback: fallback}
}

// NewCloud creates the cloud chat variant: one model (the client default),
// no fallback.
func NewCloud(client llm.Client) *Provider {
	return &Provider{name: "llm_openai", client: client}
}

// Name implements task.Provider.
func (p *Provider) Name() string { return p.name }

// Health probes the upstream with a short timeout. For Ollama the details
// list the installed models; failures land in details["error"].
func (p *Provider) Health(ctx context.Context) task.Health {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	meta := p.client.ModelInfo()
	details := map[string]any{"provider": meta.Provider, "model": meta.ID}

	if err := p.client.HealthCheck(ctx); err != nil {
		details["error"] = err.Error()
		return task.NewHealth(p.name, false, details)
	}
	if lister, ok := p.client.(llm.ModelLister); ok {
		if models, err := lister.ListModels(ctx); err == nil {
			details["models"] = models
		}
	}
	return task.NewHealth(p.name, true, details)
}

// Invoke runs the completion against the primary model, then once against
// the fallback on any failure. Both failing yields OK=false with a
// remediation hint.
func (p *Provider) Invoke(ctx context.Context, t task.Task) task.ProviderResult {
	start := time.Now()

	messages := make([]llm.Message, len(t.Messages))
	for i, m := range t.Messages {
		messages[i] = llm.Message{Role: m.Role, Content: m.Content}
	}

	var lastErr error
	for _, model := range p.models() {
		resp, err := p.client.ChatCompletion(ctx, llm.ChatRequest{Model: model, Messages: messages})
		if err != nil {
			lastErr = err
			continue
		}
		res := task.Success(resp.Content)
		if resp.FinishReason != "" {
			res.FinishReason = resp.FinishReason
		}
		res.Usage = task.Usage{
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.CompletionTokens,
			LatencyMS:        time.Since(start).Milliseconds(),
		}
		return res
	}

	warning := "chat failed"
	if lastErr != nil {
		warning = fmt.Sprintf("chat failed: %v", lastErr)
	}
	return task.Failure(
		"The model service is not reachable. Start the local model server and pull the configured models.",
		warning,
	)
}

// models returns the ordered model candidates for one invocation. An empty
// entry lets the client fall back to its default model.
func (p *Provider) models() []string {
	if p.primary == "" {
		return []string{""}
	}
	if p.fallback == "" || p.fallback == p.primary {
		return []string{p.primary}
	}
	return []string{p.primary, p.fallback}
}
