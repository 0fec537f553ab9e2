// Package router dispatches a task to exactly one capability provider.
// Routing is single-hop and stateless: a pure function of the provider
// registry and the incoming task. Failure handling lives inside providers;
// the router never retries and never sees an error cross its boundary.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/pearllabs/lolo/internal/domain/task"
)

// Router maps capabilities to providers.
type Router struct {
	providers map[task.Capability]task.Provider
}

// New creates a Router over the given registry. A chat provider is the
// routing fallback and must be registered; its absence is a configuration
// error, not a runtime condition.
func New(providers map[task.Capability]task.Provider) (*Router, error) {
	if _, ok := providers[task.CapabilityChat]; !ok {
		return nil, fmt.Errorf("router: no chat provider registered (available: %v)", keys(providers))
	}
	// defensive copy so the caller cannot mutate the registry afterwards.
	ps := make(map[task.Capability]task.Provider, len(providers))
	for k, v := range providers {
		ps[k] = v
	}
	return &Router{providers: ps}, nil
}

// Route selects a provider and invokes it. Order, first match wins:
//
//  1. the task's intent has a registered provider;
//  2. any message mentions "source" or "citation" and rag is registered;
//  3. the last message starts with "net:" or "search:" and search is
//     registered;
//  4. chat.
//
// Content sniffing is English-only token matching, case-insensitive.
func (r *Router) Route(ctx context.Context, t task.Task) task.ProviderResult {
	if p, ok := r.providers[t.Intent]; ok {
		return p.Invoke(ctx, t)
	}

	if p, ok := r.providers[task.CapabilityRetrieval]; ok && wantsSources(t) {
		return p.Invoke(ctx, t)
	}

	if p, ok := r.providers[task.CapabilitySearch]; ok && wantsSearch(t) {
		return p.Invoke(ctx, t)
	}

	return r.providers[task.CapabilityChat].Invoke(ctx, t)
}

// HealthAll probes every registered provider. Probes are cheap and never
// panic, so a sequential pass keeps the output deterministic.
func (r *Router) HealthAll(ctx context.Context) map[string]task.Health {
	out := make(map[string]task.Health, len(r.providers))
	for cap, p := range r.providers {
		out[string(cap)] = p.Health(ctx)
	}
	return out
}

// wantsSources reports whether any message asks for sources or citations.
func wantsSources(t task.Task) bool {
	for _, m := range t.Messages {
		c := strings.ToLower(m.Content)
		if strings.Contains(c, "source") || strings.Contains(c, "citation") {
			return true
		}
	}
	return false
}

// wantsSearch reports whether the last message carries a search prefix.
func wantsSearch(t task.Task) bool {
	last := strings.ToLower(strings.TrimSpace(t.LastMessage()))
	return strings.HasPrefix(last, "net:") || strings.HasPrefix(last, "search:")
}

func keys(providers map[task.Capability]task.Provider) []task.Capability {
	out := make([]task.Capability, 0, len(providers))
	for k := range providers {
		out = append(out, k)
	}
	return out
}
