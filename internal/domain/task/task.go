// Package task defines the contracts shared by the router and every
// capability provider: the typed Task, the uniform ProviderResult, the
// Health probe shape and the Provider interface itself.
package task

import (
	"context"
	"time"
)

// Capability is a named category of AI task. The set is closed: the router
// dispatches over exactly these six kinds.
type Capability string

const (
	CapabilityChat      Capability = "chat"
	CapabilitySolve     Capability = "solve"
	CapabilityRetrieval Capability = "rag"
	CapabilityTTS       Capability = "tts"
	CapabilitySTT       Capability = "stt"
	CapabilitySearch    Capability = "search"
)

// Valid reports whether c is one of the six known capabilities.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityChat, CapabilitySolve, CapabilityRetrieval,
		CapabilityTTS, CapabilitySTT, CapabilitySearch:
		return true
	}
	return false
}

// Message is a single turn in a conversation.
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

// Attachment references an external artefact carried alongside a task
// (audio for stt, a file for ingestion, ...).
type Attachment struct {
	Kind      string         `json:"kind"`
	PathOrURI string         `json:"path_or_uri"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Task is the unit of work accepted by the router. Immutable once
// constructed; consumed by exactly one provider per routing decision.
type Task struct {
	Intent      Capability     `json:"intent"`
	Messages    []Message      `json:"messages"`
	Params      map[string]any `json:"params,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Locale      string         `json:"locale,omitempty"`
	TZ          string         `json:"tz,omitempty"`
	UserTags    []string       `json:"user_tags,omitempty"`
}

// LastMessage returns the content of the final message, or "" when the
// history is empty.
func (t Task) LastMessage() string {
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[len(t.Messages)-1].Content
}

// ParamString returns params[key] when it is a non-empty string,
// otherwise fallback.
func (t Task) ParamString(key, fallback string) string {
	if v, ok := t.Params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// ParamInt returns params[key] as an int when present (JSON numbers decode
// as float64), otherwise fallback.
func (t Task) ParamInt(key string, fallback int) int {
	switch v := t.Params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

// ParamBool returns params[key] as a bool when present, otherwise fallback.
func (t Task) ParamBool(key string, fallback bool) bool {
	if v, ok := t.Params[key].(bool); ok {
		return v
	}
	return fallback
}

// Citation is one retrieved or searched source backing a result.
type Citation struct {
	Source  string   `json:"source"`
	Snippet string   `json:"snippet,omitempty"`
	Score   *float64 `json:"score,omitempty"`
}

// Usage records the cost of a provider invocation.
type Usage struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	LatencyMS        int64 `json:"latency_ms"`
}

// ProviderResult is the uniform outcome of an invocation.
// Invariant: OK=false implies Text carries a user-facing explanation and
// Warnings is non-empty.
type ProviderResult struct {
	OK           bool           `json:"ok"`
	Text         string         `json:"text"`
	Data         map[string]any `json:"data,omitempty"`
	Citations    []Citation     `json:"citations,omitempty"`
	Usage        Usage          `json:"usage"`
	Warnings     []string       `json:"warnings,omitempty"`
	FinishReason string         `json:"finish_reason"`
}

// Failure builds an OK=false result honouring the result invariant: text is
// the user-facing remediation, warnings carry at least one diagnostic code.
func Failure(text string, warnings ...string) ProviderResult {
	if len(warnings) == 0 {
		warnings = []string{"provider_failure"}
	}
	return ProviderResult{
		OK:           false,
		Text:         text,
		Warnings:     warnings,
		FinishReason: "error",
	}
}

// Success builds an OK=true result with the default finish reason.
func Success(text string) ProviderResult {
	return ProviderResult{OK: true, Text: text, FinishReason: "stop"}
}

// Health is the outcome of a liveness probe. Ephemeral: recomputed on every
// query, never persisted.
type Health struct {
	Name      string         `json:"name"`
	OK        bool           `json:"ok"`
	Details   map[string]any `json:"details,omitempty"`
	CheckedAt time.Time      `json:"checked_at"`
}

// NewHealth stamps a Health record with the current time.
func NewHealth(name string, ok bool, details map[string]any) Health {
	return Health{Name: name, OK: ok, Details: details, CheckedAt: time.Now().UTC()}
}

// Provider is the uniform contract every capability implementation fulfils.
//
// Health must be cheap and side-effect free; failures become OK=false with
// the error captured in Details; it never panics. Invoke never surfaces an
// error to the caller: every upstream failure is converted into an OK=false
// ProviderResult. Implementations must be safe for concurrent Invoke calls.
type Provider interface {
	Name() string
	Health(ctx context.Context) Health
	Invoke(ctx context.Context, t Task) ProviderResult
}
