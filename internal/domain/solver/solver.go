// Package solver implements the solve capability against an external HRM
// reasoning service. Requests are fingerprinted by a canonical JSON
// rendering of the payload and cached forever, so the same puzzle never hits
// the service twice. Sudoku grids embedded in the prompt are extracted and
// validated locally before any network call.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pearllabs/lolo/internal/domain/task"
	"github.com/pearllabs/lolo/internal/infra/cache"
	"github.com/pearllabs/lolo/internal/infra/retry"
)

const (
	defaultLocale = "en-GB"
	defaultTZ     = "Asia/Kuwait"

	healthTimeout = 3 * time.Second
)

// summaryFields are probed in order; the first non-empty one becomes the
// headline section of the rendered result.
var summaryFields = []string{"answer", "final_answer", "solution", "response", "output", "text"}

// listFields render as bullet lists after the headline.
var listFields = []string{"steps", "plan", "insights"}

// Options configure the provider.
type Options struct {
	BaseURL            string
	HealthPath         string
	SolvePath          string
	Timeout            time.Duration
	EnforceFencedBlock bool // only look for grids inside ``` blocks
	DefaultTask        string
	DefaultStrategy    string
}

// Provider implements task.Provider for the solve capability.
type Provider struct {
	opts   Options
	store  *cache.Store
	client *http.Client
	policy retry.Policy
}

// New creates the solver provider over an HRM endpoint and a cache store.
func New(opts Options, store *cache.Store) *Provider {
	if opts.HealthPath == "" {
		opts.HealthPath = "/health"
	}
	if opts.SolvePath == "" {
		opts.SolvePath = "/solve"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.DefaultTask == "" {
		opts.DefaultTask = "sudoku"
	}
	return &Provider{
		opts:   opts,
		store:  store,
		client: &http.Client{Timeout: opts.Timeout},
		policy: retry.DefaultPolicy(),
	}
}

// Name implements task.Provider.
func (p *Provider) Name() string { return "hrm" }

// Health probes the HRM health endpoint with a short timeout and one quick
// retry.
func (p *Provider) Health(ctx context.Context) task.Health {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	policy := retry.Policy{Attempts: 2, BaseDelay: 200 * time.Millisecond, MaxDelay: 200 * time.Millisecond}
	_, err := retry.Do(ctx, policy, func() (struct{}, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.BaseURL+p.opts.HealthPath, nil)
		if reqErr != nil {
			return struct{}{}, reqErr
		}
		resp, doErr := p.client.Do(req)
		if doErr != nil {
			return struct{}{}, doErr
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return struct{}{}, fmt.Errorf("health returned %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return task.NewHealth(p.Name(), false, map[string]any{"error": err.Error(), "url": p.opts.BaseURL})
	}
	return task.NewHealth(p.Name(), true, map[string]any{"url": p.opts.BaseURL})
}

// Invoke builds the solve payload, consults the cache, and only on a miss
// calls the HRM service with retry. An invalid sudoku grid fails before any
// network traffic.
func (p *Provider) Invoke(ctx context.Context, t task.Task) task.ProviderResult {
	start := time.Now()

	prompt := flattenMessages(t.Messages)
	if strings.TrimSpace(prompt) == "" {
		return task.Failure("Provide a puzzle or problem statement to solve.", "empty_prompt")
	}

	taskKind := t.ParamString("task", p.opts.DefaultTask)
	payload := map[string]any{
		"prompt": prompt,
		"task":   taskKind,
		"metadata": map[string]any{
			"locale": valueOr(t.Locale, defaultLocale),
			"tz":     valueOr(t.TZ, defaultTZ),
			"tags":   t.UserTags,
		},
	}
	if strategy := t.ParamString("strategy", p.opts.DefaultStrategy); strategy != "" {
		payload["strategy"] = strategy
	}

	if taskKind == "sudoku" {
		scan := prompt
		if p.opts.EnforceFencedBlock {
			scan = extractFenced(prompt)
		}
		if grid, ok := ExtractGrid(scan); ok {
			if !IsValidSudoku(grid) {
				return task.Failure(
					"The sudoku grid is invalid: a digit repeats within a row, column or box. Fix the grid and try again.",
					"invalid_grid",
				)
			}
			payload["grid"] = grid
		}
	}

	key, err := cacheKey(payload)
	if err != nil {
		return task.Failure("HRM request failed.", fmt.Sprintf("fingerprint: %v", err))
	}

	// a hit renders exactly what the miss path rendered; the only trace of
	// the cache is the "cached" warning
	if raw, hit, getErr := p.store.Get(ctx, key); getErr == nil && hit {
		res := p.render(raw)
		res.Warnings = append(res.Warnings, "cached")
		res.Usage.LatencyMS = time.Since(start).Milliseconds()
		return res
	}

	raw, err := retry.Do(ctx, p.policy, func() (json.RawMessage, error) {
		return p.postSolve(ctx, payload)
	})
	if err != nil {
		return task.Failure("HRM request failed.", fmt.Sprintf("solve: %v", err))
	}

	res := p.render(raw)
	if putErr := p.store.Put(ctx, key, raw); putErr != nil {
		// a broken cache degrades to uncached operation, nothing more
		res.Warnings = append(res.Warnings, fmt.Sprintf("cache write failed: %v", putErr))
	}
	res.Usage.LatencyMS = time.Since(start).Milliseconds()
	return res
}

// postSolve POSTs the payload and returns the raw response body.
func (p *Provider) postSolve(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.BaseURL+p.opts.SolvePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("solve returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("solve returned invalid JSON")
	}
	return raw, nil
}

// render turns a raw HRM response into a successful result with a markdown
// summary. Hit and miss paths share it so the rendered text is identical
// for the same upstream payload.
func (p *Provider) render(raw json.RawMessage) task.ProviderResult {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return task.Failure("HRM request failed.", fmt.Sprintf("decode response: %v", err))
	}
	res := task.Success("# HRM Result\n\n" + summarize(body))
	res.Data = body
	return res
}

// cacheKey produces the content-addressed fingerprint of one solve payload.
// json.Marshal sorts map keys recursively, so structurally equal payloads
// always share a fingerprint regardless of construction order.
func cacheKey(payload map[string]any) (string, error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return "hrm:" + string(canonical), nil
}

// summarize renders the response body as markdown: the first present
// headline field as a titled section, then any step/plan/insight lists,
// falling back to pretty-printed JSON when nothing recognisable is there.
func summarize(body map[string]any) string {
	var sections []string

	for _, field := range summaryFields {
		if v, ok := body[field].(string); ok && strings.TrimSpace(v) != "" {
			sections = append(sections, fmt.Sprintf("**%s**\n\n%s", fieldTitle(field), v))
			break
		}
	}

	for _, field := range listFields {
		items, ok := body[field].([]any)
		if !ok || len(items) == 0 {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**\n", fieldTitle(field))
		for _, item := range items {
			fmt.Fprintf(&b, "\n- %v", item)
		}
		sections = append(sections, b.String())
	}

	if len(sections) == 0 {
		pretty, err := json.MarshalIndent(body, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", body)
		}
		return "```json\n" + string(pretty) + "\n```"
	}
	return strings.Join(sections, "\n\n")
}

// fieldTitle turns "final_answer" into "Final Answer".
func fieldTitle(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// flattenMessages renders the conversation as "[role] content" paragraphs.
func flattenMessages(messages []task.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, fmt.Sprintf("[%s] %s", m.Role, m.Content))
	}
	return strings.Join(parts, "\n\n")
}

func valueOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
