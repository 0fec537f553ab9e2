// Package websearch implements the search capability over hosted search
// APIs. The feature ships disabled; enabling it without the matching API
// key yields an explicit failure before any network traffic. The query is
// the task's last message verbatim; routing prefixes like "net:" are not
// stripped.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pearllabs/lolo/internal/domain/task"
)

const snippetLen = 400

const (
	ProviderTavily  = "tavily"
	ProviderSerpAPI = "serpapi"
)

// Options configure the provider.
type Options struct {
	Enabled    bool
	Provider   string // "tavily" | "serpapi"
	MaxResults int
	Timeout    time.Duration
	TavilyKey  string
	SerpAPIKey string

	// endpoint overrides for tests; empty means the hosted services
	TavilyURL  string
	SerpAPIURL string
}

// Provider implements task.Provider for the search capability.
type Provider struct {
	opts   Options
	client *http.Client
}

// New creates the web search provider.
func New(opts Options) *Provider {
	if opts.Provider == "" {
		opts.Provider = ProviderTavily
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.TavilyURL == "" {
		opts.TavilyURL = "https://api.tavily.com/search"
	}
	if opts.SerpAPIURL == "" {
		opts.SerpAPIURL = "https://serpapi.com/search.json"
	}
	return &Provider{opts: opts, client: &http.Client{Timeout: opts.Timeout}}
}

// Name implements task.Provider.
func (p *Provider) Name() string { return "websearch" }

// Health reports configuration state without touching the network: enabled
// flag, selected backend, and whether its key is present.
func (p *Provider) Health(_ context.Context) task.Health {
	details := map[string]any{
		"enabled":  p.opts.Enabled,
		"provider": p.opts.Provider,
		"has_key":  p.key() != "",
	}
	ok := p.opts.Enabled && p.key() != ""
	return task.NewHealth(p.Name(), ok, details)
}

// Invoke runs the query against the configured backend.
func (p *Provider) Invoke(ctx context.Context, t task.Task) task.ProviderResult {
	start := time.Now()

	if !p.opts.Enabled {
		return task.Failure(
			"Web search is disabled. Enable it in the configuration to use this capability.",
			"search_disabled",
		)
	}
	if p.opts.Provider != ProviderTavily && p.opts.Provider != ProviderSerpAPI {
		return task.Failure(
			fmt.Sprintf("Unknown search provider %q. Use tavily or serpapi.", p.opts.Provider),
			"unknown_provider",
		)
	}
	if p.key() == "" {
		return task.Failure(
			fmt.Sprintf("Web search is enabled but no API key is set for %s. Export the key and restart.", p.opts.Provider),
			"missing_api_key",
		)
	}

	query := strings.TrimSpace(t.LastMessage())
	if query == "" {
		return task.Failure("Provide a query to search for.", "empty_query")
	}
	maxResults := t.ParamInt("max_results", p.opts.MaxResults)

	var (
		citations []task.Citation
		err       error
	)
	if p.opts.Provider == ProviderTavily {
		citations, err = p.searchTavily(ctx, query, maxResults)
	} else {
		citations, err = p.searchSerpAPI(ctx, query, maxResults)
	}
	if err != nil {
		return task.Failure(
			"Web search failed. Check connectivity and the API key, then retry.",
			fmt.Sprintf("search: %v", err),
		)
	}

	res := task.Success(composeAnswer(citations))
	res.Citations = citations
	res.Usage.LatencyMS = time.Since(start).Milliseconds()
	return res
}

// key returns the API key for the selected backend.
func (p *Provider) key() string {
	switch p.opts.Provider {
	case ProviderTavily:
		return p.opts.TavilyKey
	case ProviderSerpAPI:
		return p.opts.SerpAPIKey
	}
	return ""
}

// searchTavily POSTs the query with the key in the JSON body.
func (p *Provider) searchTavily(ctx context.Context, query string, maxResults int) ([]task.Citation, error) {
	body, err := json.Marshal(map[string]any{
		"api_key":     p.opts.TavilyKey,
		"query":       query,
		"max_results": maxResults,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.TavilyURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned %d", resp.StatusCode)
	}

	var decoded struct {
		Results []struct {
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	citations := make([]task.Citation, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		citations = append(citations, task.Citation{Source: r.URL, Snippet: truncate(r.Content, snippetLen)})
	}
	return citations, nil
}

// searchSerpAPI GETs the query with the key in the query string.
func (p *Provider) searchSerpAPI(ctx context.Context, query string, maxResults int) ([]task.Citation, error) {
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("num", strconv.Itoa(maxResults))
	q.Set("api_key", p.opts.SerpAPIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.SerpAPIURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi returned %d", resp.StatusCode)
	}

	var decoded struct {
		OrganicResults []struct {
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}

	citations := make([]task.Citation, 0, len(decoded.OrganicResults))
	for i, r := range decoded.OrganicResults {
		if i == maxResults {
			break
		}
		citations = append(citations, task.Citation{Source: r.Link, Snippet: truncate(r.Snippet, snippetLen)})
	}
	return citations, nil
}

// composeAnswer renders search hits as a short bullet list.
func composeAnswer(citations []task.Citation) string {
	if len(citations) == 0 {
		return "No results found."
	}
	text := "Top results:"
	for _, c := range citations {
		text += fmt.Sprintf("\n- %s: %s", c.Source, c.Snippet)
	}
	return text
}

// truncate caps s at n runes. Byte slicing would split multibyte
// characters, which matters for Arabic snippets.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
