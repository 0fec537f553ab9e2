// OpenAI HTTP adapter, the cloud-backed variant of the chat capability.
// Same Client contract as the Ollama adapter, single model, bearer auth.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient implements Client against the OpenAI REST API (or any
// API-compatible endpoint via baseURL override).
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient creates an OpenAIClient. An empty baseURL falls back to
// the public API; an empty model falls back to gpt-4o-mini.
func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// ChatCompletion performs a non-streaming chat via POST /chat/completions.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openai chat: missing API key")
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(openAIChatRequest{Model: model, Messages: req.Messages})
	if err != nil {
		return nil, err
	}

	respBody, postErr := c.doPost(ctx, "/chat/completions", body)
	if postErr != nil {
		return nil, postErr
	}
	defer respBody.Close()

	return decodeOpenAIChat(respBody)
}

// Embed computes embeddings in a single batch via POST /embeddings.
func (c *OpenAIClient) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openai embed: missing API key")
	}
	if len(req.Texts) == 0 {
		return &EmbedResponse{Embeddings: [][]float32{}}, nil
	}

	model := req.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	body, err := json.Marshal(openAIEmbedRequest{Model: model, Input: req.Texts})
	if err != nil {
		return nil, err
	}

	respBody, postErr := c.doPost(ctx, "/embeddings", body)
	if postErr != nil {
		return nil, postErr
	}
	defer respBody.Close()

	var resp openAIEmbedResponse
	if decodeErr := json.NewDecoder(respBody).Decode(&resp); decodeErr != nil {
		return nil, fmt.Errorf("decode embed response: %w", decodeErr)
	}
	embeddings := make([][]float32, 0, len(resp.Data))
	for _, d := range resp.Data {
		embeddings = append(embeddings, d.Embedding)
	}
	return &EmbedResponse{Embeddings: embeddings}, nil
}

// ModelInfo returns static metadata for this client/model.
func (c *OpenAIClient) ModelInfo() ModelMeta {
	return ModelMeta{ID: c.model, Provider: "openai"}
}

// HealthCheck verifies configuration only: a missing API key is a permanent
// health failure; no network probe is attempted against the paid API.
func (c *OpenAIClient) HealthCheck(_ context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("openai: missing API key")
	}
	return nil
}

// doPost sends an authenticated POST to baseURL+path and returns the body.
// Caller is responsible for closing the returned ReadCloser.
func (c *OpenAIClient) doPost(ctx context.Context, path string, body []byte) (io.ReadCloser, error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai post %s: build request: %w", path, err)
	}
	req.Header.Set(headerContentType, mimeJSON)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai post %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close() //nolint:errcheck
		return nil, fmt.Errorf("openai post %s: status %d", path, resp.StatusCode)
	}
	return resp.Body, nil
}
