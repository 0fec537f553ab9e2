package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newOllamaTestServer fakes the three Ollama endpoints the client uses.
func newOllamaTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "qwen2.5:14b"},
				{"name": "qwen2.5:7b"},
			},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req openAIChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": "echo:" + req.Messages[len(req.Messages)-1].Content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 5},
		})
	})
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.1, 0.2, 0.3}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaClient_ChatCompletion(t *testing.T) {
	t.Parallel()

	srv := newOllamaTestServer(t)
	c := NewOllamaClient(srv.URL, "qwen2.5:14b", "nomic-embed-text", 5*time.Second)

	resp, err := c.ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}
	if resp.Content != "echo:hello" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("unexpected finish reason %q", resp.FinishReason)
	}
	if resp.PromptTokens != 12 || resp.CompletionTokens != 5 {
		t.Errorf("unexpected usage: %+v", resp)
	}
}

func TestOllamaClient_ChatCompletion_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewOllamaClient(srv.URL, "m", "e", time.Second)
	_, err := c.ChatCompletion(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	if err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestOllamaClient_Embed_BatchOfTwo(t *testing.T) {
	t.Parallel()

	srv := newOllamaTestServer(t)
	c := NewOllamaClient(srv.URL, "qwen2.5:14b", "nomic-embed-text", 5*time.Second)

	resp, err := c.Embed(context.Background(), EmbedRequest{Texts: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(resp.Embeddings) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(resp.Embeddings))
	}
	if len(resp.Embeddings[0]) != 3 {
		t.Errorf("expected 3-dim vector, got %d", len(resp.Embeddings[0]))
	}
}

func TestOllamaClient_ListModels(t *testing.T) {
	t.Parallel()

	srv := newOllamaTestServer(t)
	c := NewOllamaClient(srv.URL, "qwen2.5:14b", "nomic-embed-text", 5*time.Second)

	names, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(names) != 2 || names[0] != "qwen2.5:14b" {
		t.Errorf("unexpected model names: %v", names)
	}

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck against live fake should pass: %v", err)
	}
}

func TestOllamaClient_HealthCheck_Unreachable(t *testing.T) {
	t.Parallel()

	c := NewOllamaClient("http://127.0.0.1:1", "m", "e", 200*time.Millisecond)
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check failure against closed port")
	}
}
