package solver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pearllabs/lolo/internal/domain/task"
	"github.com/pearllabs/lolo/internal/infra/cache"
	"github.com/pearllabs/lolo/internal/infra/retry"
)

func openCache(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func solveTask(content string) task.Task {
	return task.Task{
		Intent:   task.CapabilitySolve,
		Messages: []task.Message{{Role: "user", Content: content}},
	}
}

func TestInvoke_SolveThenCacheHit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/solve" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		if payload["task"] != "sudoku" {
			t.Errorf("expected default task sudoku, got %v", payload["task"])
		}
		if _, ok := payload["grid"]; !ok {
			t.Error("expected extracted grid in payload")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answer":"solved it","steps":["row scan","col scan"]}`))
	}))
	defer srv.Close()

	p := New(Options{BaseURL: srv.URL}, openCache(t))

	res := p.Invoke(context.Background(), solveTask(validPuzzle))
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
	if !strings.HasPrefix(res.Text, "# HRM Result\n\n") {
		t.Errorf("unexpected heading: %q", res.Text)
	}
	if !strings.Contains(res.Text, "**Answer**") || !strings.Contains(res.Text, "solved it") {
		t.Errorf("headline section missing: %q", res.Text)
	}
	if !strings.Contains(res.Text, "- row scan") {
		t.Errorf("steps list missing: %q", res.Text)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("fresh solve must carry no warnings, got %v", res.Warnings)
	}

	// Second invocation: identical payload, must be served from the cache
	// and render the exact same text.
	res2 := p.Invoke(context.Background(), solveTask(validPuzzle))
	if !res2.OK {
		t.Fatalf("expected cached success, got %+v", res2)
	}
	if res2.Text != res.Text {
		t.Errorf("hit and miss must render identically:\n%q\nvs\n%q", res2.Text, res.Text)
	}
	if len(res2.Warnings) != 1 || res2.Warnings[0] != "cached" {
		t.Errorf("expected cached warning, got %v", res2.Warnings)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected exactly one upstream call, got %d", got)
	}
}

func TestInvoke_InvalidGridShortCircuits(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid grid must never reach the service")
	}))
	defer srv.Close()

	p := New(Options{BaseURL: srv.URL}, openCache(t))

	// duplicate 5 in the first row
	bad := "55" + validPuzzle[2:]
	res := p.Invoke(context.Background(), solveTask(bad))
	if res.OK {
		t.Fatal("expected failure for invalid grid")
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != "invalid_grid" {
		t.Errorf("expected invalid_grid warning, got %v", res.Warnings)
	}
	if res.Text == "" {
		t.Error("failure must carry remediation text")
	}
}

func TestInvoke_UpstreamFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(Options{BaseURL: srv.URL}, openCache(t))
	// keep the retry loop fast under test
	p.policy = retry.Policy{Attempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	res := p.Invoke(context.Background(), solveTask("what is 2+2?"))
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Text != "HRM request failed." {
		t.Errorf("unexpected text %q", res.Text)
	}
	if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0], "500") {
		t.Errorf("expected status in warning, got %v", res.Warnings)
	}
}

func TestInvoke_EmptyPrompt(t *testing.T) {
	t.Parallel()

	p := New(Options{BaseURL: "http://127.0.0.1:0"}, openCache(t))
	res := p.Invoke(context.Background(), task.Task{Intent: task.CapabilitySolve})
	if res.OK {
		t.Fatal("expected failure for empty prompt")
	}
	if res.Warnings[0] != "empty_prompt" {
		t.Errorf("expected empty_prompt warning, got %v", res.Warnings)
	}
}

func TestInvoke_FencedEnforcementIgnoresUnfencedGrid(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if _, ok := payload["grid"]; ok {
			t.Error("unfenced digits must not be extracted when enforcement is on")
		}
		w.Write([]byte(`{"answer":"ok"}`))
	}))
	defer srv.Close()

	p := New(Options{BaseURL: srv.URL, EnforceFencedBlock: true}, openCache(t))

	res := p.Invoke(context.Background(), solveTask(validPuzzle))
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
}

func TestInvoke_SummaryFallbackPrettyJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"weird_field":42}`))
	}))
	defer srv.Close()

	p := New(Options{BaseURL: srv.URL}, openCache(t))

	res := p.Invoke(context.Background(), solveTask("something unusual"))
	if !res.OK {
		t.Fatalf("expected success, got %+v", res)
	}
	if !strings.Contains(res.Text, "```json") || !strings.Contains(res.Text, "weird_field") {
		t.Errorf("expected pretty JSON fallback, got %q", res.Text)
	}
}

func TestCacheKey_OrderIndependent(t *testing.T) {
	t.Parallel()

	a, err := cacheKey(map[string]any{"prompt": "p", "task": "sudoku"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := cacheKey(map[string]any{"task": "sudoku", "prompt": "p"})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("fingerprints differ: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "hrm:") {
		t.Errorf("expected hrm: prefix, got %q", a)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := New(Options{BaseURL: srv.URL}, openCache(t))
	if h := p.Health(context.Background()); !h.OK {
		t.Errorf("expected healthy, got %+v", h)
	}

	down := New(Options{BaseURL: "http://127.0.0.1:1"}, openCache(t))
	if h := down.Health(context.Background()); h.OK {
		t.Error("expected unhealthy for unreachable service")
	}
}
