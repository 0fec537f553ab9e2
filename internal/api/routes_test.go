package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pearllabs/lolo/internal/domain/router"
	"github.com/pearllabs/lolo/internal/domain/task"
	"github.com/pearllabs/lolo/internal/infra/eventbus"
)

// stubProvider answers every invocation with a canned result.
type stubProvider struct {
	name    string
	healthy bool
	result  task.ProviderResult
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Health(_ context.Context) task.Health {
	return task.NewHealth(s.name, s.healthy, nil)
}

func (s *stubProvider) Invoke(_ context.Context, _ task.Task) task.ProviderResult {
	return s.result
}

func newTestRouter(t *testing.T, bus eventbus.EventBus, providers map[task.Capability]task.Provider) http.Handler {
	t.Helper()
	if providers == nil {
		providers = map[task.Capability]task.Provider{
			task.CapabilityChat: &stubProvider{name: "llm", healthy: true, result: task.Success("hello")},
		}
	}
	rt, err := router.New(providers)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return NewRouter(Deps{Router: rt, Bus: bus, Log: zerolog.Nop()})
}

func TestInvoke_RoutesToChat(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	events := bus.Subscribe(eventbus.TopicTaskInvoked)
	h := newTestRouter(t, bus, nil)

	body := `{"intent":"chat","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res task.ProviderResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.OK || res.Text != "hello" {
		t.Errorf("unexpected result %+v", res)
	}

	select {
	case evt := <-events:
		payload, ok := evt.Payload.(InvokedPayload)
		if !ok || payload.Intent != task.CapabilityChat || !payload.OK {
			t.Errorf("unexpected audit payload %+v", evt.Payload)
		}
	default:
		t.Error("expected a task.invoked event")
	}
}

func TestInvoke_ProviderFailureIsStill200(t *testing.T) {
	t.Parallel()

	providers := map[task.Capability]task.Provider{
		task.CapabilityChat: &stubProvider{
			name:   "llm",
			result: task.Failure("The model service is not reachable.", "chat failed: refused"),
		},
	}
	h := newTestRouter(t, nil, providers)

	body := `{"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("provider failure must stay 200, got %d", rec.Code)
	}
	var res task.ProviderResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.OK || len(res.Warnings) == 0 || res.Text == "" {
		t.Errorf("failure invariant violated on the wire: %+v", res)
	}
}

func TestInvoke_BadRequests(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"unknown intent", `{"intent":"paint","messages":[{"role":"user","content":"hi"}]}`},
		{"no messages", `{"intent":"chat"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			var envelope map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil || envelope["error"] == "" {
				t.Errorf("expected error envelope, got %s", rec.Body.String())
			}
		})
	}
}

func TestHealth_Degraded(t *testing.T) {
	t.Parallel()

	providers := map[task.Capability]task.Provider{
		task.CapabilityChat:  &stubProvider{name: "llm", healthy: true, result: task.Success("x")},
		task.CapabilitySolve: &stubProvider{name: "hrm", healthy: false},
	}
	h := newTestRouter(t, nil, providers)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Status != "degraded" {
		t.Errorf("expected degraded, got %q", res.Status)
	}
	if len(res.Providers) != 2 {
		t.Errorf("expected 2 provider entries, got %v", res.Providers)
	}
	if res.Providers["solve"].OK {
		t.Error("solve must report unhealthy")
	}
}

func TestHealth_AllOK(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Status != "ok" {
		t.Errorf("expected ok, got %q", res.Status)
	}
}
