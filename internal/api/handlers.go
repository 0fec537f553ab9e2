package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pearllabs/lolo/internal/domain/router"
	"github.com/pearllabs/lolo/internal/domain/task"
	"github.com/pearllabs/lolo/internal/infra/eventbus"
)

// taskHandler serves the task routing endpoints.
type taskHandler struct {
	router *router.Router
	bus    eventbus.EventBus
}

// healthResponse is the wire shape of GET /health.
type healthResponse struct {
	Status    string                 `json:"status"` // "ok" | "degraded"
	Providers map[string]task.Health `json:"providers"`
}

// InvokedPayload is published on eventbus.TopicTaskInvoked for every routed
// task.
type InvokedPayload struct {
	Intent    task.Capability
	OK        bool
	LatencyMS int64
	Warnings  int
}

// Health probes every provider and reports "degraded" when any probe fails.
func (h *taskHandler) Health(w http.ResponseWriter, r *http.Request) {
	statuses := h.router.HealthAll(r.Context())

	status := "ok"
	for _, s := range statuses {
		if !s.OK {
			status = "degraded"
			break
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: status, Providers: statuses})
}

// Invoke decodes a task, routes it, and returns the provider result. A
// failed provider is still HTTP 200: OK=false is an application-level
// outcome, not a transport error.
func (h *taskHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	var t task.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if t.Intent != "" && !t.Intent.Valid() {
		writeError(w, http.StatusBadRequest, "unknown intent "+string(t.Intent))
		return
	}
	if len(t.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	start := time.Now()
	res := h.router.Route(r.Context(), t)

	if h.bus != nil {
		h.bus.Publish(eventbus.TopicTaskInvoked, InvokedPayload{
			Intent:    t.Intent,
			OK:        res.OK,
			LatencyMS: time.Since(start).Milliseconds(),
			Warnings:  len(res.Warnings),
		})
	}
	writeJSON(w, http.StatusOK, res)
}

// writeJSON serialises v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError emits the uniform error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
