// Package api is the HTTP front door: route registration, request
// decoding and the JSON wire format. All task semantics live behind the
// router; handlers only translate between HTTP and the task contracts.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pearllabs/lolo/internal/domain/router"
	"github.com/pearllabs/lolo/internal/infra/eventbus"
)

// Deps are the services the API surfaces.
type Deps struct {
	Router *router.Router
	Bus    eventbus.EventBus
	Log    zerolog.Logger
}

// NewRouter creates and configures the chi router with all routes.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Log))
	r.Use(middleware.Recoverer)

	h := &taskHandler{router: deps.Router, bus: deps.Bus}
	r.Get("/health", h.Health)   // GET /health
	r.Post("/invoke", h.Invoke)  // POST /invoke

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
