// Package server assembles the application: configuration, logging, the
// provider registry, the HTTP front door and graceful shutdown. The wiring
// happens once here; nothing below this package knows the full dependency
// graph.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pearllabs/lolo/internal/api"
	"github.com/pearllabs/lolo/internal/domain/chat"
	"github.com/pearllabs/lolo/internal/domain/retrieval"
	"github.com/pearllabs/lolo/internal/domain/router"
	"github.com/pearllabs/lolo/internal/domain/solver"
	"github.com/pearllabs/lolo/internal/domain/speech"
	"github.com/pearllabs/lolo/internal/domain/task"
	"github.com/pearllabs/lolo/internal/domain/websearch"
	"github.com/pearllabs/lolo/internal/infra/cache"
	"github.com/pearllabs/lolo/internal/infra/config"
	"github.com/pearllabs/lolo/internal/infra/eventbus"
	"github.com/pearllabs/lolo/internal/infra/llm"
	"github.com/pearllabs/lolo/internal/infra/vecstore"
)

// Server owns the HTTP listener and the stores that need closing.
type Server struct {
	cfg   config.Config
	log   zerolog.Logger
	http  *http.Server
	bus   *eventbus.Bus
	cache *cache.Store
	store *vecstore.Store
}

// New wires the full provider registry from configuration and returns a
// ready-to-start server.
func New(cfg config.Config, log zerolog.Logger) (*Server, error) {
	cacheStore, err := cache.Open(cfg.CachePath())
	if err != nil {
		return nil, fmt.Errorf("server: open cache: %w", err)
	}
	vectorStore, err := vecstore.Open(cfg.RAGDBPath())
	if err != nil {
		cacheStore.Close()
		return nil, fmt.Errorf("server: open vector store: %w", err)
	}

	bus := eventbus.New()
	providers, err := buildProviders(cfg, cacheStore, vectorStore)
	if err != nil {
		cacheStore.Close()
		vectorStore.Close()
		return nil, err
	}
	rt, err := router.New(providers)
	if err != nil {
		cacheStore.Close()
		vectorStore.Close()
		return nil, err
	}

	handler := api.NewRouter(api.Deps{Router: rt, Bus: bus, Log: log})
	srv := &Server{
		cfg: cfg,
		log: log,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second, // model calls are slow
			IdleTimeout:  60 * time.Second,
		},
		bus:   bus,
		cache: cacheStore,
		store: vectorStore,
	}
	return srv, nil
}

// buildProviders constructs the capability registry. The chat slot is
// filled by the local or the cloud variant depending on the configured
// mode.
func buildProviders(cfg config.Config, cacheStore *cache.Store, vectorStore *vecstore.Store) (map[task.Capability]task.Provider, error) {
	ollama := llm.NewOllamaClient(cfg.LLM.URL, cfg.LLM.PrimaryModel, cfg.LLM.EmbedModel, cfg.LLM.Timeout())

	var chatProvider task.Provider
	switch cfg.LLMMode.Mode {
	case "local", "":
		chatProvider = chat.NewLocal(ollama, cfg.LLM.PrimaryModel, cfg.LLM.FallbackModel)
	case "openai":
		cloud := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.LLM.Timeout())
		chatProvider = chat.NewCloud(cloud)
	default:
		return nil, fmt.Errorf("server: unknown llm mode %q", cfg.LLMMode.Mode)
	}

	// the retrieval embedder is always local regardless of chat mode
	ragProvider := retrieval.New(vectorStore, ollama, retrieval.Options{
		K:           cfg.RAG.K,
		BM25MinDocs: cfg.RAG.BM25MinDocs,
	})

	solveProvider := solver.New(solver.Options{
		BaseURL:            cfg.HRM.URL,
		HealthPath:         cfg.HRM.HealthPath,
		SolvePath:          cfg.HRM.SolvePath,
		Timeout:            cfg.HRM.Timeout(),
		EnforceFencedBlock: cfg.HRM.EnforceFencedBlock,
		DefaultTask:        cfg.HRM.DefaultTask,
		DefaultStrategy:    cfg.HRM.DefaultStrategy,
	}, cacheStore)

	searchProvider := websearch.New(websearch.Options{
		Enabled:    cfg.Search.Enabled,
		Provider:   cfg.Search.Provider,
		MaxResults: cfg.Search.MaxResults,
		Timeout:    cfg.Search.Timeout(),
		TavilyKey:  cfg.Search.TavilyKey,
		SerpAPIKey: cfg.Search.SerpAPIKey,
	})

	return map[task.Capability]task.Provider{
		task.CapabilityChat:      chatProvider,
		task.CapabilitySolve:     solveProvider,
		task.CapabilityRetrieval: ragProvider,
		task.CapabilitySearch:    searchProvider,
		task.CapabilitySTT:       speech.NewSTT(),
		task.CapabilityTTS:       speech.NewTTS(),
	}, nil
}

// Start runs the listener and the audit log consumer until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go s.consumeAuditEvents(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops the listener and closes the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down")

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := s.cache.Close(); err != nil {
		return fmt.Errorf("server: close cache: %w", err)
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("server: close vector store: %w", err)
	}
	return nil
}

// consumeAuditEvents logs every routed task published on the bus.
func (s *Server) consumeAuditEvents(ctx context.Context) {
	events := s.bus.Subscribe(eventbus.TopicTaskInvoked)
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			payload, ok := evt.Payload.(api.InvokedPayload)
			if !ok {
				continue
			}
			s.log.Info().
				Str("intent", string(payload.Intent)).
				Bool("ok", payload.OK).
				Int64("latency_ms", payload.LatencyMS).
				Int("warnings", payload.Warnings).
				Msg("task invoked")
		}
	}
}
