// Package ingest fills the retrieval corpus: it chunks text documents,
// embeds every chunk through the configured embedding client and upserts
// the result into the vector store. A completed run is announced on the
// event bus so interested consumers can log or react.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pearllabs/lolo/internal/infra/eventbus"
	"github.com/pearllabs/lolo/internal/infra/llm"
	"github.com/pearllabs/lolo/internal/infra/retry"
	"github.com/pearllabs/lolo/internal/infra/vecstore"
	"github.com/pearllabs/lolo/pkg/uuid"
)

// embedBatchSize caps how many chunks travel in one embedding request.
const embedBatchSize = 16

// CompletedPayload is published on eventbus.TopicIngestCompleted after a
// successful run.
type CompletedPayload struct {
	Source     string
	ChunkCount int
}

// Service runs the chunk-embed-store pipeline.
type Service struct {
	store    *vecstore.Store
	embedder llm.Client
	bus      eventbus.EventBus
	policy   retry.Policy

	chunkSize int
	overlap   int
}

// New creates the ingestion service. The bus may be nil when no consumer
// cares about completion events.
func New(store *vecstore.Store, embedder llm.Client, bus eventbus.EventBus) *Service {
	return &Service{
		store:     store,
		embedder:  embedder,
		bus:       bus,
		policy:    retry.DefaultPolicy(),
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
}

// IngestText chunks and stores a single document under the given source
// label. Returns the number of chunks stored.
func (s *Service) IngestText(ctx context.Context, source, text string) (int, error) {
	chunks := Chunk(text, s.chunkSize, s.overlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	var docs []vecstore.Document
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		resp, err := retry.Do(ctx, s.policy, func() (*llm.EmbedResponse, error) {
			return s.embedder.Embed(ctx, llm.EmbedRequest{Texts: batch})
		})
		if err != nil {
			return 0, fmt.Errorf("ingest %q: embed: %w", source, err)
		}
		if len(resp.Embeddings) != len(batch) {
			return 0, fmt.Errorf("ingest %q: embedder returned %d vectors for %d chunks",
				source, len(resp.Embeddings), len(batch))
		}

		for i, chunk := range batch {
			docs = append(docs, vecstore.Document{
				ID:        uuid.NewV7().String(),
				Source:    source,
				Chunk:     chunk,
				Embedding: resp.Embeddings[i],
			})
		}
	}

	if err := s.store.Upsert(ctx, docs); err != nil {
		return 0, fmt.Errorf("ingest %q: store: %w", source, err)
	}

	if s.bus != nil {
		s.bus.Publish(eventbus.TopicIngestCompleted, CompletedPayload{
			Source:     source,
			ChunkCount: len(docs),
		})
	}
	return len(docs), nil
}

// IngestFile reads one file and ingests it with the file name as source.
func (s *Service) IngestFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("ingest: read %q: %w", path, err)
	}
	return s.IngestText(ctx, filepath.Base(path), string(data))
}

// IngestDir walks a directory tree and ingests every .txt and .md file.
// Returns the total number of chunks stored across all files.
func (s *Service) IngestDir(ctx context.Context, dir string) (int, error) {
	total := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !ingestable(path) {
			return nil
		}
		n, fileErr := s.IngestFile(ctx, path)
		if fileErr != nil {
			return fileErr
		}
		total += n
		return ctx.Err()
	})
	if err != nil {
		return total, fmt.Errorf("ingest dir %q: %w", dir, err)
	}
	return total, nil
}

// ingestable reports whether path holds plain text worth indexing.
func ingestable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}
