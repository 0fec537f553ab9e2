// Package retrieval implements the hybrid RAG capability: a dense
// nearest-neighbour query against the persisted vector store fused with an
// in-memory BM25 pass over the full corpus. Lexical results come first,
// duplicates are removed by (source, snippet prefix), and the fused list is
// truncated to k.
package retrieval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pearllabs/lolo/internal/domain/task"
	"github.com/pearllabs/lolo/internal/infra/llm"
	"github.com/pearllabs/lolo/internal/infra/vecstore"
)

const (
	snippetLen = 400 // citation snippet cap
	dedupLen   = 120 // snippet prefix length used for deduplication
)

// Options tune the provider.
type Options struct {
	K           int // result count (params["k"] overrides per task)
	BM25MinDocs int // lexical pass is skipped below this corpus size
}

// Provider implements task.Provider for the rag capability.
//
// The lexical index is the one piece of cross-call mutable state: it is
// built lazily on the first query that meets the corpus threshold, at most
// once per provider instance. Documents ingested afterwards are invisible
// to lexical ranking until the process restarts.
type Provider struct {
	store    *vecstore.Store
	embedder llm.Client
	opts     Options

	lexOnce sync.Once
	lex     *bm25Index
	lexErr  error
}

// New creates the retrieval provider over a vector store and an embedding
// client.
func New(store *vecstore.Store, embedder llm.Client, opts Options) *Provider {
	if opts.K <= 0 {
		opts.K = 5
	}
	if opts.BM25MinDocs <= 0 {
		opts.BM25MinDocs = 20
	}
	return &Provider{store: store, embedder: embedder, opts: opts}
}

// Name implements task.Provider.
func (p *Provider) Name() string { return "rag" }

// Health reports the corpus size.
func (p *Provider) Health(ctx context.Context) task.Health {
	count, err := p.store.Count(ctx)
	if err != nil {
		return task.NewHealth(p.Name(), false, map[string]any{"error": err.Error()})
	}
	return task.NewHealth(p.Name(), true, map[string]any{"count": count})
}

// Invoke runs the hybrid query for the last message in the task.
func (p *Provider) Invoke(ctx context.Context, t task.Task) task.ProviderResult {
	start := time.Now()

	query := t.LastMessage()
	if query == "" {
		return task.Failure("Ask a question to retrieve passages for.", "empty_query")
	}
	k := t.ParamInt("k", p.opts.K)
	if k <= 0 {
		// a non-positive k would disable both truncations and return the
		// whole corpus
		k = p.opts.K
	}

	var warnings []string

	lexical := p.lexicalSearch(ctx, query, k, &warnings)
	dense, denseErr := p.denseSearch(ctx, query, k)
	if denseErr != nil {
		if len(lexical) == 0 {
			return task.Failure(
				"Retrieval is unavailable. Check the vector store and the embedding model.",
				fmt.Sprintf("dense search failed: %v", denseErr),
			)
		}
		// degrade to lexical-only rather than failing the whole query
		warnings = append(warnings, fmt.Sprintf("dense search failed: %v", denseErr))
	}

	citations := fuse(lexical, dense, k)

	res := task.Success("")
	res.Citations = citations
	res.Warnings = warnings
	res.Usage.LatencyMS = time.Since(start).Milliseconds()

	if t.ParamBool("compose", true) {
		res.Text = composeAnswer(citations)
	}
	return res
}

// denseSearch embeds the query and ranks the persisted index.
func (p *Provider) denseSearch(ctx context.Context, query string, k int) ([]task.Citation, error) {
	resp, err := p.embedder.Embed(ctx, llm.EmbedRequest{Texts: []string{query}})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}

	scored, err := p.store.QueryByVector(ctx, resp.Embeddings[0], k)
	if err != nil {
		return nil, err
	}
	citations := make([]task.Citation, 0, len(scored))
	for _, s := range scored {
		citations = append(citations, toCitation(s.Document, s.Similarity))
	}
	return citations, nil
}

// lexicalSearch runs the BM25 pass when the corpus meets the configured
// minimum size. Index build failures are recorded as warnings, never
// surfaced as invocation errors.
func (p *Provider) lexicalSearch(ctx context.Context, query string, k int, warnings *[]string) []task.Citation {
	count, err := p.store.Count(ctx)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("lexical search skipped: %v", err))
		return nil
	}
	if count < p.opts.BM25MinDocs {
		return nil // bootstrapping guard: ranking a tiny corpus is noise
	}

	p.lexOnce.Do(func() {
		docs, buildErr := p.store.GetAll(ctx)
		if buildErr != nil {
			p.lexErr = buildErr
			return
		}
		p.lex = newBM25Index(docs)
	})
	if p.lexErr != nil {
		*warnings = append(*warnings, fmt.Sprintf("lexical index unavailable: %v", p.lexErr))
		return nil
	}

	top := p.lex.topK(query, k)
	citations := make([]task.Citation, 0, len(top))
	for _, s := range top {
		citations = append(citations, toCitation(s.doc, s.score))
	}
	return citations
}

// fuse concatenates lexical results before dense results, removes
// duplicates by (source, first 120 chars of snippet) preserving first-seen
// order, and truncates to k.
func fuse(lexical, dense []task.Citation, k int) []task.Citation {
	type dedupKey struct {
		source string
		prefix string
	}
	seen := make(map[dedupKey]struct{})

	var fused []task.Citation
	for _, c := range append(append([]task.Citation{}, lexical...), dense...) {
		key := dedupKey{source: c.Source, prefix: truncate(c.Snippet, dedupLen)}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		fused = append(fused, c)
		if len(fused) == k {
			break
		}
	}
	return fused
}

// composeAnswer renders citations into a short prose block.
func composeAnswer(citations []task.Citation) string {
	if len(citations) == 0 {
		return "Insufficient evidence. Here are sources to consult (index may be small)."
	}
	text := "Here are relevant passages:"
	for _, c := range citations {
		text += fmt.Sprintf("\n- %s: %s", c.Source, c.Snippet)
	}
	return text
}

func toCitation(d vecstore.Document, score float64) task.Citation {
	source := d.Source
	if source == "" {
		source = d.ID
	}
	s := score
	return task.Citation{Source: source, Snippet: truncate(d.Chunk, snippetLen), Score: &s}
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
