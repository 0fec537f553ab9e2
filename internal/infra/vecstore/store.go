// Package vecstore is the persisted dense index consumed by the retrieval
// provider: (document id, text chunk, source) triples plus an externally
// computed embedding per chunk. It supports nearest-neighbour query by
// vector and full-corpus enumeration for lexical indexing.
//
// Embeddings are stored as JSON text and ranked in-memory by cosine
// similarity, which is adequate for the small local corpora this serves.
package vecstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pearllabs/lolo/internal/infra/sqlite"
)

// Document is one chunk of the corpus.
type Document struct {
	ID        string
	Source    string
	Chunk     string
	Embedding []float32
}

// Scored pairs a document with its similarity to a query vector.
type Scored struct {
	Document
	Similarity float64
}

// Store is a sqlite-backed document collection.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the store at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vecstore.Open: %w", err)
	}
	const ddl = `CREATE TABLE IF NOT EXISTS document (
		id         TEXT PRIMARY KEY,
		source     TEXT NOT NULL,
		chunk      TEXT NOT NULL,
		embedding  TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("vecstore.Open: create table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Upsert inserts or replaces documents in a single transaction.
func (s *Store) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vecstore.Upsert: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, d := range docs {
		emb, encErr := encodeEmbedding(d.Embedding)
		if encErr != nil {
			return fmt.Errorf("vecstore.Upsert: encode %q: %w", d.ID, encErr)
		}
		if _, execErr := tx.ExecContext(ctx,
			"REPLACE INTO document (id, source, chunk, embedding, created_at) VALUES (?, ?, ?, ?, ?)",
			d.ID, d.Source, d.Chunk, emb, now); execErr != nil {
			return fmt.Errorf("vecstore.Upsert: insert %q: %w", d.ID, execErr)
		}
	}
	return tx.Commit()
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM document").Scan(&n); err != nil {
		return 0, fmt.Errorf("vecstore.Count: %w", err)
	}
	return n, nil
}

// GetAll enumerates the full corpus in insertion order. Used by the lexical
// index build; corpora are small by design.
func (s *Store) GetAll(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, source, chunk, embedding FROM document ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("vecstore.GetAll: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var emb string
		if scanErr := rows.Scan(&d.ID, &d.Source, &d.Chunk, &emb); scanErr != nil {
			return nil, fmt.Errorf("vecstore.GetAll: scan: %w", scanErr)
		}
		vec, decErr := decodeEmbedding(emb)
		if decErr != nil {
			continue // skip malformed vectors
		}
		d.Embedding = vec
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// QueryByVector returns the k documents nearest to queryVec by cosine
// similarity, best first.
func (s *Store) QueryByVector(ctx context.Context, queryVec []float32, k int) ([]Scored, error) {
	docs, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	scored := make([]Scored, 0, len(docs))
	for _, d := range docs {
		scored = append(scored, Scored{Document: d, Similarity: cosineSimilarity(queryVec, d.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// cosineSimilarity computes cosine similarity between two float32 vectors.
// Returns 0 on length mismatch or zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// encodeEmbedding serialises a float32 slice to JSON text for storage.
func encodeEmbedding(vec []float32) (string, error) {
	b, err := json.Marshal(vec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeEmbedding deserialises a JSON text vector back to []float32.
func decodeEmbedding(jsonStr string) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(jsonStr), &vec); err != nil {
		return nil, fmt.Errorf("decodeEmbedding: %w", err)
	}
	return vec, nil
}
