package retrieval

import (
	"math"
	"sort"
	"strings"

	"github.com/pearllabs/lolo/internal/infra/vecstore"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25Index is an in-memory Okapi BM25 index over a corpus snapshot. It is
// immutable after construction, so concurrent readers share it without
// locking.
type bm25Index struct {
	docs      []vecstore.Document
	termFreqs []map[string]int
	docLens   []int
	docFreq   map[string]int
	avgDocLen float64
}

// newBM25Index tokenizes every chunk and precomputes the statistics needed
// for scoring. Tokenization is whitespace splitting; the same applies to
// queries, so index and query always agree.
func newBM25Index(docs []vecstore.Document) *bm25Index {
	ix := &bm25Index{
		docs:      docs,
		termFreqs: make([]map[string]int, len(docs)),
		docLens:   make([]int, len(docs)),
		docFreq:   make(map[string]int),
	}

	total := 0
	for i, d := range docs {
		tokens := strings.Fields(d.Chunk)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term := range tf {
			ix.docFreq[term]++
		}
		ix.termFreqs[i] = tf
		ix.docLens[i] = len(tokens)
		total += len(tokens)
	}
	if len(docs) > 0 {
		ix.avgDocLen = float64(total) / float64(len(docs))
	}
	return ix
}

// scoredDoc pairs a corpus document with its BM25 score for one query.
type scoredDoc struct {
	doc   vecstore.Document
	score float64
}

// topK ranks the whole corpus against query and returns the best k
// documents, highest score first. Ties keep corpus order.
func (ix *bm25Index) topK(query string, k int) []scoredDoc {
	if len(ix.docs) == 0 || k <= 0 {
		return nil
	}

	queryTokens := strings.Fields(query)
	n := float64(len(ix.docs))

	scored := make([]scoredDoc, len(ix.docs))
	for i, d := range ix.docs {
		var score float64
		for _, term := range queryTokens {
			tf := float64(ix.termFreqs[i][term])
			if tf == 0 {
				continue
			}
			df := float64(ix.docFreq[term])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(ix.docLens[i])/ix.avgDocLen))
			score += idf * norm
		}
		scored[i] = scoredDoc{doc: d, score: score}
	}

	sort.SliceStable(scored, func(a, b int) bool { return scored[a].score > scored[b].score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
