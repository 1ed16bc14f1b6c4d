// internal/rag/retriever.go
package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/mwiater/studyrag/internal/logging"
	"github.com/mwiater/studyrag/internal/providers"
)

// Retriever embeds queries and turns index hits into a prompt-ready context block.
type Retriever struct {
	index    *Index
	embedder providers.Embedder
}

// NewRetriever pairs a built or loaded index with the embedder used to query it.
func NewRetriever(index *Index, embedder providers.Embedder) *Retriever {
	return &Retriever{index: index, embedder: embedder}
}

// RetrieveContext searches for the k chunks closest to query and returns them
// formatted as a context block together with the raw results, closest first.
// Every call is a fresh search.
func (r *Retriever) RetrieveContext(ctx context.Context, query string, k int) (string, []Result, error) {
	if r.index == nil {
		return "", nil, ErrNotBuilt
	}
	start := time.Now()
	results, err := r.index.Search(ctx, query, k, r.embedder)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve context: %w", err)
	}
	logging.LogEvent("[RETRIEVE] k=%d results=%d elapsed=%s", k, len(results), time.Since(start).Truncate(time.Millisecond))
	return FormatContext(results), results, nil
}
