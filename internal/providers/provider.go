// internal/providers/provider.go

// Package providers defines the interfaces for the model backends studyrag talks to.
// An Embedder turns text into fixed-dimension vectors and a Generator turns a fully
// assembled prompt into free text. Concrete backends (OpenAI-compatible APIs, Ollama)
// live in subpackages and are selected by the providerfactory package.
package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a backend reply that does not match the request,
// such as a batch returning fewer vectors than texts.
var ErrMalformedResponse = errors.New("malformed response")

// ErrUnavailable marks a call refused without contacting the backend because
// its circuit breaker is open.
var ErrUnavailable = errors.New("backend unavailable")

// Embedder maps text to dense vectors.
type Embedder interface {
	// EmbedOne returns the vector for a single text.
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per text, in input order. Texts are sent in
	// consecutive batches of at most batchSize; any failing batch fails the call.
	EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
	// Dimension reports the vector length, or 0 until it has been discovered.
	Dimension() int
	// Name identifies the backend and model, e.g. "openai/text-embedding-3-small".
	Name() string
}

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderError wraps any failure reported by a model backend.
type ProviderError struct {
	Backend string
	Op      string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// EmbedFunc embeds one batch of texts.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// EmbedInBatches splits texts into consecutive batches of at most batchSize and
// calls fn for each, sequentially. A batch that returns the wrong number of
// vectors is reported as ErrMalformedResponse. No partial result is returned.
func EmbedInBatches(ctx context.Context, texts []string, batchSize int, fn EmbedFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if batchSize <= 0 || batchSize > len(texts) {
		batchSize = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := fn(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("%w: batch %d-%d returned %d vectors for %d texts", ErrMalformedResponse, start, end, len(vectors), end-start)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// CheckDimension verifies every vector has length dim. When dim is zero the
// first vector's length is used. It returns the dimension that was enforced.
func CheckDimension(vectors [][]float32, dim int) (int, error) {
	for i, vec := range vectors {
		if len(vec) == 0 {
			return dim, fmt.Errorf("%w: vector %d is empty", ErrMalformedResponse, i)
		}
		if dim == 0 {
			dim = len(vec)
			continue
		}
		if len(vec) != dim {
			return dim, fmt.Errorf("%w: vector %d has length %d, expected %d", ErrMalformedResponse, i, len(vec), dim)
		}
	}
	return dim, nil
}
