// internal/metrics/provider.go
package metrics

import (
	"context"
	"time"

	"github.com/mwiater/studyrag/internal/logging"
	"github.com/mwiater/studyrag/internal/providers"
)

// Embedder is a decorator that wraps a providers.Embedder to record metrics.
type Embedder struct {
	wrapped    providers.Embedder
	aggregator *Aggregator
}

var _ providers.Embedder = (*Embedder)(nil)

// NewEmbedder wraps an Embedder so each call is recorded in aggregator.
func NewEmbedder(wrapped providers.Embedder, aggregator *Aggregator) *Embedder {
	logging.LogEvent("[METRICS] Wrapping embedder %s with metrics", wrapped.Name())
	return &Embedder{wrapped: wrapped, aggregator: aggregator}
}

// EmbedOne records a single-text embedding call.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := e.wrapped.EmbedOne(ctx, text)
	e.record("embed_one", 1, len(text), len(vec), start, err)
	return vec, err
}

// EmbedBatch records a batched embedding call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	start := time.Now()
	vectors, err := e.wrapped.EmbedBatch(ctx, texts, batchSize)
	chars := 0
	for _, t := range texts {
		chars += len(t)
	}
	e.record("embed_batch", len(texts), chars, len(vectors), start, err)
	return vectors, err
}

// Dimension passes the call through to the wrapped embedder.
func (e *Embedder) Dimension() int { return e.wrapped.Dimension() }

// Name passes the call through to the wrapped embedder.
func (e *Embedder) Name() string { return e.wrapped.Name() }

func (e *Embedder) record(op string, texts, inChars, out int, start time.Time, err error) {
	if e.aggregator == nil {
		return
	}
	e.aggregator.Record(Sample{
		Model:       e.wrapped.Name(),
		Operation:   op,
		Texts:       texts,
		InputChars:  inChars,
		OutputChars: out,
		Latency:     time.Since(start),
		Err:         err,
	})
}

// Generator is a decorator that wraps a providers.Generator to record metrics.
type Generator struct {
	wrapped    providers.Generator
	model      string
	aggregator *Aggregator
}

var _ providers.Generator = (*Generator)(nil)

// NewGenerator wraps a Generator; model labels its samples.
func NewGenerator(wrapped providers.Generator, model string, aggregator *Aggregator) *Generator {
	return &Generator{wrapped: wrapped, model: model, aggregator: aggregator}
}

// Generate records one completion call.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := g.wrapped.Generate(ctx, prompt)
	if g.aggregator != nil {
		g.aggregator.Record(Sample{
			Model:       g.model,
			Operation:   "generate",
			Texts:       1,
			InputChars:  len(prompt),
			OutputChars: len(text),
			Latency:     time.Since(start),
			Err:         err,
		})
	}
	return text, err
}
