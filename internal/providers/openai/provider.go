// internal/providers/openai/provider.go
// Package openai provides an Embedder and a Generator backed by the OpenAI API or any
// OpenAI-compatible server (such as a llama.cpp server) reachable through a base URL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	sdk "github.com/sashabaranov/go-openai"

	"github.com/mwiater/studyrag/internal/appconfig"
	"github.com/mwiater/studyrag/internal/logging"
	"github.com/mwiater/studyrag/internal/providers"
)

// Embedder implements providers.Embedder using the embeddings endpoint.
type Embedder struct {
	client    *sdk.Client
	backend   string
	model     string
	batchSize int
	dim       atomic.Int64
}

var _ providers.Embedder = (*Embedder)(nil)

// NewEmbedder validates cfg and constructs an Embedder. It returns a
// *appconfig.ConfigError when a required field is missing.
func NewEmbedder(cfg appconfig.EmbeddingConfig, timeout time.Duration) (*Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Embedder{
		client:    newClient(cfg.APIKey, cfg.BaseURL, timeout),
		backend:   cfg.Backend,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
	}
	e.dim.Store(int64(cfg.Dimensions))
	return e, nil
}

func newClient(apiKey, baseURL string, timeout time.Duration) *sdk.Client {
	clientCfg := sdk.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	return sdk.NewClientWithConfig(clientCfg)
}

// Name returns backend/model.
func (e *Embedder) Name() string { return e.backend + "/" + e.model }

// Dimension returns the configured or discovered vector length.
func (e *Embedder) Dimension() int { return int(e.dim.Load()) }

// EmbedOne embeds a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in consecutive batches of at most batchSize.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if batchSize <= 0 {
		batchSize = e.batchSize
	}
	if batchSize <= 0 || batchSize > len(texts) {
		batchSize = len(texts)
	}
	total := (len(texts) + batchSize - 1) / batchSize
	batch := 0
	vectors, err := providers.EmbedInBatches(ctx, texts, batchSize, func(ctx context.Context, chunk []string) ([][]float32, error) {
		batch++
		logging.LogEvent("[EMBED] %s batch %d/%d (%d texts)", e.Name(), batch, total, len(chunk))
		return e.embed(ctx, chunk)
	})
	if err != nil {
		var perr *providers.ProviderError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &providers.ProviderError{Backend: e.backend, Op: "embed batch", Err: err}
	}
	return vectors, nil
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, &providers.ProviderError{Backend: e.backend, Op: "embed", Err: fmt.Errorf("text %d is empty", i)}
		}
	}

	logging.LogRequest("STUDYRAG->EMBED", e.backend, e.model, "embeddings", map[string]int{"texts": len(texts)})
	resp, err := e.client.CreateEmbeddings(ctx, sdk.EmbeddingRequest{
		Input: texts,
		Model: sdk.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, &providers.ProviderError{Backend: e.backend, Op: "embed", Err: err}
	}
	logging.LogRequest("EMBED->STUDYRAG", e.backend, e.model, "embeddings", map[string]any{"vectors": len(resp.Data), "total_tokens": resp.Usage.TotalTokens})

	if len(resp.Data) != len(texts) {
		return nil, &providers.ProviderError{
			Backend: e.backend,
			Op:      "embed",
			Err:     fmt.Errorf("%w: %d embeddings for %d texts", providers.ErrMalformedResponse, len(resp.Data), len(texts)),
		}
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) || vectors[item.Index] != nil {
			return nil, &providers.ProviderError{
				Backend: e.backend,
				Op:      "embed",
				Err:     fmt.Errorf("%w: unexpected embedding index %d", providers.ErrMalformedResponse, item.Index),
			}
		}
		vectors[item.Index] = item.Embedding
	}

	dim, err := providers.CheckDimension(vectors, e.Dimension())
	if err != nil {
		return nil, &providers.ProviderError{Backend: e.backend, Op: "embed", Err: err}
	}
	e.dim.CompareAndSwap(0, int64(dim))
	return vectors, nil
}

// Generator implements providers.Generator using chat completions.
type Generator struct {
	client  *sdk.Client
	backend string
	model   string
}

var _ providers.Generator = (*Generator)(nil)

// NewGenerator validates cfg and constructs a Generator.
func NewGenerator(cfg appconfig.GenerationConfig, timeout time.Duration) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		client:  newClient(cfg.APIKey, cfg.BaseURL, timeout),
		backend: cfg.Backend,
		model:   cfg.Model,
	}, nil
}

// Generate sends prompt as a single user message and returns the reply text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	logging.LogRequest("STUDYRAG->LLM", g.backend, g.model, "chat", map[string]int{"prompt_chars": len(prompt)})
	resp, err := g.client.CreateChatCompletion(ctx, sdk.ChatCompletionRequest{
		Model: g.model,
		Messages: []sdk.ChatCompletionMessage{
			{Role: sdk.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", &providers.ProviderError{Backend: g.backend, Op: "generate", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &providers.ProviderError{
			Backend: g.backend,
			Op:      "generate",
			Err:     fmt.Errorf("%w: no choices returned", providers.ErrMalformedResponse),
		}
	}
	text := resp.Choices[0].Message.Content
	logging.LogRequest("LLM->STUDYRAG", g.backend, g.model, "chat", text)
	return text, nil
}
