// internal/providers/ollama/provider.go
// Package ollama provides an Embedder and a Generator backed by a locally running
// Ollama server. Requests go through a resilience.Executor so transient failures of
// the local model server are retried here, never in the retrieval core.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mwiater/studyrag/internal/appconfig"
	"github.com/mwiater/studyrag/internal/logging"
	"github.com/mwiater/studyrag/internal/providers"
	"github.com/mwiater/studyrag/internal/resilience"
)

const backendName = appconfig.BackendOllama

// client performs JSON requests against one Ollama host.
type client struct {
	http    *http.Client
	baseURL string
	exec    *resilience.Executor
}

func newClient(baseURL string, timeout time.Duration, exec *resilience.Executor) *client {
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		exec:    exec,
	}
}

// HTTPStatusError is a non-200 reply from the Ollama server.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// postJSON sends payload to path and decodes the reply into out, retrying
// transient failures. Calls rejected by an open breaker fail fast with
// providers.ErrUnavailable.
func (c *client) postJSON(ctx context.Context, op, model, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}

	err = c.exec.Execute(ctx, "ollama."+op, func(ctx context.Context) error {
		logging.LogRequest("STUDYRAG->OLLAMA", c.baseURL, model, op, body)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", op, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s request failed: %w", op, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s response: %w", op, err)
		}
		if resp.StatusCode != http.StatusOK {
			return &HTTPStatusError{Operation: op, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
		}
		logging.LogRequest("OLLAMA->STUDYRAG", c.baseURL, model, op, fmt.Sprintf("%d bytes", len(raw)))

		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: parse %s response: %v", providers.ErrMalformedResponse, op, err)
		}
		return nil
	}, classifyError)
	if resilience.IsCircuitOpen(err) {
		return fmt.Errorf("%w: %s: %w", providers.ErrUnavailable, op, err)
	}
	return err
}

func classifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func isRetryableHTTPStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return code >= 500
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embedder implements providers.Embedder using the /api/embed endpoint.
type Embedder struct {
	client    *client
	model     string
	batchSize int
	dim       atomic.Int64
}

var _ providers.Embedder = (*Embedder)(nil)

// NewEmbedder validates cfg and constructs an Embedder. exec may be nil, in
// which case the default retry policy is used.
func NewEmbedder(cfg appconfig.EmbeddingConfig, timeout time.Duration, exec *resilience.Executor) (*Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Embedder{
		client:    newClient(cfg.BaseURL, timeout, exec),
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
	}
	e.dim.Store(int64(cfg.Dimensions))
	return e, nil
}

// Name returns backend/model.
func (e *Embedder) Name() string { return backendName + "/" + e.model }

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
	if batchSize <= 0 {
		batchSize = e.batchSize
	}
	vectors, err := providers.EmbedInBatches(ctx, texts, batchSize, e.embed)
	if err != nil {
		var perr *providers.ProviderError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &providers.ProviderError{Backend: backendName, Op: "embed batch", Err: err}
	}
	return vectors, nil
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, &providers.ProviderError{Backend: backendName, Op: "embed", Err: fmt.Errorf("text %d is empty", i)}
		}
	}

	var parsed embedResponse
	if err := e.client.postJSON(ctx, "embed", e.model, "/api/embed", embedRequest{Model: e.model, Input: texts}, &parsed); err != nil {
		return nil, &providers.ProviderError{Backend: backendName, Op: "embed", Err: err}
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, &providers.ProviderError{
			Backend: backendName,
			Op:      "embed",
			Err:     fmt.Errorf("%w: %d embeddings for %d texts", providers.ErrMalformedResponse, len(parsed.Embeddings), len(texts)),
		}
	}

	dim, err := providers.CheckDimension(parsed.Embeddings, e.Dimension())
	if err != nil {
		return nil, &providers.ProviderError{Backend: backendName, Op: "embed", Err: err}
	}
	e.dim.CompareAndSwap(0, int64(dim))
	return parsed.Embeddings, nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generator implements providers.Generator using the /api/generate endpoint.
type Generator struct {
	client *client
	model  string
}

var _ providers.Generator = (*Generator)(nil)

// NewGenerator validates cfg and constructs a Generator.
func NewGenerator(cfg appconfig.GenerationConfig, timeout time.Duration, exec *resilience.Executor) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{client: newClient(cfg.BaseURL, timeout, exec), model: cfg.Model}, nil
}

// Generate runs a single non-streaming completion.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	var parsed generateResponse
	req := generateRequest{Model: g.model, Prompt: prompt, Stream: false}
	if err := g.client.postJSON(ctx, "generate", g.model, "/api/generate", req, &parsed); err != nil {
		return "", &providers.ProviderError{Backend: backendName, Op: "generate", Err: err}
	}
	return parsed.Response, nil
}
