// internal/appconfig/appconfig.go
// Package appconfig defines the application configuration with its defaults and validation.
package appconfig

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout bounds a single embedding or generation request.
	defaultRequestTimeout = 600 * time.Second

	defaultEmbeddingBackend = BackendOpenAI
	defaultOpenAIEmbedModel = "text-embedding-3-small"
	defaultOllamaEmbedModel = "nomic-embed-text"
	defaultOpenAIChatModel  = "gpt-4o-mini"
	defaultOllamaChatModel  = "llama3.2"
	defaultOllamaURL        = "http://localhost:11434"
	defaultBatchSize        = 100

	defaultPDFChunkSize   = 1000
	defaultPDFOverlap     = 200
	defaultVideoChunkSize = 800
	defaultVideoOverlap   = 150

	defaultStoreDir   = "data/vector_store"
	defaultChunksFile = "data/processed/all_chunks.json"
	defaultTopK       = 5
)

// Backend names accepted by the embedding and generation sections.
const (
	BackendOpenAI   = "openai"
	BackendLlamaCpp = "llamacpp"
	BackendOllama   = "ollama"
)

// Config represents the top-level application configuration.
type Config struct {
	Debug          bool             `json:"debug" mapstructure:"debug"`
	Metrics        bool             `json:"metrics" mapstructure:"metrics"`
	MetricsFile    string           `json:"metricsFile,omitempty" mapstructure:"metricsFile"`
	TimeoutSeconds int              `json:"timeout,omitempty" mapstructure:"timeout"`
	LogFile        string           `json:"logFile,omitempty" mapstructure:"logFile"`
	TopK           int              `json:"topK,omitempty" mapstructure:"topK"`
	Embedding      EmbeddingConfig  `json:"embedding" mapstructure:"embedding"`
	Generation     GenerationConfig `json:"generation" mapstructure:"generation"`
	Chunking       ChunkingConfig   `json:"chunking" mapstructure:"chunking"`
	Store          StoreConfig      `json:"store" mapstructure:"store"`
	Corpus         CorpusConfig     `json:"corpus" mapstructure:"corpus"`
	Resilience     ResilienceConfig `json:"resilience" mapstructure:"resilience"`
	ConfigPath     string           `json:"-" mapstructure:"-"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	Backend    string `json:"backend" mapstructure:"backend"`
	Model      string `json:"model" mapstructure:"model"`
	BaseURL    string `json:"baseURL,omitempty" mapstructure:"baseURL"`
	APIKey     string `json:"apiKey,omitempty" mapstructure:"apiKey"`
	Dimensions int    `json:"dimensions,omitempty" mapstructure:"dimensions"`
	BatchSize  int    `json:"batchSize,omitempty" mapstructure:"batchSize"`
}

// GenerationConfig selects and configures the text generation backend.
type GenerationConfig struct {
	Backend string `json:"backend" mapstructure:"backend"`
	Model   string `json:"model" mapstructure:"model"`
	BaseURL string `json:"baseURL,omitempty" mapstructure:"baseURL"`
	APIKey  string `json:"apiKey,omitempty" mapstructure:"apiKey"`
	// Instructions replaces the default tutor prompt used by ask.
	Instructions string `json:"instructions,omitempty" mapstructure:"instructions"`
}

// ChunkingConfig holds the per-source-type segmentation sizes, in characters.
type ChunkingConfig struct {
	PDFChunkSize   int `json:"pdfChunkSize" mapstructure:"pdfChunkSize"`
	PDFOverlap     int `json:"pdfOverlap" mapstructure:"pdfOverlap"`
	VideoChunkSize int `json:"videoChunkSize" mapstructure:"videoChunkSize"`
	VideoOverlap   int `json:"videoOverlap" mapstructure:"videoOverlap"`
}

// StoreConfig locates the persisted vector index.
type StoreConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// TranscriptSource is a transcript text file and the video it came from.
type TranscriptSource struct {
	URL  string `json:"url" mapstructure:"url"`
	Path string `json:"path" mapstructure:"path"`
}

// CorpusConfig lists the raw sources consumed by ingestion.
type CorpusConfig struct {
	PDFs           []string           `json:"pdfs,omitempty" mapstructure:"pdfs"`
	Transcripts    []TranscriptSource `json:"transcripts,omitempty" mapstructure:"transcripts"`
	TranscriptsDir string             `json:"transcriptsDir,omitempty" mapstructure:"transcriptsDir"`
	ExcludeGlobs   []string           `json:"excludeGlobs,omitempty" mapstructure:"excludeGlobs"`
	ChunksFile     string             `json:"chunksFile" mapstructure:"chunksFile"`
}

// ResilienceConfig tunes retries and the circuit breaker used by local backends.
type ResilienceConfig struct {
	RetryMaxAttempts        int     `json:"retryMaxAttempts,omitempty" mapstructure:"retryMaxAttempts"`
	RetryInitialBackoffMs   int     `json:"retryInitialBackoffMs,omitempty" mapstructure:"retryInitialBackoffMs"`
	RetryMaxBackoffMs       int     `json:"retryMaxBackoffMs,omitempty" mapstructure:"retryMaxBackoffMs"`
	RetryMultiplier         float64 `json:"retryMultiplier,omitempty" mapstructure:"retryMultiplier"`
	BreakerEnabled          bool    `json:"breakerEnabled" mapstructure:"breakerEnabled"`
	BreakerMinRequests      uint32  `json:"breakerMinRequests,omitempty" mapstructure:"breakerMinRequests"`
	BreakerFailureRatio     float64 `json:"breakerFailureRatio,omitempty" mapstructure:"breakerFailureRatio"`
	BreakerOpenTimeoutMs    int     `json:"breakerOpenTimeoutMs,omitempty" mapstructure:"breakerOpenTimeoutMs"`
	BreakerHalfOpenMaxCalls uint32  `json:"breakerHalfOpenMaxCalls,omitempty" mapstructure:"breakerHalfOpenMaxCalls"`
}

// ConfigError reports a missing or invalid configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// RequestTimeout returns the timeout duration for backend requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "studyrag.log"
}

// MetricsFilePath returns where embedding metrics are written.
func (c Config) MetricsFilePath() string {
	if path := strings.TrimSpace(c.MetricsFile); path != "" {
		return path
	}
	return "data/metrics/embedding_metrics.json"
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}
	if c.TopK <= 0 {
		c.TopK = defaultTopK
	}

	c.Embedding.Backend = normalizeBackend(c.Embedding.Backend, defaultEmbeddingBackend)
	if strings.TrimSpace(c.Embedding.Model) == "" {
		if c.Embedding.Backend == BackendOllama {
			c.Embedding.Model = defaultOllamaEmbedModel
		} else {
			c.Embedding.Model = defaultOpenAIEmbedModel
		}
	}
	if c.Embedding.Backend == BackendOllama && strings.TrimSpace(c.Embedding.BaseURL) == "" {
		c.Embedding.BaseURL = defaultOllamaURL
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = defaultBatchSize
	}

	c.Generation.Backend = normalizeBackend(c.Generation.Backend, c.Embedding.Backend)
	if strings.TrimSpace(c.Generation.Model) == "" {
		if c.Generation.Backend == BackendOllama {
			c.Generation.Model = defaultOllamaChatModel
		} else {
			c.Generation.Model = defaultOpenAIChatModel
		}
	}
	if c.Generation.Backend == BackendOllama && strings.TrimSpace(c.Generation.BaseURL) == "" {
		c.Generation.BaseURL = defaultOllamaURL
	}
	if strings.TrimSpace(c.Generation.APIKey) == "" {
		c.Generation.APIKey = c.Embedding.APIKey
	}

	if c.Chunking.PDFChunkSize <= 0 {
		c.Chunking.PDFChunkSize = defaultPDFChunkSize
		if c.Chunking.PDFOverlap == 0 {
			c.Chunking.PDFOverlap = defaultPDFOverlap
		}
	}
	if c.Chunking.VideoChunkSize <= 0 {
		c.Chunking.VideoChunkSize = defaultVideoChunkSize
		if c.Chunking.VideoOverlap == 0 {
			c.Chunking.VideoOverlap = defaultVideoOverlap
		}
	}

	if strings.TrimSpace(c.Store.Dir) == "" {
		c.Store.Dir = defaultStoreDir
	}
	if strings.TrimSpace(c.Corpus.ChunksFile) == "" {
		c.Corpus.ChunksFile = defaultChunksFile
	}
}

// Validate checks the fields every command relies on.
func (c Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Store.Dir) == "" {
		return &ConfigError{Field: "store.dir", Reason: "is required"}
	}
	return c.Embedding.Validate()
}

// Validate checks that the configured sizes can be segmented.
func (c ChunkingConfig) Validate() error {
	if c.PDFChunkSize <= 0 {
		return &ConfigError{Field: "chunking.pdfChunkSize", Reason: "must be greater than zero"}
	}
	if c.PDFOverlap < 0 || c.PDFOverlap >= c.PDFChunkSize {
		return &ConfigError{Field: "chunking.pdfOverlap", Reason: "must be zero or greater and smaller than chunking.pdfChunkSize"}
	}
	if c.VideoChunkSize <= 0 {
		return &ConfigError{Field: "chunking.videoChunkSize", Reason: "must be greater than zero"}
	}
	if c.VideoOverlap < 0 || c.VideoOverlap >= c.VideoChunkSize {
		return &ConfigError{Field: "chunking.videoOverlap", Reason: "must be zero or greater and smaller than chunking.videoChunkSize"}
	}
	return nil
}

// Validate checks the fields required by the selected embedding backend.
func (c EmbeddingConfig) Validate() error {
	return validateBackend("embedding", c.Backend, c.Model, c.BaseURL, c.APIKey)
}

// Validate checks the fields required by the selected generation backend.
func (c GenerationConfig) Validate() error {
	return validateBackend("generation", c.Backend, c.Model, c.BaseURL, c.APIKey)
}

func validateBackend(section, backend, model, baseURL, apiKey string) error {
	switch backend {
	case BackendOpenAI:
		if strings.TrimSpace(apiKey) == "" && strings.TrimSpace(baseURL) == "" {
			return &ConfigError{Field: section + ".apiKey", Reason: "is required for the openai backend (set OPENAI_API_KEY)"}
		}
	case BackendLlamaCpp, BackendOllama:
		if strings.TrimSpace(baseURL) == "" {
			return &ConfigError{Field: section + ".baseURL", Reason: fmt.Sprintf("is required for the %s backend", backend)}
		}
	case "":
		return &ConfigError{Field: section + ".backend", Reason: "is required"}
	default:
		return &ConfigError{Field: section + ".backend", Reason: fmt.Sprintf("%q is not supported", backend)}
	}
	if strings.TrimSpace(model) == "" {
		return &ConfigError{Field: section + ".model", Reason: "is required"}
	}
	return nil
}

func normalizeBackend(backend, fallback string) string {
	switch b := strings.ToLower(strings.TrimSpace(backend)); b {
	case "":
		return fallback
	case "llama.cpp", "llama-cpp":
		return BackendLlamaCpp
	default:
		return b
	}
}
