// internal/appconfig/appconfig_test.go
package appconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// TestApplyDefaults checks that a decoded file gains defaults while keeping
// the values it set explicitly.
func TestApplyDefaults(t *testing.T) {
	var cfg Config
	body := `{
        "embedding": {"backend": "openai", "apiKey": "sk-test"},
        "chunking": {"pdfChunkSize": 500, "pdfOverlap": 50}
    }`
	if err := json.Unmarshal([]byte(body), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	cfg.ApplyDefaults()

	if cfg.TimeoutSeconds != 600 {
		t.Fatalf("expected default timeout of 600 seconds, got %d", cfg.TimeoutSeconds)
	}
	if cfg.RequestTimeout() != 600*time.Second {
		t.Fatalf("expected default request timeout of 600s, got %v", cfg.RequestTimeout())
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Fatalf("expected default embedding model, got %q", cfg.Embedding.Model)
	}
	if cfg.Chunking.PDFChunkSize != 500 || cfg.Chunking.PDFOverlap != 50 {
		t.Fatalf("expected explicit pdf chunking to survive defaults, got %+v", cfg.Chunking)
	}
	if cfg.Chunking.VideoChunkSize != 800 || cfg.Chunking.VideoOverlap != 150 {
		t.Fatalf("expected default video chunking, got %+v", cfg.Chunking)
	}
	if cfg.Store.Dir != "data/vector_store" {
		t.Fatalf("expected default store dir, got %q", cfg.Store.Dir)
	}
	if cfg.Generation.APIKey != "sk-test" {
		t.Fatalf("expected generation key to inherit embedding key, got %q", cfg.Generation.APIKey)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
}

func TestValidateReportsConfigError(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{
			name:  "missing api key",
			cfg:   Config{Embedding: EmbeddingConfig{Backend: BackendOpenAI}},
			field: "embedding.apiKey",
		},
		{
			name:  "unknown backend",
			cfg:   Config{Embedding: EmbeddingConfig{Backend: "faiss"}},
			field: "embedding.backend",
		},
		{
			name:  "overlap too large",
			cfg:   Config{Embedding: EmbeddingConfig{APIKey: "k"}, Chunking: ChunkingConfig{PDFChunkSize: 100, PDFOverlap: 100}},
			field: "chunking.pdfOverlap",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, cfgErr.Field)
			}
		})
	}
}

func TestApplyDefaultsOllama(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{Backend: "Ollama"}}
	cfg.ApplyDefaults()

	if cfg.Embedding.Backend != BackendOllama {
		t.Fatalf("expected normalized backend, got %q", cfg.Embedding.Backend)
	}
	if cfg.Embedding.BaseURL != "http://localhost:11434" {
		t.Fatalf("expected default ollama url, got %q", cfg.Embedding.BaseURL)
	}
	if cfg.Generation.Backend != BackendOllama {
		t.Fatalf("expected generation backend to follow embedding, got %q", cfg.Generation.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected ollama config to validate, got %v", err)
	}
}

func TestShowConfigMasksSecrets(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{APIKey: "sk-abcdefghijklmnop"}}
	cfg.ApplyDefaults()

	var buf bytes.Buffer
	ShowConfig(&buf, "config/config.json", &cfg)
	out := buf.String()
	if strings.Contains(out, "sk-abcdefghijklmnop") {
		t.Fatalf("expected api key to be masked, got: %s", out)
	}
	if !strings.Contains(out, "sk-****mnop") {
		t.Fatalf("expected masked api key, got: %s", out)
	}
	if !strings.Contains(out, "Config file: config/config.json") {
		t.Fatalf("expected config file line, got: %s", out)
	}
}
