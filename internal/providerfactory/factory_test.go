// internal/providerfactory/factory_test.go
package providerfactory

import (
	"errors"
	"testing"

	"github.com/mwiater/studyrag/internal/appconfig"
	"github.com/mwiater/studyrag/internal/providers/ollama"
	"github.com/mwiater/studyrag/internal/providers/openai"
)

func TestNewEmbedderErrorsOnNilConfig(t *testing.T) {
	if _, err := NewEmbedder(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewGenerator(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewEmbedderSelectsBackend(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		baseURL string
		apiKey  string
		check   func(t *testing.T, v any)
	}{
		{
			name:    "openai",
			backend: appconfig.BackendOpenAI,
			apiKey:  "sk-test",
			check: func(t *testing.T, v any) {
				if _, ok := v.(*openai.Embedder); !ok {
					t.Fatalf("expected openai.Embedder, got %T", v)
				}
			},
		},
		{
			name:    "llamacpp uses the openai-compatible client",
			backend: "llama.cpp",
			baseURL: "http://localhost:8080/v1",
			check: func(t *testing.T, v any) {
				if _, ok := v.(*openai.Embedder); !ok {
					t.Fatalf("expected openai.Embedder, got %T", v)
				}
			},
		},
		{
			name:    "ollama",
			backend: appconfig.BackendOllama,
			check: func(t *testing.T, v any) {
				if _, ok := v.(*ollama.Embedder); !ok {
					t.Fatalf("expected ollama.Embedder, got %T", v)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &appconfig.Config{
				Embedding:  appconfig.EmbeddingConfig{Backend: tc.backend, BaseURL: tc.baseURL, APIKey: tc.apiKey},
				Generation: appconfig.GenerationConfig{BaseURL: tc.baseURL},
			}
			cfg.ApplyDefaults()

			embedder, err := NewEmbedder(cfg)
			if err != nil {
				t.Fatalf("NewEmbedder returned error: %v", err)
			}
			tc.check(t, embedder)

			generator, err := NewGenerator(cfg)
			if err != nil {
				t.Fatalf("NewGenerator returned error: %v", err)
			}
			if generator == nil {
				t.Fatal("expected generator")
			}
		})
	}
}

func TestNewEmbedderRejectsUnsupportedBackend(t *testing.T) {
	cfg := &appconfig.Config{Embedding: appconfig.EmbeddingConfig{Backend: "unsupported", Model: "m"}}

	_, err := NewEmbedder(cfg)
	var cfgErr *appconfig.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "embedding.backend" {
		t.Fatalf("expected embedding.backend ConfigError, got %v", err)
	}
}

func TestNewEmbedderRequiresAPIKeyForOpenAI(t *testing.T) {
	cfg := &appconfig.Config{Embedding: appconfig.EmbeddingConfig{Backend: appconfig.BackendOpenAI}}
	cfg.ApplyDefaults()

	_, err := NewEmbedder(cfg)
	var cfgErr *appconfig.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
