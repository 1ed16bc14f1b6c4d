// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"

	"github.com/mwiater/studyrag/internal/appconfig"
	"github.com/mwiater/studyrag/internal/logging"
	"github.com/mwiater/studyrag/internal/metrics"
	"github.com/mwiater/studyrag/internal/providers"
	"github.com/mwiater/studyrag/internal/providers/ollama"
	"github.com/mwiater/studyrag/internal/providers/openai"
	"github.com/mwiater/studyrag/internal/resilience"
)

// NewEmbedder selects and configures the embedding backend named in the
// configuration, wrapping it with metrics collection if enabled.
func NewEmbedder(cfg *appconfig.Config) (providers.Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	var embedder providers.Embedder
	switch cfg.Embedding.Backend {
	case appconfig.BackendOpenAI, appconfig.BackendLlamaCpp:
		e, err := openai.NewEmbedder(cfg.Embedding, cfg.RequestTimeout())
		if err != nil {
			return nil, err
		}
		embedder = e
	case appconfig.BackendOllama:
		exec := resilience.NewExecutor(resilience.FromAppConfig(cfg.Resilience))
		e, err := ollama.NewEmbedder(cfg.Embedding, cfg.RequestTimeout(), exec)
		if err != nil {
			return nil, err
		}
		embedder = e
	default:
		return nil, &appconfig.ConfigError{Field: "embedding.backend", Reason: fmt.Sprintf("%q is not supported", cfg.Embedding.Backend)}
	}
	logging.LogEvent("Embedding backend ready: %s", embedder.Name())

	if cfg.Metrics {
		embedder = metrics.NewEmbedder(embedder, metrics.GetInstance(cfg.MetricsFilePath()))
	}
	return embedder, nil
}

// NewGenerator selects and configures the text generation backend.
func NewGenerator(cfg *appconfig.Config) (providers.Generator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	var generator providers.Generator
	switch cfg.Generation.Backend {
	case appconfig.BackendOpenAI, appconfig.BackendLlamaCpp:
		g, err := openai.NewGenerator(cfg.Generation, cfg.RequestTimeout())
		if err != nil {
			return nil, err
		}
		generator = g
	case appconfig.BackendOllama:
		exec := resilience.NewExecutor(resilience.FromAppConfig(cfg.Resilience))
		g, err := ollama.NewGenerator(cfg.Generation, cfg.RequestTimeout(), exec)
		if err != nil {
			return nil, err
		}
		generator = g
	default:
		return nil, &appconfig.ConfigError{Field: "generation.backend", Reason: fmt.Sprintf("%q is not supported", cfg.Generation.Backend)}
	}
	logging.LogEvent("Generation backend ready: %s/%s", cfg.Generation.Backend, cfg.Generation.Model)

	if cfg.Metrics {
		model := cfg.Generation.Backend + "/" + cfg.Generation.Model
		generator = metrics.NewGenerator(generator, model, metrics.GetInstance(cfg.MetricsFilePath()))
	}
	return generator, nil
}
