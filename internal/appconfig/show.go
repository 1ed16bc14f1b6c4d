package appconfig

import (
	"fmt"
	"io"
	"strings"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg *Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	fmt.Fprintln(out, "Current configuration:")
	if cfg == nil {
		fmt.Fprintln(out, "  (configuration is not initialized)")
		return
	}

	fmt.Fprintf(out, "  Debug:             %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Log File:          %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Request Timeout:   %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Top K:             %d\n", cfg.TopK)
	fmt.Fprintf(out, "  Metrics:           %v\n", cfg.Metrics)
	if cfg.Metrics {
		fmt.Fprintf(out, "  Metrics File:      %s\n", cfg.MetricsFilePath())
	}
	fmt.Fprintf(out, "  Embedding Backend: %s\n", cfg.Embedding.Backend)
	fmt.Fprintf(out, "  Embedding Model:   %s\n", cfg.Embedding.Model)
	fmt.Fprintf(out, "  Embedding URL:     %s\n", valueOrDefault(cfg.Embedding.BaseURL, "(provider default)"))
	fmt.Fprintf(out, "  Embedding API Key: %s\n", maskSecret(cfg.Embedding.APIKey))
	fmt.Fprintf(out, "  Embedding Batch:   %d\n", cfg.Embedding.BatchSize)
	if cfg.Embedding.Dimensions > 0 {
		fmt.Fprintf(out, "  Embedding Dims:    %d\n", cfg.Embedding.Dimensions)
	}
	fmt.Fprintf(out, "  Generation Backend: %s\n", cfg.Generation.Backend)
	fmt.Fprintf(out, "  Generation Model:   %s\n", cfg.Generation.Model)
	if strings.TrimSpace(cfg.Generation.Instructions) != "" {
		fmt.Fprintf(out, "  Instructions:      custom (%d chars)\n", len(cfg.Generation.Instructions))
	}
	fmt.Fprintf(out, "  PDF Chunking:      %d chars, %d overlap\n", cfg.Chunking.PDFChunkSize, cfg.Chunking.PDFOverlap)
	fmt.Fprintf(out, "  Video Chunking:    %d chars, %d overlap\n", cfg.Chunking.VideoChunkSize, cfg.Chunking.VideoOverlap)
	fmt.Fprintf(out, "  Store Dir:         %s\n", cfg.Store.Dir)
	fmt.Fprintf(out, "  Chunks File:       %s\n", cfg.Corpus.ChunksFile)
	fmt.Fprintf(out, "  PDFs:              %v\n", cfg.Corpus.PDFs)
	fmt.Fprintf(out, "  Transcripts:       %d\n", len(cfg.Corpus.Transcripts))
	if cfg.Corpus.TranscriptsDir != "" {
		fmt.Fprintf(out, "  Transcripts Dir:   %s\n", cfg.Corpus.TranscriptsDir)
	}
}

// Redacted returns a copy of the config with secrets masked.
func (c Config) Redacted() Config {
	out := c
	out.Embedding.APIKey = maskSecret(c.Embedding.APIKey)
	out.Generation.APIKey = maskSecret(c.Generation.APIKey)
	return out
}

func maskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		return "(not set)"
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:3] + "****" + secret[len(secret)-4:]
	}
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
