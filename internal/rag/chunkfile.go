// internal/rag/chunkfile.go
package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// chunkFileSchema describes the chunk exchange file: a flat JSON array of chunks.
func chunkFileSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":          map[string]any{"type": "string", "minLength": 1},
				"text":        map[string]any{"type": "string", "pattern": `\S`},
				"source":      map[string]any{"type": "string"},
				"type":        map[string]any{"type": "string", "minLength": 1},
				"chunk_index": map[string]any{"type": "integer", "minimum": 0},
				"video_url":   map[string]any{"type": "string"},
			},
			"required": []string{"id", "text", "source", "type", "chunk_index"},
		},
	}
}

// ValidateChunkFile checks raw chunk file bytes against the exchange schema and
// rejects duplicate ids.
func ValidateChunkFile(data []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(chunkFileSchema())
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("chunk file schema validation error: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("chunk file validation failed: %s", strings.Join(errs, ", "))
	}

	var ids []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("parse chunk file: %w", err)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, c := range ids {
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("chunk file validation failed: duplicate id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// ReadChunkFile loads and validates a chunk exchange file.
func ReadChunkFile(path string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chunk file %s: %w", path, err)
	}
	if err := ValidateChunkFile(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse chunk file %s: %w", path, err)
	}
	return chunks, nil
}

// WriteChunkFile writes chunks as an indented JSON array, replacing path atomically.
func WriteChunkFile(path string, chunks []Chunk) error {
	if chunks == nil {
		chunks = []Chunk{}
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chunk file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create chunk file directory: %w", err)
		}
	}
	return writeFileAtomic(path, data)
}
