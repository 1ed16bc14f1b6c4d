package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// stubEmbedder returns hand-picked vectors keyed by text.
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	// dropLast makes EmbedBatch return one vector fewer than requested.
	dropLast bool
	// err fails every call.
	err        error
	batchCalls int
}

func (s *stubEmbedder) lookup(text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	vec, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no stub vector for %q", text)
	}
	return append([]float32(nil), vec...), nil
}

func (s *stubEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(text)
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string, _ int) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchCalls++
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := s.lookup(text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	if s.dropLast && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return 0 }
func (s *stubEmbedder) Name() string   { return "stub/test" }

// economicsCorpus is the three-chunk corpus used across index tests.
func economicsCorpus() ([]Chunk, *stubEmbedder) {
	chunks := []Chunk{
		{ID: "a", Text: "Economics studies scarcity.", Source: "economics_pdf", Type: SourceTypePDF, ChunkIndex: 0},
		{ID: "b", Text: "Markets set prices.", Source: "economics_pdf", Type: SourceTypePDF, ChunkIndex: 1},
		{ID: "c", Text: "GDP sums output.", Source: "youtube_video_abc", Type: SourceTypeVideo, ChunkIndex: 0, VideoURL: "https://youtu.be/abc"},
	}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"Economics studies scarcity.": {1, 0},
		"Markets set prices.":         {0, 1},
		"GDP sums output.":            {0.1, 0.9},
		"What is economics?":          {0.9, 0.1},
	}}
	return chunks, embedder
}

func resultIDs(results []Result) string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return strings.Join(ids, ",")
}
