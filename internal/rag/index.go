// internal/rag/index.go
package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/mwiater/studyrag/internal/logging"
	"github.com/mwiater/studyrag/internal/providers"
)

// Index is an exact nearest-neighbour index over chunk embeddings. Vector i
// belongs to chunk i. It is built once and then only read; Search may be called
// concurrently, while Build, Save and Load must not overlap with anything else.
type Index struct {
	dir string

	buildID uuid.UUID
	model   string
	dim     int
	vectors [][]float32
	chunks  []Chunk
	built   bool
}

// NewIndex returns an empty index persisted under dir.
func NewIndex(dir string) *Index {
	return &Index{dir: dir}
}

// Dir returns the directory holding the index artifacts.
func (x *Index) Dir() string { return x.dir }

// Len returns the number of indexed chunks.
func (x *Index) Len() int { return len(x.chunks) }

// Dimension returns the vector dimension, or 0 before Build or Load.
func (x *Index) Dimension() int { return x.dim }

// Model returns the name of the embedder the index was built with.
func (x *Index) Model() string { return x.model }

// BuildID identifies the build that produced the current artifacts.
func (x *Index) BuildID() uuid.UUID { return x.buildID }

// Build embeds every chunk, replaces the index contents and saves the artifacts.
// On any failure the in-memory index and the artifacts on disk are unchanged.
func (x *Index) Build(ctx context.Context, chunks []Chunk, embedder providers.Embedder, batchSize int) error {
	if len(chunks) == 0 {
		return ErrEmptyCorpus
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	logging.LogEvent("[INDEX] Embedding %d chunks with %s (batch size %d)", len(texts), embedder.Name(), batchSize)
	vectors, err := embedder.EmbedBatch(ctx, texts, batchSize)
	if errors.Is(err, providers.ErrMalformedResponse) {
		return fmt.Errorf("%w: embed chunks: %w", ErrDimensionMismatch, err)
	}
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: %d vectors for %d chunks", ErrDimensionMismatch, len(vectors), len(chunks))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty vector for chunk %q", ErrDimensionMismatch, chunks[0].ID)
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("%w: chunk %q has length %d, expected %d", ErrDimensionMismatch, chunks[i].ID, len(vec), dim)
		}
	}

	next := &Index{
		dir:     x.dir,
		buildID: uuid.New(),
		model:   embedder.Name(),
		dim:     dim,
		vectors: vectors,
		chunks:  append([]Chunk(nil), chunks...),
		built:   true,
	}
	if err := next.Save(); err != nil {
		return err
	}
	*x = *next
	logging.LogEvent("[INDEX] Built index %s: %d vectors, dimension %d", x.buildID, len(x.vectors), x.dim)
	return nil
}

// Search embeds query and returns the k chunks nearest to it, closest first.
func (x *Index) Search(ctx context.Context, query string, k int, embedder providers.Embedder) ([]Result, error) {
	if !x.built {
		return nil, ErrNotBuilt
	}
	if k <= 0 {
		return []Result{}, nil
	}
	vec, err := embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return x.SearchVector(vec, k)
}

// SearchVector returns the k chunks nearest to vec by Euclidean distance,
// closest first. Equal distances keep index order. When k exceeds the index
// size every chunk is returned.
func (x *Index) SearchVector(vec []float32, k int) ([]Result, error) {
	if !x.built {
		return nil, ErrNotBuilt
	}
	if len(vec) != x.dim {
		return nil, fmt.Errorf("%w: query has length %d, index has %d", ErrDimensionMismatch, len(vec), x.dim)
	}
	if k <= 0 {
		return []Result{}, nil
	}
	if k > len(x.vectors) {
		k = len(x.vectors)
	}

	distances := make([]float64, len(x.vectors))
	order := make([]int, len(x.vectors))
	for i, stored := range x.vectors {
		distances[i] = squaredL2(vec, stored)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	results := make([]Result, k)
	for rank, i := range order[:k] {
		d := math.Sqrt(distances[i])
		results[rank] = Result{
			Chunk:           x.chunks[i],
			Distance:        d,
			SimilarityScore: ScoreFromDistance(d),
		}
	}
	return results, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Save writes both artifacts into a new generation directory and then swaps
// the CURRENT pointer to it. Readers see either the old pair or the new one.
// The previous generation is kept for readers still holding it; older ones
// are removed.
func (x *Index) Save() error {
	if !x.built {
		return ErrNotBuilt
	}
	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	vectorData, err := encodeVectors(x.buildID, x.vectors, x.dim)
	if err != nil {
		return err
	}
	metaData, err := json.MarshalIndent(chunkMetadata{
		BuildID:   x.buildID.String(),
		Dimension: x.dim,
		Model:     x.model,
		Count:     len(x.chunks),
		Chunks:    x.chunks,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chunk metadata: %w", err)
	}

	previous, _ := readCurrent(x.dir)
	gen := generationName(x.buildID)
	genDir := filepath.Join(x.dir, gen)
	if err := os.MkdirAll(genDir, 0o755); err != nil {
		return fmt.Errorf("create generation directory: %w", err)
	}
	for _, a := range []struct {
		name string
		data []byte
	}{{ChunksFileName, metaData}, {IndexFileName, vectorData}} {
		if err := writeArtifact(filepath.Join(genDir, a.name), a.data); err != nil {
			_ = os.RemoveAll(genDir)
			return err
		}
	}
	if err := writeArtifact(filepath.Join(x.dir, CurrentFileName), []byte(gen+"\n")); err != nil {
		_ = os.RemoveAll(genDir)
		return err
	}

	pruneGenerations(x.dir, gen, previous)
	return nil
}

// loadAttempts bounds how often Load re-resolves CURRENT when a concurrent
// rebuild prunes the generation it was reading.
const loadAttempts = 5

// Load replaces the index contents with the persisted artifacts.
func (x *Index) Load() error {
	var err error
	for attempt := 0; attempt < loadAttempts; attempt++ {
		var gen string
		gen, err = readCurrent(x.dir)
		if err != nil {
			return err
		}
		err = x.loadGeneration(gen)
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if now, cerr := readCurrent(x.dir); cerr != nil || now == gen {
			return err
		}
	}
	return err
}

func (x *Index) loadGeneration(gen string) error {
	genDir := filepath.Join(x.dir, gen)
	metaData, err := readArtifact(filepath.Join(genDir, ChunksFileName))
	if err != nil {
		return err
	}
	vectorData, err := readArtifact(filepath.Join(genDir, IndexFileName))
	if err != nil {
		return err
	}

	meta, err := decodeMetadata(metaData)
	if err != nil {
		return err
	}
	buildID, vectors, dim, err := decodeVectors(vectorData)
	if err != nil {
		return err
	}
	if meta.BuildID != buildID.String() || gen != generationName(buildID) {
		return fmt.Errorf("%w: artifacts come from different builds (%s, %s, %s)", ErrCorrupt, gen, meta.BuildID, buildID)
	}
	if len(vectors) != len(meta.Chunks) {
		return fmt.Errorf("%w: %d vectors for %d chunks", ErrCorrupt, len(vectors), len(meta.Chunks))
	}
	if meta.Dimension != dim {
		return fmt.Errorf("%w: metadata dimension %d, vectors have %d", ErrCorrupt, meta.Dimension, dim)
	}

	*x = Index{
		dir:     x.dir,
		buildID: buildID,
		model:   meta.Model,
		dim:     dim,
		vectors: vectors,
		chunks:  meta.Chunks,
		built:   true,
	}
	return nil
}

// Exists reports whether CURRENT names a generation holding both artifacts,
// without reading them.
func (x *Index) Exists() bool {
	gen, err := readCurrent(x.dir)
	if err != nil {
		return false
	}
	for _, name := range []string{IndexFileName, ChunksFileName} {
		info, err := os.Stat(filepath.Join(x.dir, gen, name))
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

// IsMissing reports whether err means the index has not been created yet.
func IsMissing(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotBuilt)
}
