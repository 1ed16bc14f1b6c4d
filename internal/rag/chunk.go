// Package rag implements the chunking, indexing and retrieval core: text is segmented
// into overlapping sentence-aligned chunks, embedded through a providers.Embedder,
// stored in an exact nearest-neighbour index, and retrieved as a formatted context block.
package rag

// SourceType tags a chunk with the kind of document it came from.
type SourceType string

const (
	SourceTypePDF   SourceType = "pdf"
	SourceTypeVideo SourceType = "youtube"
)

// Chunk is the unit of retrievable text. Its JSON form is the exchange format
// between ingestion and index building.
type Chunk struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Source     string     `json:"source"`
	Type       SourceType `json:"type"`
	ChunkIndex int        `json:"chunk_index"`
	VideoURL   string     `json:"video_url,omitempty"`
}

// Result is a chunk returned by a search, with its distance to the query.
type Result struct {
	Chunk
	Distance        float64 `json:"distance"`
	SimilarityScore float64 `json:"similarity_score"`
}

// ScoreFromDistance maps a Euclidean distance to (0, 1]; 1 at distance 0.
func ScoreFromDistance(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}
