package rag

import "errors"

var (
	// ErrSegmentation reports chunking parameters that cannot be segmented.
	ErrSegmentation = errors.New("invalid segmentation parameters")
	// ErrDimensionMismatch reports embeddings that disagree in count or length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrNotBuilt is returned by Search before Build or Load succeeded.
	ErrNotBuilt = errors.New("index has not been built or loaded")
	// ErrNotFound is returned by Load when an index artifact is missing.
	ErrNotFound = errors.New("index artifacts not found")
	// ErrCorrupt is returned by Load when the artifacts are inconsistent.
	ErrCorrupt = errors.New("index artifacts are corrupt")
	// ErrEmptyCorpus is returned by Build when there is nothing to index.
	ErrEmptyCorpus = errors.New("no chunks to index")
)
