// internal/ingest/ingest.go
// Package ingest turns the raw corpus (PDF files and video transcripts) into the chunk
// list consumed by the index build. A source that cannot be read is logged and skipped
// so the rest of the corpus still gets indexed.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mwiater/studyrag/internal/appconfig"
	"github.com/mwiater/studyrag/internal/logging"
	"github.com/mwiater/studyrag/internal/rag"
)

// ErrNoChunks is returned when no source produced any chunk.
var ErrNoChunks = errors.New("ingestion produced no chunks")

// ErrDuplicateSource marks a source skipped because its chunk ids are taken.
var ErrDuplicateSource = errors.New("duplicate source")

// SourceReport describes the outcome for one source.
type SourceReport struct {
	Path   string
	Name   string
	Type   rag.SourceType
	Chunks int
	Err    error
}

// Skipped reports whether the source was dropped.
func (r SourceReport) Skipped() bool { return r.Err != nil }

// Report summarizes an ingestion run.
type Report struct {
	Sources []SourceReport
	Chunks  []rag.Chunk
}

// SkippedCount returns how many sources were dropped.
func (r Report) SkippedCount() int {
	n := 0
	for _, s := range r.Sources {
		if s.Skipped() {
			n++
		}
	}
	return n
}

// Ingester reads and segments corpus sources.
type Ingester struct {
	chunking   appconfig.ChunkingConfig
	extractPDF func(path string) (string, error)
}

// New returns an Ingester using the given per-type chunk sizes.
func New(chunking appconfig.ChunkingConfig) (*Ingester, error) {
	if err := chunking.Validate(); err != nil {
		return nil, err
	}
	return &Ingester{chunking: chunking, extractPDF: ExtractPDFText}, nil
}

// Run processes every PDF, listed transcript and transcript discovered under
// corpus.TranscriptsDir, in that order. Chunks keep source order. A file named
// twice is processed once, listed entries first. A source whose chunk ids collide
// with an earlier source is skipped.
func (in *Ingester) Run(ctx context.Context, corpus appconfig.CorpusConfig) (Report, error) {
	var report Report
	seen := make(map[string]string)
	add := func(sr SourceReport, chunks []rag.Chunk) {
		if sr.Err == nil {
			sr.Err = claimIDs(seen, sr.Path, chunks)
		}
		if sr.Err != nil {
			logging.LogWarn("[INGEST] skipping %s: %v", sr.Path, sr.Err)
			chunks = nil
		} else {
			logging.LogEvent("[INGEST] %s: %d chunks", sr.Name, len(chunks))
		}
		sr.Chunks = len(chunks)
		report.Sources = append(report.Sources, sr)
		report.Chunks = append(report.Chunks, chunks...)
	}

	pdfs := uniquePaths(corpus.PDFs, func(p string) string { return p })
	for _, path := range pdfs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		sr, chunks := in.ingestPDF(path)
		add(sr, chunks)
	}

	transcripts := append([]appconfig.TranscriptSource(nil), corpus.Transcripts...)
	if dir := strings.TrimSpace(corpus.TranscriptsDir); dir != "" {
		found, err := discoverTranscripts(dir, corpus.ExcludeGlobs)
		if err != nil {
			add(SourceReport{Path: dir, Type: rag.SourceTypeVideo, Err: err}, nil)
		}
		transcripts = append(transcripts, found...)
	}
	transcripts = uniquePaths(transcripts, func(ts appconfig.TranscriptSource) string { return ts.Path })
	for _, ts := range transcripts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		sr, chunks := in.ingestTranscript(ts)
		add(sr, chunks)
	}

	if len(report.Chunks) == 0 {
		return report, ErrNoChunks
	}
	return report, nil
}

func (in *Ingester) ingestPDF(path string) (SourceReport, []rag.Chunk) {
	stem := fileStem(path)
	sr := SourceReport{Path: path, Name: stem + "_pdf", Type: rag.SourceTypePDF}

	text, err := in.extractPDF(path)
	if err != nil {
		sr.Err = err
		return sr, nil
	}
	chunks, err := rag.SegmentSource(rag.Source{
		IDPrefix: "pdf_" + stem,
		Name:     sr.Name,
		Type:     rag.SourceTypePDF,
		Text:     text,
	}, in.chunking.PDFChunkSize, in.chunking.PDFOverlap)
	if err == nil && len(chunks) == 0 {
		err = fmt.Errorf("no text after normalization")
	}
	sr.Err = err
	return sr, chunks
}

func (in *Ingester) ingestTranscript(ts appconfig.TranscriptSource) (SourceReport, []rag.Chunk) {
	sr := SourceReport{Path: ts.Path, Type: rag.SourceTypeVideo}

	videoID, err := ExtractVideoID(ts.URL)
	if err != nil {
		sr.Err = err
		return sr, nil
	}
	sr.Name = "youtube_video_" + videoID

	raw, err := os.ReadFile(ts.Path)
	if err != nil {
		sr.Err = fmt.Errorf("read transcript: %w", err)
		return sr, nil
	}
	chunks, err := rag.SegmentSource(rag.Source{
		IDPrefix:     "youtube_" + videoID,
		Name:         sr.Name,
		Type:         rag.SourceTypeVideo,
		Text:         string(raw),
		VideoURL:     ts.URL,
		StripMarkers: true,
	}, in.chunking.VideoChunkSize, in.chunking.VideoOverlap)
	if err == nil && len(chunks) == 0 {
		err = fmt.Errorf("transcript is empty")
	}
	sr.Err = err
	return sr, chunks
}

// discoverTranscripts finds .txt files named after their video id.
func discoverTranscripts(dir string, exclude []string) ([]appconfig.TranscriptSource, error) {
	files, err := discoverFiles(dir, []string{".txt"}, exclude)
	if err != nil {
		return nil, fmt.Errorf("discover transcripts in %s: %w", dir, err)
	}
	out := make([]appconfig.TranscriptSource, 0, len(files))
	for _, path := range files {
		out = append(out, appconfig.TranscriptSource{URL: WatchURL(fileStem(path)), Path: path})
	}
	return out, nil
}

// claimIDs records the ids of chunks for source, or reports the first id an
// earlier source already produced. Nothing is recorded on conflict.
func claimIDs(seen map[string]string, source string, chunks []rag.Chunk) error {
	for _, c := range chunks {
		if owner, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: chunk id %q already produced by %s", ErrDuplicateSource, c.ID, owner)
		}
	}
	for _, c := range chunks {
		seen[c.ID] = source
	}
	return nil
}

// uniquePaths drops items whose path was already seen, keeping the first.
func uniquePaths[T any](items []T, path func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		key := pathKey(path(item))
		if _, dup := seen[key]; dup {
			logging.LogWarn("[INGEST] %s is listed more than once; using the first entry", path(item))
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func pathKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
