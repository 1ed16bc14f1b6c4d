// internal/rag/segmenter.go
package rag

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mwiater/studyrag/internal/logging"
)

// safetyMargin is added to the expected chunk count to bound segmentation output.
const safetyMargin = 8

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	bracketedMarker = regexp.MustCompile(`\[[^\]]*\]`)
)

// Source is one document's text plus the provenance stamped onto its chunks.
type Source struct {
	// IDPrefix forms chunk ids as "<IDPrefix>_chunk_<n>".
	IDPrefix string
	Name     string
	Type     SourceType
	Text     string
	VideoURL string
	// StripMarkers removes bracketed markers such as "[Music]" or "[00:12]".
	StripMarkers bool
}

// NormalizeText collapses whitespace runs to single spaces and trims the result.
// With stripMarkers set, bracketed markers are removed first.
func NormalizeText(text string, stripMarkers bool) string {
	if stripMarkers {
		text = bracketedMarker.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// SegmentSource normalizes and segments a source, filling in ids and provenance.
func SegmentSource(src Source, chunkSize, overlap int) ([]Chunk, error) {
	if strings.TrimSpace(src.IDPrefix) == "" {
		return nil, fmt.Errorf("%w: source id prefix is empty", ErrSegmentation)
	}
	chunks, err := Segment(NormalizeText(src.Text, src.StripMarkers), chunkSize, overlap)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].ID = fmt.Sprintf("%s_chunk_%d", src.IDPrefix, chunks[i].ChunkIndex)
		chunks[i].Source = src.Name
		chunks[i].Type = src.Type
		chunks[i].VideoURL = src.VideoURL
	}
	return chunks, nil
}

// Segment splits already-normalized text into overlapping chunks of about
// chunkSize characters, preferring to cut after the last '.', '?' or '!' in each
// window. Only Text and ChunkIndex are set on the returned chunks.
func Segment(text string, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrSegmentation, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrSegmentation, overlap, chunkSize)
	}

	runes := []rune(text)
	var chunks []Chunk
	for _, s := range segmentSpans(runes, chunkSize, overlap) {
		piece := strings.TrimSpace(string(runes[s.start:s.end]))
		if piece == "" {
			continue
		}
		chunks = append(chunks, Chunk{Text: piece, ChunkIndex: len(chunks)})
	}
	return chunks, nil
}

type span struct {
	start, end int
}

// maxChunks caps the spans produced for n runes. Hard cuts advance by
// chunkSize-overlap; sentence cuts may end a window early, so twice that count
// is allowed.
func maxChunks(n, chunkSize, overlap int) int {
	return 2*(n/(chunkSize-overlap)) + safetyMargin
}

// segmentSpans returns the [start, end) rune windows in left-to-right order.
// Each window ends past the previous one. The next window starts overlap runes
// before the cut, or at the cut itself when that would not move forward.
func segmentSpans(runes []rune, chunkSize, overlap int) []span {
	n := len(runes)
	limit := maxChunks(n, chunkSize, overlap)

	var spans []span
	start, prevEnd := 0, 0
	for start < n {
		if len(spans) == limit {
			logging.LogWarn("[SEGMENT] stopped at %d chunks with %d of %d characters covered", limit, prevEnd, n)
			break
		}
		end := start + chunkSize
		if end >= n {
			end = n
		} else {
			for i := end - 1; i > start && i >= prevEnd; i-- {
				if isSentenceEnd(runes[i]) {
					end = i + 1
					break
				}
			}
		}
		spans = append(spans, span{start: start, end: end})
		prevEnd = end
		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}
