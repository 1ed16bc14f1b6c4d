// internal/rag/store.go
package rag

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/mwiater/studyrag/internal/logging"
)

const (
	// IndexFileName holds the binary vector data.
	IndexFileName = "index.bin"
	// ChunksFileName holds the chunk metadata aligned with the vectors.
	ChunksFileName = "chunks.json"
	// CurrentFileName names the generation directory holding the live artifacts.
	CurrentFileName = "CURRENT"

	generationPrefix = "gen-"

	indexVersion uint16 = 1
	// magic(4) + version(2) + build id(16) + count(4) + dim(4)
	indexHeaderSize = 4 + 2 + 16 + 4 + 4
	indexCRCSize    = 4
)

var indexMagic = [4]byte{'S', 'R', 'I', 'X'}

// chunkMetadata is the on-disk form of ChunksFileName.
type chunkMetadata struct {
	BuildID   string  `json:"build_id"`
	Dimension int     `json:"dimension"`
	Model     string  `json:"model,omitempty"`
	Count     int     `json:"count"`
	Chunks    []Chunk `json:"chunks"`
}

// encodeVectors serializes vectors into the index artifact layout, followed by a
// CRC-32 of everything before it.
func encodeVectors(buildID uuid.UUID, vectors [][]float32, dim int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(indexHeaderSize + len(vectors)*dim*4 + indexCRCSize)

	buf.Write(indexMagic[:])
	_ = binary.Write(&buf, binary.LittleEndian, indexVersion)
	buf.Write(buildID[:])
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(vectors)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dim))

	scratch := make([]byte, 4)
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: vector %d has length %d, expected %d", ErrDimensionMismatch, i, len(vec), dim)
		}
		for _, v := range vec {
			binary.LittleEndian.PutUint32(scratch, math.Float32bits(v))
			buf.Write(scratch)
		}
	}

	_ = binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes(), nil
}

// decodeVectors parses the index artifact. Every structural problem is ErrCorrupt.
func decodeVectors(data []byte) (uuid.UUID, [][]float32, int, error) {
	if len(data) < indexHeaderSize+indexCRCSize {
		return uuid.Nil, nil, 0, fmt.Errorf("%w: index file truncated (%d bytes)", ErrCorrupt, len(data))
	}
	if !bytes.Equal(data[:4], indexMagic[:]) {
		return uuid.Nil, nil, 0, fmt.Errorf("%w: bad index file magic", ErrCorrupt)
	}
	if v := binary.LittleEndian.Uint16(data[4:6]); v != indexVersion {
		return uuid.Nil, nil, 0, fmt.Errorf("%w: unsupported index version %d", ErrCorrupt, v)
	}

	body, sum := data[:len(data)-indexCRCSize], binary.LittleEndian.Uint32(data[len(data)-indexCRCSize:])
	if crc32.ChecksumIEEE(body) != sum {
		return uuid.Nil, nil, 0, fmt.Errorf("%w: index checksum mismatch", ErrCorrupt)
	}

	buildID, err := uuid.FromBytes(data[6:22])
	if err != nil {
		return uuid.Nil, nil, 0, fmt.Errorf("%w: build id: %v", ErrCorrupt, err)
	}
	count := int(binary.LittleEndian.Uint32(data[22:26]))
	dim := int(binary.LittleEndian.Uint32(data[26:30]))
	payload := body[indexHeaderSize:]

	// Sizes are checked by division so a hostile header cannot overflow.
	switch {
	case dim == 0 && count > 0:
		return uuid.Nil, nil, 0, fmt.Errorf("%w: zero dimension with %d vectors", ErrCorrupt, count)
	case dim == 0 && len(payload) > 0:
		return uuid.Nil, nil, 0, fmt.Errorf("%w: %d vector bytes with zero dimension", ErrCorrupt, len(payload))
	case dim > 0 && (len(payload)%(4*dim) != 0 || len(payload)/(4*dim) != count):
		return uuid.Nil, nil, 0, fmt.Errorf("%w: header declares %d vectors of dimension %d, found %d vector bytes", ErrCorrupt, count, dim, len(payload))
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			off := (i*dim + j) * 4
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(payload[off : off+4]))
		}
		vectors[i] = vec
	}
	return buildID, vectors, dim, nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// writeArtifact persists one file; swapped in tests to simulate write failures.
var writeArtifact = writeFileAtomic

func generationName(buildID uuid.UUID) string {
	return generationPrefix + buildID.String()
}

// readCurrent returns the generation directory name the pointer file names.
func readCurrent(dir string) (string, error) {
	data, err := readArtifact(filepath.Join(dir, CurrentFileName))
	if err != nil {
		return "", err
	}
	gen := strings.TrimSpace(string(data))
	if !strings.HasPrefix(gen, generationPrefix) || gen != filepath.Base(gen) {
		return "", fmt.Errorf("%w: %s names %q", ErrCorrupt, CurrentFileName, gen)
	}
	return gen, nil
}

// pruneGenerations removes generation directories other than those in keep.
func pruneGenerations(dir string, keep ...string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.LogWarn("[INDEX] list %s for pruning: %v", dir, err)
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.HasPrefix(name, generationPrefix) || slices.Contains(keep, name) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
			logging.LogWarn("[INDEX] remove stale generation %s: %v", name, err)
		}
	}
}

// readArtifact reads one artifact, mapping a missing file to ErrNotFound.
func readArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func decodeMetadata(data []byte) (chunkMetadata, error) {
	var meta chunkMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return chunkMetadata{}, fmt.Errorf("%w: parse chunk metadata: %v", ErrCorrupt, err)
	}
	if meta.Count != len(meta.Chunks) {
		return chunkMetadata{}, fmt.Errorf("%w: chunk metadata declares %d chunks, holds %d", ErrCorrupt, meta.Count, len(meta.Chunks))
	}
	return meta, nil
}
