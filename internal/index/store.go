// Package index stores chunk vectors and metadata for inner-product
// retrieval. Vectors and chunk metadata are two parallel arrays:
// position i in one corresponds to position i in the other. That
// alignment is the core invariant; every mutation and both persisted
// files must preserve it.
package index

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/docanchor/docanchor/internal/model"
	"github.com/docanchor/docanchor/internal/vec"
)

const (
	vectorsFile = "vectors.gob"
	chunksFile  = "chunks.json"
)

// ErrInconsistentIndex reports persisted artifacts that do not form a
// valid pair: one file missing, or counts that disagree. Loading must
// fail loudly rather than serve wrong chunks for valid-looking hits.
var ErrInconsistentIndex = errors.New("index artifacts inconsistent")

// Store is a flat inner-product index over pre-normalized vectors
// with parallel chunk metadata. It is not safe for concurrent use;
// wrap it in Guarded.
type Store struct {
	dir     string
	dim     int
	vectors [][]float32
	chunks  []model.Chunk
}

func NewStore(dir string, dim int) *Store {
	return &Store{dir: dir, dim: dim}
}

// Add appends chunk vectors and metadata in the same order. Stored
// metadata has the embedding stripped; the vector array is the only
// owner of vector data.
func (s *Store) Add(chunks []model.Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) != s.dim {
			return fmt.Errorf("chunk %s: embedding dimension %d, index dimension %d", c.ChunkID, len(c.Embedding), s.dim)
		}
	}
	for _, c := range chunks {
		s.vectors = append(s.vectors, c.Embedding)
		c.Embedding = nil
		s.chunks = append(s.chunks, c)
	}
	return nil
}

// Search returns up to topK chunks ranked by inner product with the
// query vector. With pre-normalized vectors the inner product is the
// cosine similarity. An empty index returns no results.
func (s *Store) Search(query []float32, topK int) ([]model.Evidence, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(query), s.dim)
	}
	if len(s.vectors) == 0 || topK <= 0 {
		return nil, nil
	}

	type scored struct {
		idx   int
		score float64
	}
	all := make([]scored, len(s.vectors))
	for i, v := range s.vectors {
		all[i] = scored{idx: i, score: vec.Dot(query, v)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	if topK > len(all) {
		topK = len(all)
	}
	results := make([]model.Evidence, topK)
	for i := 0; i < topK; i++ {
		results[i] = model.Evidence{
			Chunk:      s.chunks[all[i].idx],
			Similarity: all[i].score,
		}
	}
	return results, nil
}

// Clear resets the index to empty and removes persisted artifacts.
func (s *Store) Clear() error {
	s.vectors = nil
	s.chunks = nil
	for _, name := range []string{vectorsFile, chunksFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) ChunkCount() int { return len(s.chunks) }

func (s *Store) DocumentCount() int { return len(s.DocIDs()) }

// DocIDs returns the distinct document IDs in index order of first
// appearance.
func (s *Store) DocIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, c := range s.chunks {
		if _, ok := seen[c.DocID]; ok {
			continue
		}
		seen[c.DocID] = struct{}{}
		ids = append(ids, c.DocID)
	}
	return ids
}

// persistedVectors is the on-disk vector container.
type persistedVectors struct {
	Dim     int
	Vectors [][]float32
}

// Save persists the vector array and chunk metadata as a pair. Each
// file is written to a temp path and renamed into place so a crash
// never leaves a partially written artifact behind.
func (s *Store) Save() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}

	vecTmp, err := s.writeVectorsTmp()
	if err != nil {
		return err
	}
	chunkTmp, err := s.writeChunksTmp()
	if err != nil {
		os.Remove(vecTmp)
		return err
	}

	if err := os.Rename(vecTmp, filepath.Join(s.dir, vectorsFile)); err != nil {
		os.Remove(chunkTmp)
		return fmt.Errorf("failed to commit vectors file: %w", err)
	}
	if err := os.Rename(chunkTmp, filepath.Join(s.dir, chunksFile)); err != nil {
		return fmt.Errorf("failed to commit chunks file: %w", err)
	}
	return nil
}

func (s *Store) writeVectorsTmp() (string, error) {
	f, err := os.CreateTemp(s.dir, vectorsFile+".tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp vectors file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(persistedVectors{Dim: s.dim, Vectors: s.vectors}); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to encode vectors: %w", err)
	}
	return f.Name(), nil
}

func (s *Store) writeChunksTmp() (string, error) {
	data, err := json.Marshal(s.chunks)
	if err != nil {
		return "", fmt.Errorf("failed to encode chunk metadata: %w", err)
	}
	f, err := os.CreateTemp(s.dir, chunksFile+".tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp chunks file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write chunk metadata: %w", err)
	}
	return f.Name(), nil
}

// Load restores the vector array and chunk metadata. Missing both
// files means a fresh index. Missing exactly one, or counts that
// disagree, is ErrInconsistentIndex: the pair is one atomic unit and
// must never be half-loaded.
func (s *Store) Load() error {
	vecPath := filepath.Join(s.dir, vectorsFile)
	chunkPath := filepath.Join(s.dir, chunksFile)

	_, vecErr := os.Stat(vecPath)
	_, chunkErr := os.Stat(chunkPath)
	vecMissing := os.IsNotExist(vecErr)
	chunkMissing := os.IsNotExist(chunkErr)

	switch {
	case vecMissing && chunkMissing:
		s.vectors = nil
		s.chunks = nil
		return nil
	case vecMissing != chunkMissing:
		return fmt.Errorf("%w: have vectors=%v chunks=%v", ErrInconsistentIndex, !vecMissing, !chunkMissing)
	}

	vf, err := os.Open(vecPath)
	if err != nil {
		return fmt.Errorf("failed to open vectors file: %w", err)
	}
	defer vf.Close()

	var pv persistedVectors
	if err := gob.NewDecoder(vf).Decode(&pv); err != nil {
		return fmt.Errorf("failed to decode vectors: %w", err)
	}
	if pv.Dim != s.dim {
		return fmt.Errorf("%w: persisted dimension %d, configured %d", ErrInconsistentIndex, pv.Dim, s.dim)
	}

	data, err := os.ReadFile(chunkPath)
	if err != nil {
		return fmt.Errorf("failed to read chunk metadata: %w", err)
	}
	var chunks []model.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return fmt.Errorf("failed to decode chunk metadata: %w", err)
	}

	if len(pv.Vectors) != len(chunks) {
		return fmt.Errorf("%w: %d vectors, %d chunks", ErrInconsistentIndex, len(pv.Vectors), len(chunks))
	}

	s.vectors = pv.Vectors
	s.chunks = chunks
	return nil
}
