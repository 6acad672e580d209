package index

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docanchor/docanchor/internal/model"
	"github.com/docanchor/docanchor/internal/vec"
)

func chunkWithVec(docID, text string, v []float32) model.Chunk {
	vec.Normalize(v)
	return model.Chunk{
		ChunkID:   uuid.NewString(),
		DocID:     docID,
		Text:      text,
		PageStart: 1,
		PageEnd:   1,
		Embedding: v,
	}
}

func TestStoreAddAndSearch(t *testing.T) {
	s := NewStore(t.TempDir(), 3)
	require.NoError(t, s.Add([]model.Chunk{
		chunkWithVec("d1", "north", []float32{1, 0, 0}),
		chunkWithVec("d1", "east", []float32{0, 1, 0}),
		chunkWithVec("d2", "northeast", []float32{1, 1, 0}),
	}))

	query := []float32{1, 0.2, 0}
	vec.Normalize(query)
	results, err := s.Search(query, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "north", results[0].Text)
	assert.Equal(t, "northeast", results[1].Text)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
	// Embeddings never leave the vector array.
	assert.Nil(t, results[0].Embedding)
}

func TestStoreSearchEmpty(t *testing.T) {
	s := NewStore(t.TempDir(), 3)
	results, err := s.Search([]float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStoreDimensionMismatch(t *testing.T) {
	s := NewStore(t.TempDir(), 3)

	err := s.Add([]model.Chunk{chunkWithVec("d1", "short", []float32{1, 0})})
	assert.Error(t, err)
	assert.Equal(t, 0, s.ChunkCount(), "rejected batch must not be partially applied")

	_, err = s.Search([]float32{1, 0}, 5)
	assert.Error(t, err)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 3)
	require.NoError(t, s.Add([]model.Chunk{
		chunkWithVec("d1", "alpha", []float32{1, 0, 0}),
		chunkWithVec("d2", "beta", []float32{0, 1, 0}),
	}))
	require.NoError(t, s.Save())

	loaded := NewStore(dir, 3)
	require.NoError(t, loaded.Load())
	assert.Equal(t, 2, loaded.ChunkCount())
	assert.Equal(t, 2, loaded.DocumentCount())

	query := []float32{1, 0, 0}
	results, err := loaded.Search(query, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].Text)
}

func TestStoreLoadFresh(t *testing.T) {
	s := NewStore(t.TempDir(), 3)
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.ChunkCount())
}

func TestStoreLoadHalfPair(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 3)
	require.NoError(t, s.Add([]model.Chunk{chunkWithVec("d1", "alpha", []float32{1, 0, 0})}))
	require.NoError(t, s.Save())

	require.NoError(t, os.Remove(filepath.Join(dir, "chunks.json")))

	err := NewStore(dir, 3).Load()
	assert.ErrorIs(t, err, ErrInconsistentIndex)
}

func TestStoreLoadCountMismatch(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 3)
	require.NoError(t, s.Add([]model.Chunk{
		chunkWithVec("d1", "alpha", []float32{1, 0, 0}),
		chunkWithVec("d1", "beta", []float32{0, 1, 0}),
	}))
	require.NoError(t, s.Save())

	// Overwrite the metadata file with a single chunk.
	one := NewStore(t.TempDir(), 3)
	require.NoError(t, one.Add([]model.Chunk{chunkWithVec("d1", "alpha", []float32{1, 0, 0})}))
	require.NoError(t, one.Save())
	data, err := os.ReadFile(filepath.Join(one.dir, "chunks.json"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chunks.json"), data, 0o644))

	err = NewStore(dir, 3).Load()
	assert.ErrorIs(t, err, ErrInconsistentIndex)
}

func TestStoreLoadDimMismatch(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 3)
	require.NoError(t, s.Add([]model.Chunk{chunkWithVec("d1", "alpha", []float32{1, 0, 0})}))
	require.NoError(t, s.Save())

	err := NewStore(dir, 8).Load()
	assert.ErrorIs(t, err, ErrInconsistentIndex)
}

func TestStoreClearRemovesArtifacts(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 3)
	require.NoError(t, s.Add([]model.Chunk{chunkWithVec("d1", "alpha", []float32{1, 0, 0})}))
	require.NoError(t, s.Save())

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.ChunkCount())
	_, err := os.Stat(filepath.Join(dir, "vectors.gob"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "chunks.json"))
	assert.True(t, os.IsNotExist(err))

	// Clearing an already empty directory is fine.
	require.NoError(t, s.Clear())
}

func TestStoreDocIDs(t *testing.T) {
	s := NewStore(t.TempDir(), 2)
	require.NoError(t, s.Add([]model.Chunk{
		chunkWithVec("d1", "a", []float32{1, 0}),
		chunkWithVec("d2", "b", []float32{0, 1}),
		chunkWithVec("d1", "c", []float32{1, 1}),
	}))
	assert.Equal(t, []string{"d1", "d2"}, s.DocIDs())
	assert.Equal(t, 2, s.DocumentCount())
}

func TestGuardedConcurrentAccess(t *testing.T) {
	g := NewGuarded(NewStore(t.TempDir(), 2))
	require.NoError(t, g.WithWriteLock(func(s *Store) error {
		return s.Add([]model.Chunk{chunkWithVec("d1", "a", []float32{1, 0})})
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.WithReadLock(func(s *Store) error {
				_, err := s.Search([]float32{1, 0}, 1)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := g.WithWriteLock(func(s *Store) error {
			return s.Add([]model.Chunk{chunkWithVec("d2", "b", []float32{0, 1})})
		})
		assert.NoError(t, err)
	}()
	wg.Wait()

	require.NoError(t, g.WithReadLock(func(s *Store) error {
		assert.Equal(t, 2, s.ChunkCount())
		return nil
	}))
}
