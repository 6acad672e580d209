package llm

import (
	"context"
	"sync"

	"github.com/docanchor/docanchor/internal/vec"
)

// CachingEmbedder wraps an Embedder with L2 normalization and an
// in-memory query cache keyed by exact query string. Downstream
// similarity math assumes unit vectors, so every embedding leaves
// this wrapper normalized.
//
// Cache entries are immutable once computed (the underlying model is
// deterministic), so staleness is not a concern.
type CachingEmbedder struct {
	inner Embedder

	mu    sync.RWMutex
	cache map[string][]float32
}

func NewCachingEmbedder(inner Embedder) *CachingEmbedder {
	return &CachingEmbedder{
		inner: inner,
		cache: make(map[string][]float32),
	}
}

func (e *CachingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	v, ok := e.cache[text]
	e.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err := e.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	vec.Normalize(v)

	e.mu.Lock()
	e.cache[text] = v
	e.mu.Unlock()
	return v, nil
}

func (e *CachingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for _, v := range vecs {
		vec.Normalize(v)
	}
	return vecs, nil
}
