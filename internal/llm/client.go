// Package llm holds the external model capabilities the pipeline
// consumes: answer generation, text embedding, and pairwise
// cross-scoring. The pipeline depends only on these interfaces;
// provider clients are selected by the factory.
package llm

import (
	"context"
)

// Prompt is a system+user instruction pair for generation.
type Prompt struct {
	System string
	User   string
}

// Generator produces an answer for a prompt. Stateless, single call
// per invocation, no internal retry.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// Embedder maps text to fixed-dimension vectors. Must be
// deterministic for identical input and model, so query caching and
// re-verification stay consistent.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CrossScorer scores query/passage pairs with a higher-precision
// model than the embedding index. Returned scores are parallel to the
// passages slice.
type CrossScorer interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}
