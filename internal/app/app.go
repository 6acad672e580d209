// Package app is the composition root: it turns configuration into a
// fully wired pipeline. Both the HTTP server and the CLI build their
// pipeline here, so every entrypoint gets identical wiring and tests
// can construct a pipeline with fakes instead.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/docanchor/docanchor/internal/chunker"
	"github.com/docanchor/docanchor/internal/cite"
	"github.com/docanchor/docanchor/internal/config"
	"github.com/docanchor/docanchor/internal/document"
	"github.com/docanchor/docanchor/internal/index"
	"github.com/docanchor/docanchor/internal/llm"
	"github.com/docanchor/docanchor/internal/pipeline"
	"github.com/docanchor/docanchor/internal/rerank"
	"github.com/docanchor/docanchor/internal/verify"
)

// Build wires a pipeline from configuration, loading any persisted
// index from disk. A half-present index pair aborts startup rather
// than serving wrong chunks.
func Build(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, error) {
	generator, rawEmbedder, err := llm.NewClient(ctx, llm.ProviderConfig{
		Provider:       cfg.LLM.Provider,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		MaxTokens:      cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}
	if rawEmbedder == nil {
		return nil, fmt.Errorf("provider %q cannot embed; configure an embedding-capable provider", cfg.LLM.Provider)
	}
	embedder := llm.NewCachingEmbedder(rawEmbedder)

	timeout := time.Duration(cfg.Pipeline.ExternalTimeoutSeconds) * time.Second

	var scorer llm.CrossScorer
	switch cfg.Reranker.Mode {
	case "http":
		scorer = llm.NewHTTPCrossScorer(cfg.Reranker.URL, timeout)
	default:
		scorer = llm.NewLLMCrossScorer(generator)
	}

	store := index.NewStore(cfg.Storage.IndexDir, cfg.Embedding.Dim)
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	deps := pipeline.Deps{
		Embedder:  embedder,
		Generator: generator,
		Index:     index.NewGuarded(store),
		Chunker: chunker.New(embedder, chunker.Options{
			MaxTokens:           cfg.Chunker.MaxTokens,
			MinTokens:           cfg.Chunker.MinTokens,
			OverlapTokens:       cfg.Chunker.OverlapTokens,
			SimilarityThreshold: cfg.Chunker.SimilarityThreshold,
			WindowSize:          cfg.Chunker.WindowSize,
		}),
		Reranker: rerank.New(scorer, cfg.Reranker.MaxPassages, cfg.Reranker.TopN),
		Verifier: verify.New(embedder, verify.Options{
			SimilarityThreshold: cfg.Verifier.SimilarityThreshold,
			MinUnsupportedRatio: cfg.Verifier.MinUnsupportedRatio,
			MinSentenceLength:   cfg.Verifier.MinSentenceLength,
		}),
		Extractor: cite.NewExtractor(cfg.Verifier.MinSentenceLength),
		Prompts:   pipeline.NewPromptBuilder(cfg.Retrieval.MaxEvidence),
		Loader:    document.NewTextLoader(),
		Cleaner:   document.NewCleaner(),
	}

	return pipeline.New(deps, pipeline.Options{
		TopK:            cfg.Retrieval.TopK,
		ExternalTimeout: timeout,
	}), nil
}
