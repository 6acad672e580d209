package rerank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docanchor/docanchor/internal/llm/llmtest"
	"github.com/docanchor/docanchor/internal/model"
)

func candidates(texts ...string) []model.Evidence {
	out := make([]model.Evidence, len(texts))
	for i, t := range texts {
		out[i] = model.Evidence{Chunk: model.Chunk{ChunkID: t, Text: t}}
	}
	return out
}

func TestRerankOrdersByScore(t *testing.T) {
	scorer := &llmtest.Scorer{Scores: []float64{0.1, 0.9, 0.5}}
	r := New(scorer, 20, 5)

	ranked, err := r.Rerank(context.Background(), "q", candidates("a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, "b", ranked[0].Text)
	assert.Equal(t, "c", ranked[1].Text)
	assert.Equal(t, "a", ranked[2].Text)
	assert.Equal(t, 0.9, ranked[0].CrossScore)
}

func TestRerankStableOnTies(t *testing.T) {
	scorer := &llmtest.Scorer{Scores: []float64{0.5, 0.5, 0.5, 0.9}}
	r := New(scorer, 20, 5)

	ranked, err := r.Rerank(context.Background(), "q", candidates("a", "b", "c", "d"))
	require.NoError(t, err)

	// Tied candidates keep their retrieval order behind the winner.
	assert.Equal(t, "d", ranked[0].Text)
	assert.Equal(t, "a", ranked[1].Text)
	assert.Equal(t, "b", ranked[2].Text)
	assert.Equal(t, "c", ranked[3].Text)
}

func TestRerankTruncatesToMaxPassages(t *testing.T) {
	scorer := &llmtest.Scorer{}
	r := New(scorer, 2, 5)

	ranked, err := r.Rerank(context.Background(), "q", candidates("a", "b", "c", "d"))
	require.NoError(t, err)

	assert.Len(t, scorer.LastPassages, 2, "only the first MaxPassages candidates are scored")
	assert.Len(t, ranked, 2)
}

func TestRerankCutsToTopN(t *testing.T) {
	scorer := &llmtest.Scorer{Scores: []float64{0.1, 0.9, 0.5, 0.7}}
	r := New(scorer, 20, 2)

	ranked, err := r.Rerank(context.Background(), "q", candidates("a", "b", "c", "d"))
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].Text)
	assert.Equal(t, "d", ranked[1].Text)
}

func TestRerankEmptyCandidates(t *testing.T) {
	scorer := &llmtest.Scorer{}
	r := New(scorer, 20, 5)

	ranked, err := r.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, ranked)
	assert.Zero(t, scorer.Calls, "no scoring call for an empty candidate set")
}

func TestRerankScorerError(t *testing.T) {
	scorer := &llmtest.Scorer{Err: errors.New("boom")}
	r := New(scorer, 20, 5)

	_, err := r.Rerank(context.Background(), "q", candidates("a"))
	assert.Error(t, err)
}

func TestRerankScoreCountMismatch(t *testing.T) {
	r := New(shortScorer{}, 20, 5)

	_, err := r.Rerank(context.Background(), "q", candidates("a", "b"))
	assert.Error(t, err)
}

func TestRerankPreservesInput(t *testing.T) {
	scorer := &llmtest.Scorer{Scores: []float64{0.1, 0.9}}
	r := New(scorer, 20, 5)
	in := candidates("a", "b")

	_, err := r.Rerank(context.Background(), "q", in)
	require.NoError(t, err)

	assert.Equal(t, "a", in[0].Text)
	assert.Zero(t, in[0].CrossScore, "caller's slice is not mutated")
}

type shortScorer struct{}

func (shortScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	return []float64{0.5}, nil
}
