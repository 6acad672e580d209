// Package rerank re-scores retrieval candidates against the query
// with a higher-precision pairwise model and returns an ordered
// top-N. The scoring model is external; this wrapper owns the
// contract that matters: the truncation bound and a stable order on
// score ties.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"github.com/docanchor/docanchor/internal/llm"
	"github.com/docanchor/docanchor/internal/model"
)

// Reranker is a thin adapter over a CrossScorer.
type Reranker struct {
	scorer llm.CrossScorer

	// MaxPassages bounds how many candidates are cross-scored; the
	// pairwise model is the performance bottleneck. Extra candidates
	// are truncated silently.
	MaxPassages int
	// TopN is the default result count for Rerank.
	TopN int
}

func New(scorer llm.CrossScorer, maxPassages, topN int) *Reranker {
	if maxPassages <= 0 {
		maxPassages = 20
	}
	if topN <= 0 {
		topN = 5
	}
	return &Reranker{scorer: scorer, MaxPassages: maxPassages, TopN: topN}
}

// Rerank scores up to MaxPassages candidates and returns the TopN
// ordered by descending CrossScore. Ties keep the candidates'
// original (retrieval) order. Empty candidates return empty.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []model.Evidence) ([]model.Evidence, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	if len(candidates) > r.MaxPassages {
		candidates = candidates[:r.MaxPassages]
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Text
	}

	scores, err := r.scorer.Score(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("cross-scoring failed: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("cross-scorer returned %d scores for %d candidates", len(scores), len(candidates))
	}

	ranked := make([]model.Evidence, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].CrossScore = scores[i]
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].CrossScore > ranked[j].CrossScore })

	if len(ranked) > r.TopN {
		ranked = ranked[:r.TopN]
	}
	return ranked, nil
}
