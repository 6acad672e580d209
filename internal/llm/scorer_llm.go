package llm

import (
	"context"
	"fmt"
	"strings"
)

// LLMCrossScorer scores query/passage relevance by asking a chat
// model for numeric scores. It is the fallback when no dedicated
// cross-encoder service is deployed; precision is lower and latency
// higher, so passages are truncated before prompting.
type LLMCrossScorer struct {
	LLM Generator

	// MaxPassageChars bounds how much of each passage is shown to
	// the model. Zero means the default of 500.
	MaxPassageChars int
}

func NewLLMCrossScorer(client Generator) *LLMCrossScorer {
	return &LLMCrossScorer{LLM: client}
}

type crossScoreResponse struct {
	Scores []float64 `json:"scores"`
}

func (r *LLMCrossScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	limit := r.MaxPassageChars
	if limit <= 0 {
		limit = 500
	}

	var sb strings.Builder
	for i, p := range passages {
		if len(p) > limit {
			p = p[:limit] + "..."
		}
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, p)
	}

	prompt := Prompt{
		System: "You are a search relevance scoring system. You output only JSON.",
		User: fmt.Sprintf(`Query: %s

Passages:
%s
Score each passage's relevance to the query from 0.0 (irrelevant) to 1.0 (directly answers it).
Return a JSON object with key "scores": a list of %d floats in passage order.
Example: {"scores": [0.91, 0.05, 0.44]}
Do not output any other text.`, query, sb.String(), len(passages)),
	}

	resp, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("cross-scoring generation failed: %w", err)
	}

	parsed, err := parseJSON[crossScoreResponse](resp)
	if err != nil {
		return nil, fmt.Errorf("cross-scoring response invalid: %w", err)
	}
	if len(parsed.Scores) != len(passages) {
		return nil, fmt.Errorf("cross-scoring count mismatch: got %d scores for %d passages", len(parsed.Scores), len(passages))
	}
	return parsed.Scores, nil
}
