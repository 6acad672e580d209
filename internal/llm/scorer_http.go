package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPCrossScorer talks to a cross-encoder reranking service exposing
// the text-embeddings-inference style /rerank API:
//
//	POST {base}/rerank {"query": "...", "texts": ["...", ...]}
//	-> [{"index": 0, "score": 0.98}, ...]
//
// Transient failures (5xx, network) are retried with exponential
// backoff; client errors are not.
type HTTPCrossScorer struct {
	baseURL string
	client  *http.Client

	maxRetries int
	backoff    time.Duration
}

func NewHTTPCrossScorer(baseURL string, timeout time.Duration) *HTTPCrossScorer {
	return &HTTPCrossScorer{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
		maxRetries: 3,
		backoff:    time.Second,
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankEntry struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (r *HTTPCrossScorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: passages})
	if err != nil {
		return nil, err
	}

	var lastErr error
	delay := r.backoff
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("rerank request retrying", "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
		}

		scores, retryable, err := r.scoreOnce(ctx, body, len(passages))
		if err == nil {
			return scores, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("rerank request failed after %d attempts: %w", r.maxRetries, lastErr)
}

func (r *HTTPCrossScorer) scoreOnce(ctx context.Context, body []byte, n int) (scores []float64, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("rerank service returned %d: %s", resp.StatusCode, data)
		return nil, resp.StatusCode >= 500, err
	}

	var entries []rerankEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, false, fmt.Errorf("rerank response invalid: %w", err)
	}

	out := make([]float64, n)
	seen := 0
	for _, e := range entries {
		if e.Index < 0 || e.Index >= n {
			return nil, false, fmt.Errorf("rerank response index %d out of range", e.Index)
		}
		out[e.Index] = e.Score
		seen++
	}
	if seen != n {
		return nil, false, fmt.Errorf("rerank response covered %d of %d passages", seen, n)
	}
	return out, false, nil
}
