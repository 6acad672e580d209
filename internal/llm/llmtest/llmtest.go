// Package llmtest provides deterministic fakes for the llm
// interfaces. The embedder is a bag-of-words hash: texts sharing
// words get high cosine similarity, unrelated texts get low, so tests
// can steer similarity through wording alone.
package llmtest

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/docanchor/docanchor/internal/llm"
	"github.com/docanchor/docanchor/internal/vec"
)

// Embedder is a deterministic bag-of-words embedder.
type Embedder struct {
	// Dim is the vector dimension; 32 if zero.
	Dim int
	// Err, when set, fails every call.
	Err error
}

func (e *Embedder) dim() int {
	if e.Dim <= 0 {
		return 32
	}
	return e.Dim
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return e.embed(text), nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *Embedder) embed(text string) []float32 {
	v := make([]float32, e.dim())
	for _, word := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(word))
		v[h.Sum32()%uint32(e.dim())]++
	}
	vec.Normalize(v)
	return v
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// Generator returns canned responses, optionally from a queue.
type Generator struct {
	Response string
	Queue    []string
	Err      error

	// LastPrompt records the most recent prompt for assertions.
	LastPrompt llm.Prompt
}

func (g *Generator) Generate(ctx context.Context, p llm.Prompt) (string, error) {
	g.LastPrompt = p
	if g.Err != nil {
		return "", g.Err
	}
	if len(g.Queue) > 0 {
		resp := g.Queue[0]
		g.Queue = g.Queue[1:]
		return resp, nil
	}
	return g.Response, nil
}

// Scorer returns fixed cross-scores, or a uniform 0.5 when none are
// configured.
type Scorer struct {
	Scores []float64
	Err    error

	Calls        int
	LastPassages []string
}

func (s *Scorer) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	s.Calls++
	s.LastPassages = passages
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]float64, len(passages))
	for i := range out {
		if i < len(s.Scores) {
			out[i] = s.Scores[i]
		} else {
			out[i] = 0.5
		}
	}
	return out, nil
}
