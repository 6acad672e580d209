// Package chunker splits page-wise document text into bounded,
// semantically coherent segments with page provenance. Chunk
// boundaries are driven by a token budget and by embedding similarity
// against a recent-window centroid, with a trailing token overlap
// carried across boundaries to preserve local context.
package chunker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/docanchor/docanchor/internal/llm"
	"github.com/docanchor/docanchor/internal/model"
	"github.com/docanchor/docanchor/internal/text"
	"github.com/docanchor/docanchor/internal/vec"
)

// Options tune chunk boundary decisions. Zero values are replaced by
// defaults matching the reference configuration.
type Options struct {
	// MaxTokens closes a chunk when adding the next sentence would
	// exceed it.
	MaxTokens int
	// MinTokens is the minimum chunk size before a similarity drop
	// may close a chunk.
	MinTokens int
	// OverlapTokens is the trailing token window seeded into the
	// next chunk.
	OverlapTokens int
	// SimilarityThreshold is the cosine similarity below which a
	// sentence starts a new chunk (once MinTokens is reached).
	SimilarityThreshold float64
	// WindowSize is how many recent sentence embeddings form the
	// comparison centroid. Bounding the window reduces centroid
	// drift on long chunks.
	WindowSize int
	// MinSentenceChars discards shorter sentence fragments as noise.
	MinSentenceChars int
}

func (o *Options) applyDefaults() {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 450
	}
	if o.MinTokens <= 0 {
		o.MinTokens = 200
	}
	if o.OverlapTokens <= 0 {
		o.OverlapTokens = 50
	}
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = 0.75
	}
	if o.WindowSize <= 0 {
		o.WindowSize = 5
	}
	if o.MinSentenceChars <= 0 {
		o.MinSentenceChars = 3
	}
}

// Chunker is a section-agnostic semantic chunker.
type Chunker struct {
	embedder llm.Embedder
	opts     Options
}

func New(embedder llm.Embedder, opts Options) *Chunker {
	opts.applyDefaults()
	return &Chunker{embedder: embedder, opts: opts}
}

// sentence is a unit of accumulation: text, source page, token
// estimate, and its embedding.
type sentence struct {
	text      string
	page      int
	tokens    int
	embedding []float32
}

// Chunk splits pages into ordered chunks. A document with zero
// extractable sentences yields zero chunks. A single sentence longer
// than MaxTokens still becomes its own chunk; the chunker never
// splits below sentence granularity.
func (c *Chunker) Chunk(ctx context.Context, pages []model.Page, docID string) ([]model.Chunk, error) {
	sentences := c.collectSentences(pages)
	if len(sentences) == 0 {
		return nil, nil
	}

	texts := make([]string, len(sentences))
	for i, s := range sentences {
		texts[i] = s.text
	}
	embeddings, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed sentences: %w", err)
	}
	if len(embeddings) != len(sentences) {
		return nil, fmt.Errorf("sentence embedding count mismatch: %d != %d", len(embeddings), len(sentences))
	}
	for i := range sentences {
		sentences[i].embedding = embeddings[i]
	}

	var chunks []model.Chunk
	var current []sentence
	currentTokens := 0

	for _, s := range sentences {
		if len(current) > 0 {
			sim := vec.Cosine(s.embedding, c.windowCentroid(current))
			overBudget := currentTokens+s.tokens > c.opts.MaxTokens
			topicBreak := sim < c.opts.SimilarityThreshold && currentTokens >= c.opts.MinTokens

			if overBudget || topicBreak {
				chunks = append(chunks, c.buildChunk(current, docID))

				overlap := c.trailingOverlap(current)
				current = overlap
				currentTokens = 0
				for _, o := range overlap {
					currentTokens += o.tokens
				}
			}
		}
		current = append(current, s)
		currentTokens += s.tokens
	}

	if len(current) > 0 {
		chunks = append(chunks, c.buildChunk(current, docID))
	}
	return chunks, nil
}

func (c *Chunker) collectSentences(pages []model.Page) []sentence {
	var out []sentence
	for _, page := range pages {
		for _, s := range text.SplitSentences(page.Text) {
			if len(s) < c.opts.MinSentenceChars {
				continue
			}
			out = append(out, sentence{
				text:   s,
				page:   page.PageNum,
				tokens: text.EstimateTokens(s),
			})
		}
	}
	return out
}

// windowCentroid averages the last WindowSize sentence embeddings of
// the current chunk, not the whole chunk.
func (c *Chunker) windowCentroid(current []sentence) []float32 {
	start := len(current) - c.opts.WindowSize
	if start < 0 {
		start = 0
	}
	window := make([][]float32, 0, len(current)-start)
	for _, s := range current[start:] {
		window = append(window, s.embedding)
	}
	return vec.Mean(window)
}

// trailingOverlap walks backward through a closed chunk accumulating
// token estimates until OverlapTokens is reached. The overlap seeds
// the next chunk, embeddings included.
func (c *Chunker) trailingOverlap(closed []sentence) []sentence {
	tokens := 0
	i := len(closed)
	for i > 0 && tokens < c.opts.OverlapTokens {
		i--
		tokens += closed[i].tokens
	}
	overlap := make([]sentence, len(closed)-i)
	copy(overlap, closed[i:])
	return overlap
}

func (c *Chunker) buildChunk(sentences []sentence, docID string) model.Chunk {
	pageStart := sentences[0].page
	pageEnd := sentences[0].page
	tokens := 0
	var sb []byte

	for i, s := range sentences {
		if s.page < pageStart {
			pageStart = s.page
		}
		if s.page > pageEnd {
			pageEnd = s.page
		}
		tokens += s.tokens
		if i > 0 {
			sb = append(sb, ' ')
		}
		sb = append(sb, s.text...)
	}

	return model.Chunk{
		ChunkID:    uuid.New().String(),
		DocID:      docID,
		Text:       string(sb),
		PageStart:  pageStart,
		PageEnd:    pageEnd,
		TokenCount: tokens,
	}
}
