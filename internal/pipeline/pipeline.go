// Package pipeline sequences ingestion (load → clean → chunk → embed
// → index) and querying (retrieve → rerank → generate → verify +
// cite) with hard guards at every stage. Query-path failures are
// always converted to a safe refusal (fail-closed); ingestion-path
// failures surface as explicit errors, since silent partial ingestion
// would corrupt the index alignment invariant.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docanchor/docanchor/internal/chunker"
	"github.com/docanchor/docanchor/internal/cite"
	"github.com/docanchor/docanchor/internal/document"
	"github.com/docanchor/docanchor/internal/index"
	"github.com/docanchor/docanchor/internal/llm"
	"github.com/docanchor/docanchor/internal/model"
	"github.com/docanchor/docanchor/internal/rerank"
	"github.com/docanchor/docanchor/internal/verify"
)

// Deps are the collaborators one pipeline invocation needs. Built
// once at startup and passed down explicitly; no globals.
type Deps struct {
	Embedder  llm.Embedder
	Generator llm.Generator
	Index     *index.Guarded
	Chunker   *chunker.Chunker
	Reranker  *rerank.Reranker
	Verifier  *verify.Verifier
	Extractor *cite.Extractor
	Prompts   *PromptBuilder
	Loader    document.Loader
	Cleaner   *document.Cleaner
}

// Options tune retrieval breadth and external-call patience.
type Options struct {
	// TopK is the retrieval candidate count handed to the reranker.
	TopK int
	// ExternalTimeout bounds each external call (embedding,
	// cross-scoring, generation). On timeout the query is refused,
	// identical to any other external failure.
	ExternalTimeout time.Duration
}

type Pipeline struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 20
	}
	return &Pipeline{deps: deps, opts: opts}
}

func (p *Pipeline) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.ExternalTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.opts.ExternalTimeout)
}

// Query answers a question against the indexed documents. It never
// returns an error: every failure mode collapses to a refusal.
func (p *Pipeline) Query(ctx context.Context, question string) *QueryResult {
	// Guard 1: nothing indexed.
	empty := true
	_ = p.deps.Index.WithReadLock(func(s *index.Store) error {
		empty = s.ChunkCount() == 0
		return nil
	})
	if empty {
		return refuse(refusalNoDocuments, ReasonNoDocuments)
	}

	// Guard 2: retrieval.
	callCtx, cancel := p.callCtx(ctx)
	queryVec, err := p.deps.Embedder.EmbedQuery(callCtx, question)
	cancel()
	if err != nil {
		slog.Error("query embedding failed", "error", err)
		return refuse(refusalLLMUnavailable, ReasonGenerationUnavailable)
	}

	var candidates []model.Evidence
	err = p.deps.Index.WithReadLock(func(s *index.Store) error {
		candidates, err = s.Search(queryVec, p.opts.TopK)
		return err
	})
	if err != nil {
		slog.Error("index search failed", "error", err)
		return refuse(refusalCannotAnswer, ReasonRetrievalEmpty)
	}
	if len(candidates) == 0 {
		return refuse(refusalCannotAnswer, ReasonRetrievalEmpty)
	}

	// Guard 3: rerank.
	callCtx, cancel = p.callCtx(ctx)
	evidence, err := p.deps.Reranker.Rerank(callCtx, question, candidates)
	cancel()
	if err != nil {
		slog.Error("rerank failed", "error", err)
		return refuse(refusalLLMUnavailable, ReasonGenerationUnavailable)
	}
	if len(evidence) == 0 {
		return refuse(refusalCannotAnswer, ReasonRerankEmpty)
	}

	// Guard 4: generation. The underlying error never propagates.
	prompt := p.deps.Prompts.Build(question, evidence)
	callCtx, cancel = p.callCtx(ctx)
	answer, err := p.deps.Generator.Generate(callCtx, prompt)
	cancel()
	if err != nil {
		slog.Error("generation failed", "error", err)
		return refuse(refusalLLMUnavailable, ReasonGenerationUnavailable)
	}

	// Citation extraction and verification both run on the raw
	// answer; neither depends on the other.
	citations := p.deps.Extractor.ExtractAndMap(answer, evidence)

	callCtx, cancel = p.callCtx(ctx)
	verification, err := p.deps.Verifier.Verify(callCtx, answer, evidence)
	cancel()
	if err != nil {
		slog.Error("verification failed", "error", err)
		return refuse(refusalLLMUnavailable, ReasonGenerationUnavailable)
	}

	return p.dispatch(answer, verification, citations)
}

// dispatch maps the verdict to the final response shape.
func (p *Pipeline) dispatch(answer string, v model.VerificationResult, c model.CitationResult) *QueryResult {
	switch v.Verdict {
	case model.VerdictUnsupported:
		slog.Info("answer rejected by verifier",
			"unsupported_sentences", len(v.UnsupportedSentences),
			"confidence", v.Confidence)
		r := refuse(refusalCannotAnswer, ReasonVerificationRejected)
		r.UnsupportedSentences = v.UnsupportedSentences
		return r

	case model.VerdictPartiallySupported:
		return &QueryResult{
			Answer:               answer + partialCaveat,
			Verdict:              model.VerdictPartiallySupported,
			Citations:            c.InlineCitations,
			Confidence:           v.Confidence,
			SupportRatio:         v.SupportRatio,
			CitationCoverage:     c.CitationCoverage,
			UncitedSentences:     c.UncitedSentences,
			UnsupportedSentences: v.UnsupportedSentences,
		}

	default:
		return &QueryResult{
			Answer:           answer,
			Verdict:          model.VerdictSupported,
			Citations:        c.InlineCitations,
			Confidence:       v.Confidence,
			SupportRatio:     v.SupportRatio,
			CitationCoverage: c.CitationCoverage,
		}
	}
}

// Ingest loads, cleans, chunks, embeds, and indexes one document.
// The write lock is held across clear+add+save so no concurrent
// query observes a transiently empty or half-populated index.
func (p *Pipeline) Ingest(ctx context.Context, path string, clearFirst bool) (*IngestReport, error) {
	doc, err := p.deps.Loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}

	pages := p.deps.Cleaner.CleanPages(doc.Pages)

	chunks, err := p.deps.Chunker.Chunk(ctx, pages, doc.DocID)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		callCtx, cancel := p.callCtx(ctx)
		embeddings, err := p.deps.Embedder.EmbedBatch(callCtx, texts)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("ingestion: failed to embed chunks: %w", err)
		}
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
		}
	}

	report := &IngestReport{DocID: doc.DocID, ChunksAdded: len(chunks)}
	err = p.deps.Index.WithWriteLock(func(s *index.Store) error {
		if clearFirst {
			if err := s.Clear(); err != nil {
				return err
			}
		}
		if err := s.Add(chunks); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		report.ChunkCount = s.ChunkCount()
		report.DocumentCount = s.DocumentCount()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}

	slog.Info("document ingested",
		"doc_id", report.DocID,
		"chunks_added", report.ChunksAdded,
		"chunk_count", report.ChunkCount)
	return report, nil
}

// Status reports the read-only index view.
func (p *Pipeline) Status() IndexStatus {
	var st IndexStatus
	_ = p.deps.Index.WithReadLock(func(s *index.Store) error {
		st = IndexStatus{
			ChunkCount:    s.ChunkCount(),
			DocumentCount: s.DocumentCount(),
			DocIDs:        s.DocIDs(),
		}
		return nil
	})
	if st.DocIDs == nil {
		st.DocIDs = []string{}
	}
	return st
}

// ClearIndex removes all indexed documents and persisted artifacts.
func (p *Pipeline) ClearIndex() error {
	return p.deps.Index.WithWriteLock(func(s *index.Store) error {
		return s.Clear()
	})
}
