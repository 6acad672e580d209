package pipeline

import "github.com/docanchor/docanchor/internal/model"

// User-facing refusal messages. Refusals never expose internal error
// detail; diagnostics travel in the Reason and UnsupportedSentences
// fields instead.
const (
	refusalNoDocuments    = "No documents have been uploaded yet."
	refusalCannotAnswer   = "I cannot answer based on the provided documents."
	refusalLLMUnavailable = "The language model is temporarily unavailable."

	// partialCaveat is appended to partially supported answers.
	partialCaveat = "\n\nNote: some statements in this answer could not be fully verified against the source documents."
)

// Refusal reasons, for observability.
const (
	ReasonNoDocuments           = "no_documents"
	ReasonRetrievalEmpty        = "retrieval_empty"
	ReasonRerankEmpty           = "rerank_empty"
	ReasonGenerationUnavailable = "generation_unavailable"
	ReasonVerificationRejected  = "verification_rejected"
)

// QueryResult is the pipeline's final, fail-closed response. The
// populated fields vary by verdict: refusals carry a reason and (for
// verification rejections) the unsupported sentences; supported and
// partially supported answers carry citations and scores.
type QueryResult struct {
	Answer               string           `json:"answer"`
	Verdict              model.Verdict    `json:"verdict"`
	Citations            []model.Citation `json:"citations"`
	Confidence           float64          `json:"confidence"`
	SupportRatio         float64          `json:"support_ratio"`
	CitationCoverage     float64          `json:"citation_coverage"`
	UncitedSentences     []string         `json:"uncited_sentences,omitempty"`
	UnsupportedSentences []string         `json:"unsupported_sentences,omitempty"`
	Reason               string           `json:"reason,omitempty"`
}

func refuse(answer, reason string) *QueryResult {
	return &QueryResult{
		Answer:    answer,
		Verdict:   model.VerdictRefused,
		Citations: []model.Citation{},
		Reason:    reason,
	}
}

// IngestReport summarizes a successful document ingestion.
type IngestReport struct {
	DocID         string `json:"doc_id"`
	ChunksAdded   int    `json:"chunks_added"`
	ChunkCount    int    `json:"chunk_count"`
	DocumentCount int    `json:"document_count"`
}

// IndexStatus is the read-only index view for the status surface.
type IndexStatus struct {
	ChunkCount    int      `json:"chunk_count"`
	DocumentCount int      `json:"document_count"`
	DocIDs        []string `json:"doc_ids"`
}
