package model

// Verdict is the pipeline's judgment of an answer's grounding.
type Verdict string

const (
	VerdictSupported          Verdict = "supported"
	VerdictPartiallySupported Verdict = "partially_supported"
	VerdictUnsupported        Verdict = "unsupported"
	VerdictRefused            Verdict = "refused"
)

// VerificationResult is the sentence-level grounding judgment for one
// generated answer.
type VerificationResult struct {
	Verdict              Verdict  `json:"verdict"`
	UnsupportedSentences []string `json:"unsupported_sentences"`
	Confidence           float64  `json:"confidence"`
	SupportRatio         float64  `json:"support_ratio"`
}

// Citation maps a canonical evidence identifier (E1, E2, ...) back to
// its source document and page span.
type Citation struct {
	EvidenceID  string `json:"evidence_id"`
	DocID       string `json:"doc_id"`
	PageStart   int    `json:"page_start"`
	PageEnd     int    `json:"page_end"`
	TextPreview string `json:"text_preview"`
}

// CitationResult is the outcome of extracting and validating inline
// citation markers from a generated answer.
type CitationResult struct {
	CitationMap      map[string]Citation `json:"citation_map"`
	InlineCitations  []Citation          `json:"inline_citations"`
	InvalidCitations []string            `json:"invalid_citations"`
	UncitedSentences []string            `json:"uncited_sentences"`
	CitationCoverage float64             `json:"citation_coverage"`
}
