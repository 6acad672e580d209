// Package cite parses canonical inline citation markers ([E1], [E2],
// ...) from generated answers, validates them against the evidence
// set, and computes sentence-level citation coverage.
package cite

import (
	"fmt"
	"log/slog"

	"github.com/docanchor/docanchor/internal/model"
	"github.com/docanchor/docanchor/internal/text"
)

const previewLen = 150

// Extractor validates answer citations against evidence.
type Extractor struct {
	classifier text.Classifier
}

// NewExtractor builds an extractor using the same filler-exemption
// rule as the verifier: minSentenceLength characters after citation
// markers are stripped.
func NewExtractor(minSentenceLength int) *Extractor {
	if minSentenceLength <= 0 {
		minSentenceLength = 20
	}
	return &Extractor{classifier: text.Classifier{MinSentenceLength: minSentenceLength}}
}

// ExtractAndMap finds all citation markers in the answer, partitions
// them into valid and dangling references, and computes substantive
// sentence coverage.
//
// The evidence map is 1-indexed in evidence order — the exact
// indexing the prompt builder used when formatting the evidence
// block. If the two ever diverge, citations silently mis-map, so both
// sides share this convention by construction.
func (e *Extractor) ExtractAndMap(answer string, evidence []model.Evidence) model.CitationResult {
	evidenceMap := make(map[string]model.Citation, len(evidence))
	for i, ev := range evidence {
		id := fmt.Sprintf("E%d", i+1)
		preview := ev.Text
		if len(preview) > previewLen {
			preview = preview[:previewLen] + "..."
		}
		evidenceMap[id] = model.Citation{
			EvidenceID:  id,
			DocID:       ev.DocID,
			PageStart:   ev.PageStart,
			PageEnd:     ev.PageEnd,
			TextPreview: preview,
		}
	}

	citationMap := make(map[string]model.Citation)
	invalid := []string{}
	inline := []model.Citation{}
	seen := make(map[string]struct{})

	for _, m := range text.CitationMarker.FindAllStringSubmatch(answer, -1) {
		id := "E" + m[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if c, ok := evidenceMap[id]; ok {
			citationMap[id] = c
			inline = append(inline, c)
		} else {
			// Dangling reference: logged for observability, not fatal.
			slog.Warn("answer cites unknown evidence", "evidence_id", id)
			invalid = append(invalid, id)
		}
	}

	cited, uncited := e.coverage(answer)
	total := cited + len(uncited)
	coverage := 1.0
	if total > 0 {
		coverage = float64(cited) / float64(total)
	}

	return model.CitationResult{
		CitationMap:      citationMap,
		InlineCitations:  inline,
		InvalidCitations: invalid,
		UncitedSentences: uncited,
		CitationCoverage: coverage,
	}
}

// coverage counts substantive sentences carrying at least one
// citation marker. Filler sentences are exempt, same rule as the
// verifier.
func (e *Extractor) coverage(answer string) (cited int, uncited []string) {
	uncited = []string{}
	for _, s := range text.SplitSentences(answer) {
		if !e.classifier.IsSubstantive(s) {
			continue
		}
		if text.CitationMarker.MatchString(s) {
			cited++
		} else {
			uncited = append(uncited, s)
		}
	}
	return cited, uncited
}
