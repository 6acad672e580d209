// Package verify scores each sentence of a generated answer against
// the evidence set and produces the pipeline's grounding verdict.
// This is the core hallucination-control mechanism: a tri-state
// verdict with a tolerance band, not a binary pass/fail, so a bounded
// fraction of weakly-grounded connective material is tolerated while
// mostly-ungrounded answers are rejected outright.
package verify

import (
	"context"
	"fmt"

	"github.com/docanchor/docanchor/internal/llm"
	"github.com/docanchor/docanchor/internal/model"
	"github.com/docanchor/docanchor/internal/text"
	"github.com/docanchor/docanchor/internal/vec"
)

// Options tune the verdict policy.
type Options struct {
	// SimilarityThreshold is the minimum max-cosine a substantive
	// sentence must reach against any evidence chunk.
	SimilarityThreshold float64
	// MinUnsupportedRatio is the tolerance band: an answer whose
	// unsupported ratio exceeds it is rejected whole.
	MinUnsupportedRatio float64
	// MinSentenceLength classifies shorter sentences (citation
	// markers stripped) as filler, exempt from grounding checks.
	MinSentenceLength int
}

func (o *Options) applyDefaults() {
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = 0.35
	}
	if o.MinUnsupportedRatio <= 0 {
		o.MinUnsupportedRatio = 0.6
	}
	if o.MinSentenceLength <= 0 {
		o.MinSentenceLength = 20
	}
}

// Verifier checks sentence-level grounding of answers.
type Verifier struct {
	embedder   llm.Embedder
	classifier text.Classifier
	opts       Options
}

func New(embedder llm.Embedder, opts Options) *Verifier {
	opts.applyDefaults()
	return &Verifier{
		embedder:   embedder,
		classifier: text.Classifier{MinSentenceLength: opts.MinSentenceLength},
		opts:       opts,
	}
}

// Verify splits the answer into sentences with the same conservative
// splitter used at chunking, exempts filler, and marks each remaining
// sentence unsupported when its best cosine similarity against the
// evidence falls below the threshold.
//
// Verdict policy: unsupported_ratio above MinUnsupportedRatio rejects
// the whole answer; any unsupported sentence below that band yields
// partially_supported; otherwise supported.
func (v *Verifier) Verify(ctx context.Context, answer string, evidence []model.Evidence) (model.VerificationResult, error) {
	var substantive []string
	for _, s := range text.SplitSentences(answer) {
		if v.classifier.IsSubstantive(s) {
			substantive = append(substantive, s)
		}
	}

	// Nothing substantive means nothing to hallucinate.
	if len(substantive) == 0 {
		return model.VerificationResult{
			Verdict:              model.VerdictSupported,
			UnsupportedSentences: []string{},
			Confidence:           1.0,
			SupportRatio:         1.0,
		}, nil
	}

	if len(evidence) == 0 {
		return model.VerificationResult{
			Verdict:              model.VerdictUnsupported,
			UnsupportedSentences: substantive,
			Confidence:           0,
			SupportRatio:         0,
		}, nil
	}

	sentenceVecs, err := v.embedder.EmbedBatch(ctx, substantive)
	if err != nil {
		return model.VerificationResult{}, fmt.Errorf("failed to embed answer sentences: %w", err)
	}

	evidenceTexts := make([]string, len(evidence))
	for i, e := range evidence {
		evidenceTexts[i] = e.Text
	}
	evidenceVecs, err := v.embedder.EmbedBatch(ctx, evidenceTexts)
	if err != nil {
		return model.VerificationResult{}, fmt.Errorf("failed to embed evidence: %w", err)
	}

	unsupported := []string{}
	var similaritySum float64
	for i, sv := range sentenceVecs {
		best := -1.0
		for _, ev := range evidenceVecs {
			if sim := vec.Cosine(sv, ev); sim > best {
				best = sim
			}
		}
		similaritySum += best
		if best < v.opts.SimilarityThreshold {
			unsupported = append(unsupported, substantive[i])
		}
	}

	unsupportedRatio := float64(len(unsupported)) / float64(len(substantive))
	result := model.VerificationResult{
		UnsupportedSentences: unsupported,
		Confidence:           similaritySum / float64(len(substantive)),
		SupportRatio:         1 - unsupportedRatio,
	}

	switch {
	case unsupportedRatio > v.opts.MinUnsupportedRatio:
		result.Verdict = model.VerdictUnsupported
	case len(unsupported) > 0:
		result.Verdict = model.VerdictPartiallySupported
	default:
		result.Verdict = model.VerdictSupported
	}
	return result, nil
}
