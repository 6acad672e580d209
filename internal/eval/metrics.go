// Package eval computes faithfulness-oriented aggregate metrics from
// verifier outputs. It assumes verification has already run and
// operates purely on its results.
package eval

import (
	"math"
	"sync"

	"github.com/docanchor/docanchor/internal/model"
)

// FaithfulnessMetrics accumulates verdict counters across queries.
// Safe for concurrent use.
type FaithfulnessMetrics struct {
	mu                   sync.Mutex
	totalQuestions       int
	refusedQuestions     int
	totalSentences       int
	unsupportedSentences int
}

func NewFaithfulnessMetrics() *FaithfulnessMetrics {
	return &FaithfulnessMetrics{}
}

// Update records one verifier result.
func (m *FaithfulnessMetrics) Update(result model.VerificationResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQuestions++
	if result.Verdict == model.VerdictUnsupported {
		m.refusedQuestions++
		m.unsupportedSentences += len(result.UnsupportedSentences)
	}
	n := len(result.UnsupportedSentences)
	if n < 1 {
		n = 1
	}
	m.totalSentences += n
}

// Summary is the aggregate metric snapshot.
type Summary struct {
	SentenceSupportRate  float64 `json:"sentence_support_rate"`
	RefusalRate          float64 `json:"refusal_rate"`
	UnsupportedClaimRate float64 `json:"unsupported_claim_rate"`
}

// Compute returns the current aggregates; zero Summary before any
// update.
func (m *FaithfulnessMetrics) Compute() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.totalQuestions == 0 {
		return Summary{}
	}

	sentences := m.totalSentences
	if sentences < 1 {
		sentences = 1
	}
	unsupportedRate := float64(m.unsupportedSentences) / float64(sentences)

	return Summary{
		SentenceSupportRate:  round4(1 - unsupportedRate),
		RefusalRate:          round4(float64(m.refusedQuestions) / float64(m.totalQuestions)),
		UnsupportedClaimRate: round4(unsupportedRate),
	}
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
