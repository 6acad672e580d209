// Package text holds the sentence-level primitives shared by the
// chunker, the answer verifier, and the citation extractor. All three
// must split text identically, or sentence-level verdicts and coverage
// stop lining up with chunk boundaries.
package text

import (
	"strings"
	"unicode"
)

// abbreviations that end with a period but do not terminate a
// sentence. Compared against the last lowercased token before the
// period, with surrounding punctuation stripped.
var abbreviations = map[string]struct{}{
	"al":   {}, // et al.
	"fig":  {},
	"figs": {},
	"eq":   {},
	"eqs":  {},
	"e.g":  {},
	"i.e":  {},
	"cf":   {},
	"vs":   {},
	"etc":  {},
	"ref":  {},
	"refs": {},
	"no":   {},
	"sec":  {},
	"dr":   {},
	"mr":   {},
	"ms":   {},
	"prof": {},
}

// SplitSentences splits text on sentence-terminating punctuation
// followed by whitespace, guarding against common abbreviation false
// positives ("et al.", "Fig.", "Eq.") and single-letter initials.
// Returned sentences are whitespace-trimmed and never empty.
func SplitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	runes := []rune(strings.TrimSpace(text))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		cur.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		atEnd := i+1 >= len(runes)
		if !atEnd && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && endsWithAbbreviation(cur.String()) {
			continue
		}

		if s := strings.TrimSpace(cur.String()); s != "" {
			sentences = append(sentences, s)
		}
		cur.Reset()
		for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			i++
		}
	}

	if s := strings.TrimSpace(cur.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func endsWithAbbreviation(s string) bool {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(fields[len(fields)-1])
	last = strings.TrimSuffix(last, ".")
	last = strings.TrimLeft(last, "([\"'")

	if _, ok := abbreviations[last]; ok {
		return true
	}
	// Single-letter initials: "J. Smith"
	if len(last) == 1 && unicode.IsLetter(rune(last[0])) {
		return true
	}
	return false
}

// EstimateTokens is a cheap, deterministic token approximation
// (whitespace-delimited words, minimum 1). The chunker and every
// downstream token-budget decision must use this same estimate.
func EstimateTokens(s string) int {
	n := len(strings.Fields(s))
	if n < 1 {
		return 1
	}
	return n
}
