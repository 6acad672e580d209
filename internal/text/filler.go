package text

import (
	"regexp"
	"strings"
)

// CitationMarker matches canonical inline evidence citations: [E1],
// [E2], ... The capture group is the 1-indexed evidence number.
var CitationMarker = regexp.MustCompile(`\[E(\d+)\]`)

// fillerRule is one entry in the ordered filler-classification table.
// Rules are data, not branches, so the set can be extended and tested
// independently.
type fillerRule struct {
	name    string
	pattern *regexp.Regexp
}

var fillerRules = []fillerRule{
	{"discourse_marker", regexp.MustCompile(`^(yes|no|however|therefore|thus|in summary)[,.]?$`)},
	{"pronoun_reference", regexp.MustCompile(`^(this|that|it) (is|was|means)`)},
	{"evidence_preamble", regexp.MustCompile(`^(based on|according to)`)},
}

// Classifier decides whether an answer sentence is substantive (and
// therefore subject to grounding and citation checks) or filler.
type Classifier struct {
	// MinSentenceLength is the character length below which a
	// sentence counts as filler, measured after citation markers are
	// stripped.
	MinSentenceLength int
}

// IsSubstantive reports whether the sentence carries checkable
// content. Filler sentences are exempt from grounding and citation
// coverage.
func (c Classifier) IsSubstantive(sentence string) bool {
	stripped := strings.TrimSpace(CitationMarker.ReplaceAllString(sentence, ""))
	if len(stripped) < c.MinSentenceLength {
		return false
	}
	lower := strings.ToLower(stripped)
	for _, rule := range fillerRules {
		if rule.pattern.MatchString(lower) {
			return false
		}
	}
	return true
}
