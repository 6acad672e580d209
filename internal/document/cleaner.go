package document

import (
	"regexp"
	"strings"

	"github.com/docanchor/docanchor/internal/model"
)

// Cleaner strips metadata and boilerplate noise from academic page
// text while preserving claims and numbers. Deterministic and
// section-agnostic; rules are applied in order.
type Cleaner struct {
	email           *regexp.Regexp
	inlineCitations []*regexp.Regexp
	footers         []*regexp.Regexp
	repeatedDots    *regexp.Regexp
	multispace      *regexp.Regexp
}

func NewCleaner() *Cleaner {
	return &Cleaner{
		email: regexp.MustCompile(`\b[\w.-]+@[\w.-]+\.\w+\b`),
		inlineCitations: []*regexp.Regexp{
			regexp.MustCompile(`\[\d+(?:,\s*\d+)*\]`),              // [1], [1, 2]
			regexp.MustCompile(`\([A-Z][a-z]+ et al\.,?\s*\d{4}\)`), // (Smith et al., 2019)
			regexp.MustCompile(`\(\d{4}\)`),                        // (2017)
		},
		footers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Proceedings of .*`),
			regexp.MustCompile(`(?i)arXiv:\d+\.\d+v\d+`),
			regexp.MustCompile(`(?i)\bNeurIPS\b|\bNIPS\b|\bICML\b|\bICLR\b`),
		},
		repeatedDots: regexp.MustCompile(`\.{2,}`),
		multispace:   regexp.MustCompile(`\s+`),
	}
}

// CleanPages cleans page text while preserving page provenance.
func (c *Cleaner) CleanPages(pages []model.Page) []model.Page {
	out := make([]model.Page, len(pages))
	for i, p := range pages {
		out[i] = model.Page{PageNum: p.PageNum, Text: c.cleanText(p.Text)}
	}
	return out
}

func (c *Cleaner) cleanText(text string) string {
	text = c.email.ReplaceAllString(text, "")
	for _, re := range c.inlineCitations {
		text = re.ReplaceAllString(text, "")
	}
	for _, re := range c.footers {
		text = re.ReplaceAllString(text, "")
	}
	text = c.repeatedDots.ReplaceAllString(text, ".")
	text = c.multispace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
