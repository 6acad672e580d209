// Package document loads raw files into page-wise text and cleans it
// before chunking. Extraction of binary formats (PDF) is an external
// collaborator behind the Loader interface; this package ships a
// plain-text loader and the cleaning rules.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/docanchor/docanchor/internal/model"
)

// Loader extracts page-wise text from a file. DocID must be derived
// from file content, not path, so identical uploads receive identical
// identifiers.
type Loader interface {
	Load(path string) (*model.Document, error)
}

// TextLoader reads plain text and markdown files. Form feeds (\f)
// mark page breaks; a file without them is a single page.
type TextLoader struct{}

func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

func (l *TextLoader) Load(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %q: %w", path, err)
	}

	doc := &model.Document{
		DocID:      DocID(data),
		SourcePath: path,
	}

	for i, pageText := range strings.Split(string(data), "\f") {
		doc.Pages = append(doc.Pages, model.Page{
			PageNum: i + 1,
			Text:    normalize(pageText),
		})
	}
	return doc, nil
}

// DocID derives a stable document identifier from file content.
func DocID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:16])
}

// normalize applies light, lossless normalization only; heavy
// cleaning belongs to the Cleaner.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\u00ad", "") // soft hyphen
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}
