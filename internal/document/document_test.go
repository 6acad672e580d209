package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docanchor/docanchor/internal/model"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextLoaderPages(t *testing.T) {
	path := writeTemp(t, "Page one text.\fPage two text.\fPage three.")

	doc, err := NewTextLoader().Load(path)
	require.NoError(t, err)

	require.Len(t, doc.Pages, 3)
	assert.Equal(t, 1, doc.Pages[0].PageNum)
	assert.Equal(t, "Page two text.", doc.Pages[1].Text)
	assert.Equal(t, 3, doc.Pages[2].PageNum)
}

func TestTextLoaderSinglePage(t *testing.T) {
	path := writeTemp(t, "Just   one\npage   here.")

	doc, err := NewTextLoader().Load(path)
	require.NoError(t, err)

	require.Len(t, doc.Pages, 1)
	assert.Equal(t, "Just one page here.", doc.Pages[0].Text)
}

func TestDocIDContentDerived(t *testing.T) {
	a := writeTemp(t, "identical content")
	b := writeTemp(t, "identical content")
	c := writeTemp(t, "different content")

	loader := NewTextLoader()
	docA, err := loader.Load(a)
	require.NoError(t, err)
	docB, err := loader.Load(b)
	require.NoError(t, err)
	docC, err := loader.Load(c)
	require.NoError(t, err)

	// Same bytes at different paths get the same identifier.
	assert.Equal(t, docA.DocID, docB.DocID)
	assert.NotEqual(t, docA.DocID, docC.DocID)
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewTextLoader().Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestCleanerStripsNoise(t *testing.T) {
	pages := []model.Page{{
		PageNum: 1,
		Text:    "Contact jane@example.com for data. The gain was 3.1x [1, 2] over baseline (Smith et al., 2019). arXiv:1234.5678v1",
	}}

	cleaned := NewCleaner().CleanPages(pages)

	require.Len(t, cleaned, 1)
	assert.Equal(t, 1, cleaned[0].PageNum)
	assert.NotContains(t, cleaned[0].Text, "jane@example.com")
	assert.NotContains(t, cleaned[0].Text, "[1, 2]")
	assert.NotContains(t, cleaned[0].Text, "Smith et al.")
	assert.NotContains(t, cleaned[0].Text, "arXiv")
	assert.Contains(t, cleaned[0].Text, "The gain was 3.1x")
}

func TestCleanerNormalizesPunctuation(t *testing.T) {
	pages := []model.Page{{PageNum: 2, Text: "Trailing dots.... and    spaced   text"}}
	cleaned := NewCleaner().CleanPages(pages)
	assert.Equal(t, "Trailing dots. and spaced text", cleaned[0].Text)
}
