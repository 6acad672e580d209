package cite

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docanchor/docanchor/internal/model"
	"github.com/docanchor/docanchor/internal/text"
)

// FormatFootnotes renders a citation map as a markdown reference
// list, ordered by evidence number.
func FormatFootnotes(citationMap map[string]model.Citation) string {
	if len(citationMap) == 0 {
		return ""
	}

	ids := make([]string, 0, len(citationMap))
	for id := range citationMap {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(strings.TrimPrefix(ids[i], "E"))
		b, _ := strconv.Atoi(strings.TrimPrefix(ids[j], "E"))
		return a < b
	})

	var sb strings.Builder
	sb.WriteString("\n---\n**References:**\n")
	for _, id := range ids {
		c := citationMap[id]
		fmt.Fprintf(&sb, "\n- **[%s]** Document `%s`, Pages %d-%d", id, c.DocID, c.PageStart, c.PageEnd)
	}
	return sb.String()
}

// HighlightCitations bolds [En] markers for display layers.
func HighlightCitations(answer string) string {
	return text.CitationMarker.ReplaceAllString(answer, "**$0**")
}
