package search

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/safetyrag/core"
)

const DefaultSnippetLength = 200

// snippet returns the display text of a document, cut to at most limit runes
// with "..." appended when cut. Incidents show their description.
func snippet(doc *core.Document, limit int) string {
	text := doc.Body
	if doc.Kind == core.KindIncident {
		if desc := doc.Meta(core.MetaDescription); desc != "" {
			text = desc
		}
	}
	if strings.TrimSpace(text) == "" {
		text = doc.Title
	}

	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
