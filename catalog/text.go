package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FoldText lowercases s, collapses runs of whitespace to one space and composes
// accents (NFC). Stored match text and query patterns both go through it.
func FoldText(s string) string {
	return norm.NFC.String(strings.ToLower(strings.Join(strings.Fields(s), " ")))
}

// matchSeparator joins folded columns. FoldText never emits it, so a pattern
// cannot match across two columns.
const matchSeparator = "\n"

// MatchText builds the match_text value for a row from its searchable fields.
func MatchText(fields ...string) string {
	folded := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = FoldText(f); f != "" {
			folded = append(folded, f)
		}
	}
	return strings.Join(folded, matchSeparator)
}
