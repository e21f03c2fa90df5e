package app

import (
	"strings"
	"unicode"
)

const maxTracedQueryLength = 512

// formatDBQueryForTrace collapses whitespace so statements read on one line in span attributes.
func formatDBQueryForTrace(query string) string {
	normalized := strings.TrimSuffix(strings.Join(strings.FieldsFunc(query, unicode.IsSpace), " "), ";")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}
	return normalized[:maxTracedQueryLength] + "..."
}
