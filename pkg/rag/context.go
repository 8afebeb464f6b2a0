package rag

import "strings"

// ContextSeparator divides chunks in a formatted context block.
const ContextSeparator = "\n\n---\n\n"

// FormatContext renders each result's text followed by its citation marker
// on the next line, joined by ContextSeparator. No results give an empty
// string.
func FormatContext(results []SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Text+"\n"+r.Citation())
	}
	return strings.Join(parts, ContextSeparator)
}
