package validation

import "strings"

// Canonicalize normalizes a node or edge endpoint name into its canonical
// form: lowercased, whitespace-folded, and trimmed. It is idempotent —
// Canonicalize(Canonicalize(x)) == Canonicalize(x) — and is the single
// definition of name identity used across node dedup, edge endpoint
// lookups, and cache-key construction.
func Canonicalize(name string) string {
	fields := strings.Fields(name)
	return strings.ToLower(strings.Join(fields, " "))
}
