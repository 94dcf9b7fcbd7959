package scripture

import (
	"strings"
)

// NormalizeName folds a book name into its lookup key: lower-cased, trimmed,
// with hyphens, underscores and periods treated as spaces and runs of
// whitespace collapsed. "1-Corinthians", " 1  corinthians " and
// "1 Corinthians" all normalize to "1 corinthians".
func NormalizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '.', '–', '—':
			return ' '
		}
		return r
	}, strings.ToLower(name))
	return strings.Join(strings.Fields(name), " ")
}

// splitSegments splits a citation string on commas and semicolons,
// dropping blank pieces.
func splitSegments(citation string) []string {
	parts := strings.FieldsFunc(citation, func(r rune) bool {
		return r == ',' || r == ';'
	})

	segments := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
