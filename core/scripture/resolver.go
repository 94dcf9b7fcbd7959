package scripture

import (
	"strings"
)

// Resolver matches free-text citations against a canon. It holds no mutable
// state: every method is a pure function of its arguments and is safe for
// concurrent use.
type Resolver struct {
	canon *Canon
}

// NewResolver creates a resolver over canon. A nil canon selects the
// default 66-book canon.
func NewResolver(canon *Canon) *Resolver {
	if canon == nil {
		canon = defaultCanon
	}
	return &Resolver{canon: canon}
}

// Canon returns the canon the resolver resolves book names against.
func (r *Resolver) Canon() *Canon {
	return r.canon
}

// ParseSegment parses a single citation segment such as "Luke 6:20-26".
// Text after the locator is ignored. It reports false when the segment does
// not parse, names an unknown book, or names a chapter the book does not
// have.
func (r *Resolver) ParseSegment(segment string) (Citation, bool) {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return Citation{}, false
	}

	parsed, ok := parseSegment(segment)
	if !ok {
		return Citation{}, false
	}

	book, ok := r.canon.Lookup(parsed.bookName())
	if !ok {
		return Citation{}, false
	}

	return parsed.toCitation(book)
}

// Parse splits citation on commas and semicolons and returns the segments
// that parse, in the order written. Unparseable segments are skipped.
func (r *Resolver) Parse(citation string) []Citation {
	var out []Citation
	for _, seg := range splitSegments(citation) {
		if c, ok := r.ParseSegment(seg); ok {
			out = append(out, c)
		}
	}
	return out
}

// Matches reports whether citation references chapter targetChapter of
// targetBook. targetBook may be in any spelling the canon accepts
// ("1-corinthians", "1 Corinthians", "1 Cor"). Segments are evaluated left to
// right and the first match wins; a bare book name covers every chapter.
// Empty citations, unknown target books and non-positive chapters never match.
func (r *Resolver) Matches(citation, targetBook string, targetChapter int) bool {
	if targetChapter <= 0 || strings.TrimSpace(citation) == "" {
		return false
	}

	target, ok := r.canon.Lookup(targetBook)
	if !ok {
		return false
	}

	for _, seg := range splitSegments(citation) {
		c, ok := r.ParseSegment(seg)
		if !ok {
			continue
		}
		if c.Book == target.Slug && c.Covers(targetChapter) {
			return true
		}
	}

	return false
}

var defaultResolver = NewResolver(nil)

// DefaultResolver returns the resolver over the default canon.
func DefaultResolver() *Resolver {
	return defaultResolver
}

// ParseCitation parses citation against the default canon.
func ParseCitation(citation string) []Citation {
	return defaultResolver.Parse(citation)
}

// Matches reports whether citation references targetBook chapter
// targetChapter, using the default canon.
func Matches(citation, targetBook string, targetChapter int) bool {
	return defaultResolver.Matches(citation, targetBook, targetChapter)
}
