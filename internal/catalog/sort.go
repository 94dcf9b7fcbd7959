package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/core/resource"
)

// SortMode orders resources within each group.
type SortMode string

const (
	// SortDefault keeps store order.
	SortDefault SortMode = ""
	// SortScripture orders by chapter then verse; whole-book resources first.
	SortScripture SortMode = "scripture"
	// SortAlphabetical orders by title, ignoring case.
	SortAlphabetical SortMode = "alphabetical"
	// SortNewest orders by published year, newest first; undated last.
	SortNewest SortMode = "newest"
)

// ParseSortMode accepts the sort names used in query strings. "date" is an
// alias for newest.
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return SortDefault, nil
	case "scripture", "verse":
		return SortScripture, nil
	case "alphabetical", "title", "az":
		return SortAlphabetical, nil
	case "newest", "date":
		return SortNewest, nil
	}
	return "", &errors.ValidationError{Field: "sort", Value: s, Message: "must be scripture, alphabetical or newest"}
}

// Sort orders rs in place. The sort is stable so ties keep store order.
func Sort(rs []resource.Resource, mode SortMode) {
	switch mode {
	case SortScripture:
		slices.SortStableFunc(rs, compareScripture)
	case SortAlphabetical:
		slices.SortStableFunc(rs, func(a, b resource.Resource) int {
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		})
	case SortNewest:
		slices.SortStableFunc(rs, compareNewest)
	}
}

func optional(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func compareScripture(a, b resource.Resource) int {
	if c := cmp.Compare(optional(a.Chapter), optional(b.Chapter)); c != 0 {
		return c
	}
	if c := cmp.Compare(optional(a.VerseStart), optional(b.VerseStart)); c != 0 {
		return c
	}
	return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
}

func compareNewest(a, b resource.Resource) int {
	switch {
	case a.PublishedYear == nil && b.PublishedYear == nil:
		return 0
	case a.PublishedYear == nil:
		return 1
	case b.PublishedYear == nil:
		return -1
	}
	return cmp.Compare(*b.PublishedYear, *a.PublishedYear)
}
