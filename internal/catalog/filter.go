package catalog

import (
	"strings"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/core/resource"
)

// Filters narrows a chapter listing. An empty set means no restriction on
// that dimension.
type Filters struct {
	Types   map[resource.Kind]bool
	Authors map[string]bool
	Prices  map[resource.PriceClass]bool
}

// ParseFilters builds Filters from comma separated lists, as sent in query
// strings. Unknown types or price classes are rejected.
func ParseFilters(types, authors, prices string) (Filters, error) {
	var f Filters
	for _, t := range splitList(types) {
		k, ok := resource.ParseKind(t)
		if !ok {
			return Filters{}, &errors.ValidationError{Field: "types", Value: t, Message: "unknown resource type"}
		}
		f.WithType(k)
	}
	for _, a := range splitList(authors) {
		f.WithAuthor(a)
	}
	for _, p := range splitList(prices) {
		pc, ok := resource.ParsePriceClass(p)
		if !ok {
			return Filters{}, &errors.ValidationError{Field: "price", Value: p, Message: "must be free or paid"}
		}
		f.WithPrice(pc)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// WithType adds k to the type filter.
func (f *Filters) WithType(k resource.Kind) *Filters {
	if f.Types == nil {
		f.Types = make(map[resource.Kind]bool)
	}
	f.Types[k] = true
	return f
}

// WithAuthor adds an exact (trimmed) author name to the author filter.
func (f *Filters) WithAuthor(name string) *Filters {
	if f.Authors == nil {
		f.Authors = make(map[string]bool)
	}
	f.Authors[strings.TrimSpace(name)] = true
	return f
}

// WithPrice adds p to the price filter.
func (f *Filters) WithPrice(p resource.PriceClass) *Filters {
	if f.Prices == nil {
		f.Prices = make(map[resource.PriceClass]bool)
	}
	f.Prices[p] = true
	return f
}

// Empty reports whether the filters restrict nothing.
func (f Filters) Empty() bool {
	return len(f.Types) == 0 && len(f.Authors) == 0 && len(f.Prices) == 0
}

// Allows reports whether r passes every active filter.
func (f Filters) Allows(r *resource.Resource) bool {
	if len(f.Types) > 0 {
		k, ok := r.Kind()
		if !ok || !f.Types[k] {
			return false
		}
	}
	if len(f.Authors) > 0 && !f.Authors[strings.TrimSpace(r.Author)] {
		return false
	}
	if len(f.Prices) > 0 && !f.Prices[r.PriceClass()] {
		return false
	}
	return true
}
