// Package catalog answers chapter queries: which resources are about a
// chapter directly (primary) and which mention it in their secondary
// scripture (secondary), grouped by kind, filtered and sorted.
package catalog

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/core/resource"
	"github.com/FocuswithJustin/ReformedChapter/core/scripture"
)

// Source supplies the resources a catalog queries.
type Source interface {
	List(ctx context.Context) ([]resource.Resource, error)
}

// Query selects a chapter and how to present it.
type Query struct {
	Book    string
	Chapter int
	Filters Filters
	Sort    SortMode
}

// Groups holds resources split by kind, in display order.
type Groups struct {
	Sermons      []resource.Resource `json:"sermons"`
	Commentaries []resource.Resource `json:"commentaries"`
	Devotionals  []resource.Resource `json:"devotionals"`
	Books        []resource.Resource `json:"books"`
	Videos       []resource.Resource `json:"videos"`
}

// Of returns the group for k.
func (g *Groups) Of(k resource.Kind) []resource.Resource {
	if p := g.slot(k); p != nil {
		return *p
	}
	return nil
}

func (g *Groups) slot(k resource.Kind) *[]resource.Resource {
	switch k {
	case resource.KindSermon:
		return &g.Sermons
	case resource.KindCommentary:
		return &g.Commentaries
	case resource.KindDevotional:
		return &g.Devotionals
	case resource.KindBook:
		return &g.Books
	case resource.KindVideo:
		return &g.Videos
	}
	return nil
}

// Len returns the number of grouped resources.
func (g *Groups) Len() int {
	n := 0
	for _, k := range resource.Kinds {
		n += len(g.Of(k))
	}
	return n
}

// Group splits rs by kind, keeping order within each kind. Resources with
// an unknown kind are dropped.
func Group(rs []resource.Resource) Groups {
	g := Groups{
		Sermons:      []resource.Resource{},
		Commentaries: []resource.Resource{},
		Devotionals:  []resource.Resource{},
		Books:        []resource.Resource{},
		Videos:       []resource.Resource{},
	}
	for _, r := range rs {
		k, ok := r.Kind()
		if !ok {
			continue
		}
		p := g.slot(k)
		*p = append(*p, r)
	}
	return g
}

// ChapterView is the answer to a chapter query.
type ChapterView struct {
	Book      string `json:"book"`
	BookName  string `json:"book_name"`
	Chapter   int    `json:"chapter"`
	Chapters  int    `json:"chapters"`
	Prev      int    `json:"prev,omitempty"`
	Next      int    `json:"next,omitempty"`
	Primary   Groups `json:"primary"`
	Secondary Groups `json:"secondary"`
	// Authors lists every author in the catalog, for the author filter.
	Authors []string `json:"authors"`
	Total   int      `json:"total"`
}

// Catalog runs chapter queries over a Source.
type Catalog struct {
	source   Source
	resolver *scripture.Resolver
	workers  int
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithResolver sets the resolver used for book lookup and secondary
// matching.
func WithResolver(r *scripture.Resolver) Option {
	return func(c *Catalog) { c.resolver = r }
}

// WithWorkers bounds the goroutines used for secondary matching.
func WithWorkers(n int) Option {
	return func(c *Catalog) { c.workers = n }
}

// New creates a catalog over source.
func New(source Source, opts ...Option) *Catalog {
	c := &Catalog{source: source, resolver: scripture.DefaultResolver()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolver returns the resolver the catalog matches with.
func (c *Catalog) Resolver() *scripture.Resolver {
	return c.resolver
}

// Chapter loads the source and builds the view for q.
func (c *Catalog) Chapter(ctx context.Context, q Query) (*ChapterView, error) {
	book, err := c.lookup(q)
	if err != nil {
		return nil, err
	}
	rs, err := c.source.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load resources")
	}
	return c.build(book, rs, q), nil
}

// Build answers q over rs without touching the source.
func (c *Catalog) Build(rs []resource.Resource, q Query) (*ChapterView, error) {
	book, err := c.lookup(q)
	if err != nil {
		return nil, err
	}
	return c.build(book, rs, q), nil
}

// Authors returns the distinct authors across the source.
func (c *Catalog) Authors(ctx context.Context) ([]string, error) {
	rs, err := c.source.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load resources")
	}
	return Authors(rs), nil
}

func (c *Catalog) lookup(q Query) (scripture.Book, error) {
	book, ok := c.resolver.Canon().Lookup(q.Book)
	if !ok {
		return scripture.Book{}, errors.NewNotFound("book", q.Book)
	}
	if !book.HasChapter(q.Chapter) {
		return scripture.Book{}, errors.NewNotFound("chapter", book.Name+" "+strconv.Itoa(q.Chapter))
	}
	return book, nil
}

func (c *Catalog) build(book scripture.Book, rs []resource.Resource, q Query) *ChapterView {
	primary, secondary := c.Split(book, q.Chapter, rs)

	view := &ChapterView{
		Book:     book.Slug,
		BookName: book.Name,
		Chapter:  q.Chapter,
		Chapters: book.Chapters,
		Authors:  Authors(rs),
	}
	if q.Chapter > 1 {
		view.Prev = q.Chapter - 1
	}
	if q.Chapter < book.Chapters {
		view.Next = q.Chapter + 1
	}

	primary = applyFilters(primary, q.Filters)
	secondary = applyFilters(secondary, q.Filters)
	Sort(primary, q.Sort)
	Sort(secondary, q.Sort)

	view.Primary = Group(primary)
	view.Secondary = Group(secondary)
	view.Total = view.Primary.Len() + view.Secondary.Len()
	return view
}

// Split partitions rs into resources primarily about the chapter and those
// that only cite it in their secondary scripture. A primary resource is
// never repeated as secondary. Both results keep the order of rs.
func (c *Catalog) Split(book scripture.Book, chapter int, rs []resource.Resource) (primary, secondary []resource.Resource) {
	isPrimary := make([]bool, len(rs))
	var candidates []int
	for i := range rs {
		if c.IsPrimary(book, chapter, &rs[i]) {
			isPrimary[i] = true
			continue
		}
		if strings.TrimSpace(rs[i].SecondaryScripture) != "" {
			candidates = append(candidates, i)
		}
	}

	matched := parallelMap(c.workers, candidates, func(i int) bool {
		return c.resolver.Matches(rs[i].SecondaryScripture, book.Slug, chapter)
	})
	isSecondary := make([]bool, len(rs))
	for j, i := range candidates {
		isSecondary[i] = matched[j]
	}

	for i := range rs {
		switch {
		case isPrimary[i]:
			primary = append(primary, rs[i])
		case isSecondary[i]:
			secondary = append(secondary, rs[i])
		}
	}
	return primary, secondary
}

// IsPrimary reports whether r is filed under book and covers chapter. A
// resource without a chapter covers the whole book.
func (c *Catalog) IsPrimary(book scripture.Book, chapter int, r *resource.Resource) bool {
	b, ok := c.resolver.Canon().Lookup(r.Book)
	if !ok || b.Slug != book.Slug {
		return false
	}
	start, end, whole := r.ChapterRange()
	if whole {
		return true
	}
	return start <= chapter && chapter <= end
}

func applyFilters(rs []resource.Resource, f Filters) []resource.Resource {
	if f.Empty() {
		return rs
	}
	out := rs[:0:0]
	for i := range rs {
		if f.Allows(&rs[i]) {
			out = append(out, rs[i])
		}
	}
	return out
}

// Authors returns the sorted distinct non-empty author names in rs.
func Authors(rs []resource.Resource) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range rs {
		a := strings.TrimSpace(r.Author)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
