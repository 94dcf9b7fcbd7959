// Package resource defines the Bible-study resource record shared by the
// store, the importer and the chapter query.
package resource

import (
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/core/scripture"
)

// Kind is the normalized resource type.
type Kind string

// Known resource kinds, in display order.
const (
	KindSermon     Kind = "sermon"
	KindCommentary Kind = "commentary"
	KindDevotional Kind = "devotional"
	KindBook       Kind = "book"
	KindVideo      Kind = "video"
)

// Kinds lists the known kinds in the order chapter pages group them.
var Kinds = []Kind{KindSermon, KindCommentary, KindDevotional, KindBook, KindVideo}

// Plural returns the group name used for the kind ("sermons", "commentaries").
func (k Kind) Plural() string {
	if k == KindCommentary {
		return "commentaries"
	}
	return string(k) + "s"
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind normalizes a free-form type label. Matching is case-insensitive
// and tolerates one trailing "s", so "Sermons" and "sermon" are the same kind.
// "commentaries" is accepted for commentary. Unknown labels return false.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "commentaries" {
		return KindCommentary, true
	}
	k := Kind(strings.TrimSuffix(s, "s"))
	return k, k.Valid()
}

// PriceClass is the free/paid split used by the price filter.
type PriceClass string

const (
	PriceFree PriceClass = "free"
	PricePaid PriceClass = "paid"
)

// ParsePriceClass parses "free" or "paid", case-insensitively.
func ParsePriceClass(s string) (PriceClass, bool) {
	switch PriceClass(strings.ToLower(strings.TrimSpace(s))) {
	case PriceFree:
		return PriceFree, true
	case PricePaid:
		return PricePaid, true
	}
	return "", false
}

// Resource is a single sermon, commentary, devotional, book or video listed
// against a passage. Chapter fields are optional: a resource without a
// chapter applies to the whole book.
type Resource struct {
	ID                 int64     `json:"id" yaml:"id"`
	Book               string    `json:"book" yaml:"book"`
	Chapter            *int      `json:"chapter,omitempty" yaml:"chapter,omitempty"`
	ChapterEnd         *int      `json:"chapter_end,omitempty" yaml:"chapter_end,omitempty"`
	VerseStart         *int      `json:"verse_start,omitempty" yaml:"verse_start,omitempty"`
	VerseEnd           *int      `json:"verse_end,omitempty" yaml:"verse_end,omitempty"`
	SecondaryScripture string    `json:"secondary_scripture,omitempty" yaml:"secondary_scripture,omitempty"`
	Type               string    `json:"type" yaml:"type"`
	Title              string    `json:"title" yaml:"title"`
	Author             string    `json:"author,omitempty" yaml:"author,omitempty"`
	URL                string    `json:"url,omitempty" yaml:"url,omitempty"`
	Price              string    `json:"price,omitempty" yaml:"price,omitempty"`
	PublishedYear      *int      `json:"published_year,omitempty" yaml:"published_year,omitempty"`
	Description        string    `json:"description,omitempty" yaml:"description,omitempty"`
	Image              string    `json:"image,omitempty" yaml:"image,omitempty"`
	Fingerprint        string    `json:"fingerprint,omitempty" yaml:"-"`
	CreatedAt          time.Time `json:"created_at" yaml:"-"`
}

// Int returns a pointer to n, for filling optional fields.
func Int(n int) *int {
	return &n
}

// Kind classifies the resource type. The second result is false for labels
// outside the known kinds.
func (r *Resource) Kind() (Kind, bool) {
	return ParseKind(r.Type)
}

// PriceClass is free when the price is empty or "free", otherwise paid.
func (r *Resource) PriceClass() PriceClass {
	p := strings.TrimSpace(r.Price)
	if p == "" || strings.EqualFold(p, "free") {
		return PriceFree
	}
	return PricePaid
}

// ChapterRange returns the chapters the resource is primarily about.
// whole is true when the resource has no chapter and covers the whole book.
func (r *Resource) ChapterRange() (start, end int, whole bool) {
	if r.Chapter == nil {
		return 0, 0, true
	}
	start = *r.Chapter
	end = start
	if r.ChapterEnd != nil && *r.ChapterEnd > start {
		end = *r.ChapterEnd
	}
	return start, end, false
}

// Normalize trims text fields and rewrites Book to the canon's display name
// when it resolves. It is applied before validation and storage.
func (r *Resource) Normalize() {
	r.Book = strings.TrimSpace(r.Book)
	if b, ok := scripture.Lookup(r.Book); ok {
		r.Book = b.Name
	}
	r.SecondaryScripture = strings.TrimSpace(r.SecondaryScripture)
	r.Type = strings.TrimSpace(r.Type)
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.URL = strings.TrimSpace(r.URL)
	r.Price = strings.TrimSpace(r.Price)
	r.Description = strings.TrimSpace(r.Description)
	r.Image = strings.TrimSpace(r.Image)
}

// Validate checks the record at the store and import boundary. All
// problems are reported together.
func (r *Resource) Validate() error {
	var errs []error

	book, ok := scripture.Lookup(r.Book)
	if !ok {
		errs = append(errs, &errors.ValidationError{Field: "book", Value: r.Book, Message: "unknown book"})
	}
	if strings.TrimSpace(r.Title) == "" {
		errs = append(errs, errors.NewValidation("title", "must not be empty"))
	}
	if _, ok := r.Kind(); !ok {
		errs = append(errs, &errors.ValidationError{Field: "type", Value: r.Type, Message: "must be one of sermon, commentary, devotional, book, video"})
	}

	if r.Chapter != nil {
		switch {
		case *r.Chapter <= 0:
			errs = append(errs, errors.NewValidation("chapter", "must be positive"))
		case ok && !book.HasChapter(*r.Chapter):
			errs = append(errs, &errors.ValidationError{Field: "chapter", Value: strconv.Itoa(*r.Chapter), Message: "beyond the last chapter of " + book.Name})
		}
	}
	if r.ChapterEnd != nil {
		switch {
		case r.Chapter == nil:
			errs = append(errs, errors.NewValidation("chapter_end", "requires chapter"))
		case *r.ChapterEnd < *r.Chapter:
			errs = append(errs, errors.NewValidation("chapter_end", "must not be before chapter"))
		case ok && !book.HasChapter(*r.ChapterEnd):
			errs = append(errs, &errors.ValidationError{Field: "chapter_end", Value: strconv.Itoa(*r.ChapterEnd), Message: "beyond the last chapter of " + book.Name})
		}
	}
	if r.VerseStart != nil && *r.VerseStart <= 0 {
		errs = append(errs, errors.NewValidation("verse_start", "must be positive"))
	}
	if r.VerseEnd != nil && r.VerseStart != nil && *r.VerseEnd < *r.VerseStart {
		errs = append(errs, errors.NewValidation("verse_end", "must not be before verse_start"))
	}
	if r.URL != "" && !isHTTPURL(r.URL) {
		errs = append(errs, &errors.ValidationError{Field: "url", Value: r.URL, Message: "must be an http or https URL"})
	}
	if r.PublishedYear != nil && (*r.PublishedYear < 0 || *r.PublishedYear > 9999) {
		errs = append(errs, errors.NewValidation("published_year", "out of range"))
	}

	return errors.Join(errs...)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ComputeFingerprint returns the hex BLAKE3-256 digest of the normalized
// book, chapter, title, author and url. Two records with the same
// fingerprint are treated as the same resource by imports.
func (r *Resource) ComputeFingerprint() string {
	book := scripture.NormalizeName(r.Book)
	if b, ok := scripture.Lookup(r.Book); ok {
		book = b.Slug
	}
	chapter := ""
	if r.Chapter != nil {
		chapter = strconv.Itoa(*r.Chapter)
	}

	h := blake3.New()
	for _, part := range []string{
		book,
		chapter,
		strings.ToLower(strings.TrimSpace(r.Title)),
		strings.ToLower(strings.TrimSpace(r.Author)),
		strings.TrimSpace(r.URL),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
