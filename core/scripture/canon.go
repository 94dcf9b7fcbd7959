package scripture

import (
	"strings"
	"unicode"
)

// Testament identifies which half of the canon a book belongs to.
type Testament string

// Testament constants.
const (
	OldTestament Testament = "OT"
	NewTestament Testament = "NT"
)

// Book describes one book of the canon.
type Book struct {
	// Slug is the URL form used throughout the site (e.g., "1-corinthians").
	Slug string `json:"slug"`

	// Name is the display name (e.g., "1 Corinthians").
	Name string `json:"name"`

	// Testament is OT or NT.
	Testament Testament `json:"testament"`

	// Order is the 1-indexed canonical position.
	Order int `json:"order"`

	// Chapters is the number of chapters in the book.
	Chapters int `json:"chapters"`

	// Aliases are extra names that resolve to this book (abbreviations,
	// alternate titles). Numbered variants are derived automatically.
	Aliases []string `json:"-"`
}

// SingleChapter reports whether the book has exactly one chapter.
// Citations of such books usually give verse numbers only ("Jude 5").
func (b Book) SingleChapter() bool {
	return b.Chapters == 1
}

// HasChapter reports whether n is a valid chapter of the book.
func (b Book) HasChapter(n int) bool {
	return n >= 1 && n <= b.Chapters
}

// protestantBooks lists the 66 books in canonical order.
var protestantBooks = []Book{
	{Slug: "genesis", Name: "Genesis", Chapters: 50, Aliases: []string{"gen", "ge", "gn"}},
	{Slug: "exodus", Name: "Exodus", Chapters: 40, Aliases: []string{"exod", "exo", "ex"}},
	{Slug: "leviticus", Name: "Leviticus", Chapters: 27, Aliases: []string{"lev", "le", "lv"}},
	{Slug: "numbers", Name: "Numbers", Chapters: 36, Aliases: []string{"num", "nu", "nm"}},
	{Slug: "deuteronomy", Name: "Deuteronomy", Chapters: 34, Aliases: []string{"deut", "deu", "dt"}},
	{Slug: "joshua", Name: "Joshua", Chapters: 24, Aliases: []string{"josh", "jos"}},
	{Slug: "judges", Name: "Judges", Chapters: 21, Aliases: []string{"judg", "jdg"}},
	{Slug: "ruth", Name: "Ruth", Chapters: 4, Aliases: []string{"ru", "rth"}},
	{Slug: "1-samuel", Name: "1 Samuel", Chapters: 31, Aliases: []string{"1 sam", "1 sa"}},
	{Slug: "2-samuel", Name: "2 Samuel", Chapters: 24, Aliases: []string{"2 sam", "2 sa"}},
	{Slug: "1-kings", Name: "1 Kings", Chapters: 22, Aliases: []string{"1 kgs", "1 ki"}},
	{Slug: "2-kings", Name: "2 Kings", Chapters: 25, Aliases: []string{"2 kgs", "2 ki"}},
	{Slug: "1-chronicles", Name: "1 Chronicles", Chapters: 29, Aliases: []string{"1 chron", "1 chr", "1 ch"}},
	{Slug: "2-chronicles", Name: "2 Chronicles", Chapters: 36, Aliases: []string{"2 chron", "2 chr", "2 ch"}},
	{Slug: "ezra", Name: "Ezra", Chapters: 10, Aliases: []string{"ezr"}},
	{Slug: "nehemiah", Name: "Nehemiah", Chapters: 13, Aliases: []string{"neh", "ne"}},
	{Slug: "esther", Name: "Esther", Chapters: 10, Aliases: []string{"esth", "est"}},
	{Slug: "job", Name: "Job", Chapters: 42, Aliases: []string{"jb"}},
	{Slug: "psalms", Name: "Psalms", Chapters: 150, Aliases: []string{"psalm", "ps", "psa", "pss"}},
	{Slug: "proverbs", Name: "Proverbs", Chapters: 31, Aliases: []string{"prov", "pro", "prv", "pr"}},
	{Slug: "ecclesiastes", Name: "Ecclesiastes", Chapters: 12, Aliases: []string{"eccl", "eccles", "ecc", "qoheleth"}},
	{Slug: "song-of-solomon", Name: "Song of Solomon", Chapters: 8, Aliases: []string{"song of songs", "song", "sos", "canticles"}},
	{Slug: "isaiah", Name: "Isaiah", Chapters: 66, Aliases: []string{"isa", "is"}},
	{Slug: "jeremiah", Name: "Jeremiah", Chapters: 52, Aliases: []string{"jer", "je"}},
	{Slug: "lamentations", Name: "Lamentations", Chapters: 5, Aliases: []string{"lam", "la"}},
	{Slug: "ezekiel", Name: "Ezekiel", Chapters: 48, Aliases: []string{"ezek", "eze", "ezk"}},
	{Slug: "daniel", Name: "Daniel", Chapters: 12, Aliases: []string{"dan", "da", "dn"}},
	{Slug: "hosea", Name: "Hosea", Chapters: 14, Aliases: []string{"hos", "ho"}},
	{Slug: "joel", Name: "Joel", Chapters: 3, Aliases: []string{"jl"}},
	{Slug: "amos", Name: "Amos", Chapters: 9, Aliases: []string{"am"}},
	{Slug: "obadiah", Name: "Obadiah", Chapters: 1, Aliases: []string{"obad", "ob"}},
	{Slug: "jonah", Name: "Jonah", Chapters: 4, Aliases: []string{"jon", "jnh"}},
	{Slug: "micah", Name: "Micah", Chapters: 7, Aliases: []string{"mic", "mc"}},
	{Slug: "nahum", Name: "Nahum", Chapters: 3, Aliases: []string{"nah", "na"}},
	{Slug: "habakkuk", Name: "Habakkuk", Chapters: 3, Aliases: []string{"hab", "hb"}},
	{Slug: "zephaniah", Name: "Zephaniah", Chapters: 3, Aliases: []string{"zeph", "zep", "zp"}},
	{Slug: "haggai", Name: "Haggai", Chapters: 2, Aliases: []string{"hag", "hg"}},
	{Slug: "zechariah", Name: "Zechariah", Chapters: 14, Aliases: []string{"zech", "zec", "zc"}},
	{Slug: "malachi", Name: "Malachi", Chapters: 4, Aliases: []string{"mal", "ml"}},
	{Slug: "matthew", Name: "Matthew", Chapters: 28, Aliases: []string{"matt", "mat", "mt"}},
	{Slug: "mark", Name: "Mark", Chapters: 16, Aliases: []string{"mrk", "mk", "mr"}},
	{Slug: "luke", Name: "Luke", Chapters: 24, Aliases: []string{"luk", "lk"}},
	{Slug: "john", Name: "John", Chapters: 21, Aliases: []string{"jhn", "jn"}},
	{Slug: "acts", Name: "Acts", Chapters: 28, Aliases: []string{"act", "ac", "acts of the apostles"}},
	{Slug: "romans", Name: "Romans", Chapters: 16, Aliases: []string{"rom", "ro", "rm"}},
	{Slug: "1-corinthians", Name: "1 Corinthians", Chapters: 16, Aliases: []string{"1 cor", "1 co"}},
	{Slug: "2-corinthians", Name: "2 Corinthians", Chapters: 13, Aliases: []string{"2 cor", "2 co"}},
	{Slug: "galatians", Name: "Galatians", Chapters: 6, Aliases: []string{"gal", "ga"}},
	{Slug: "ephesians", Name: "Ephesians", Chapters: 6, Aliases: []string{"eph", "ephes"}},
	{Slug: "philippians", Name: "Philippians", Chapters: 4, Aliases: []string{"phil", "php", "pp"}},
	{Slug: "colossians", Name: "Colossians", Chapters: 4, Aliases: []string{"col", "co"}},
	{Slug: "1-thessalonians", Name: "1 Thessalonians", Chapters: 5, Aliases: []string{"1 thess", "1 thes", "1 th"}},
	{Slug: "2-thessalonians", Name: "2 Thessalonians", Chapters: 3, Aliases: []string{"2 thess", "2 thes", "2 th"}},
	{Slug: "1-timothy", Name: "1 Timothy", Chapters: 6, Aliases: []string{"1 tim", "1 ti"}},
	{Slug: "2-timothy", Name: "2 Timothy", Chapters: 4, Aliases: []string{"2 tim", "2 ti"}},
	{Slug: "titus", Name: "Titus", Chapters: 3, Aliases: []string{"tit", "ti"}},
	{Slug: "philemon", Name: "Philemon", Chapters: 1, Aliases: []string{"philem", "phm", "pm"}},
	{Slug: "hebrews", Name: "Hebrews", Chapters: 13, Aliases: []string{"heb"}},
	{Slug: "james", Name: "James", Chapters: 5, Aliases: []string{"jas", "jm"}},
	{Slug: "1-peter", Name: "1 Peter", Chapters: 5, Aliases: []string{"1 pet", "1 pe", "1 pt"}},
	{Slug: "2-peter", Name: "2 Peter", Chapters: 3, Aliases: []string{"2 pet", "2 pe", "2 pt"}},
	{Slug: "1-john", Name: "1 John", Chapters: 5, Aliases: []string{"1 jn", "1 jhn"}},
	{Slug: "2-john", Name: "2 John", Chapters: 1, Aliases: []string{"2 jn", "2 jhn"}},
	{Slug: "3-john", Name: "3 John", Chapters: 1, Aliases: []string{"3 jn", "3 jhn"}},
	{Slug: "jude", Name: "Jude", Chapters: 1, Aliases: []string{"jud", "jd"}},
	{Slug: "revelation", Name: "Revelation", Chapters: 22, Aliases: []string{"rev", "re", "revelations", "apocalypse"}},
}

// numberForms maps a leading book numeral to the spellings people use for it.
var numberForms = map[string][]string{
	"1": {"1", "i", "first", "1st"},
	"2": {"2", "ii", "second", "2nd"},
	"3": {"3", "iii", "third", "3rd"},
}

// Canon is an ordered set of books with a normalized name index.
// A Canon is immutable after construction and safe for concurrent use.
type Canon struct {
	books []Book
	index map[string]int
}

// NewCanon builds a canon from books in canonical order. Order and
// Testament are filled in when zero: books up to and including Malachi are
// Old Testament when no testament is given.
func NewCanon(books []Book) *Canon {
	c := &Canon{
		books: make([]Book, len(books)),
		index: make(map[string]int, len(books)*8),
	}

	testament := OldTestament
	for i, b := range books {
		if b.Order == 0 {
			b.Order = i + 1
		}
		if b.Testament == "" {
			b.Testament = testament
		}
		if b.Slug == "malachi" {
			testament = NewTestament
		}
		c.books[i] = b

		for _, name := range append([]string{b.Slug, b.Name}, b.Aliases...) {
			for _, key := range nameVariants(name) {
				// First book in canonical order keeps a contested key.
				if _, taken := c.index[key]; !taken {
					c.index[key] = i
				}
			}
		}
	}

	return c
}

// nameVariants expands a name into its normalized lookup keys, including
// roman, ordinal and unspaced forms of a leading book number.
func nameVariants(name string) []string {
	key := NormalizeName(name)
	if key == "" {
		return nil
	}

	num, rest, found := strings.Cut(key, " ")
	forms, numbered := numberForms[num]
	if !found || !numbered {
		return []string{key}
	}

	variants := make([]string, 0, len(forms)+1)
	for _, f := range forms {
		variants = append(variants, f+" "+rest)
	}
	variants = append(variants, num+strings.ReplaceAll(rest, " ", ""))
	return variants
}

var defaultCanon = NewCanon(protestantBooks)

// DefaultCanon returns the 66-book Protestant canon used by the site.
func DefaultCanon() *Canon {
	return defaultCanon
}

// Books returns a copy of the books in canonical order.
func (c *Canon) Books() []Book {
	out := make([]Book, len(c.books))
	copy(out, c.books)
	return out
}

// Len returns the number of books.
func (c *Canon) Len() int {
	return len(c.books)
}

// Lookup resolves any accepted spelling of a book name (display name, slug,
// abbreviation, numbered variant) to its Book.
func (c *Canon) Lookup(name string) (Book, bool) {
	i, ok := c.index[NormalizeName(name)]
	if !ok {
		return Book{}, false
	}
	return c.books[i], true
}

// BySlug returns the book with exactly the given slug.
func (c *Canon) BySlug(slug string) (Book, bool) {
	for _, b := range c.books {
		if b.Slug == slug {
			return b, true
		}
	}
	return Book{}, false
}

// TotalChapters returns the number of chapters across the canon.
func (c *Canon) TotalChapters() int {
	total := 0
	for _, b := range c.books {
		total += b.Chapters
	}
	return total
}

// Lookup resolves a book name against the default canon.
func Lookup(name string) (Book, bool) {
	return defaultCanon.Lookup(name)
}

// Slug converts a book name in any accepted spelling to its URL slug.
// Unknown names fall back to a hyphenated lower-case form.
func Slug(name string) string {
	if b, ok := defaultCanon.Lookup(name); ok {
		return b.Slug
	}
	return strings.ReplaceAll(NormalizeName(name), " ", "-")
}

// DisplayName converts a URL slug to the book's display name.
// Unknown slugs are title-cased word by word.
func DisplayName(slug string) string {
	if b, ok := defaultCanon.Lookup(slug); ok {
		return b.Name
	}
	words := strings.Fields(NormalizeName(slug))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
