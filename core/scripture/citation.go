package scripture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Citation is one parsed passage from a free-text citation string.
// Chapter bounds are inclusive. Verse bounds are zero when the passage does
// not name verses; they are kept for verse-level filtering and display.
type Citation struct {
	// Book is the canonical slug of the cited book (e.g., "1-corinthians").
	Book string `json:"book"`

	// Name is the display name of the cited book.
	Name string `json:"name"`

	ChapterStart int `json:"chapter_start"`
	ChapterEnd   int `json:"chapter_end"`

	VerseStart int `json:"verse_start,omitempty"`
	VerseEnd   int `json:"verse_end,omitempty"`
}

// Covers reports whether chapter falls within the citation's chapter range.
func (c Citation) Covers(chapter int) bool {
	return chapter >= c.ChapterStart && chapter <= c.ChapterEnd
}

// String renders the citation in conventional form ("Luke 6:20-26",
// "Mark 10-12", "John 3:16-4:2").
func (c Citation) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteString(" ")
	sb.WriteString(strconv.Itoa(c.ChapterStart))

	if c.VerseStart > 0 {
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(c.VerseStart))
	}

	switch {
	case c.ChapterEnd != c.ChapterStart:
		sb.WriteString("-")
		sb.WriteString(strconv.Itoa(c.ChapterEnd))
		if c.VerseEnd > 0 {
			sb.WriteString(":")
			sb.WriteString(strconv.Itoa(c.VerseEnd))
		}
	case c.VerseEnd > c.VerseStart:
		sb.WriteString("-")
		sb.WriteString(strconv.Itoa(c.VerseEnd))
	}

	return sb.String()
}

// citationGrammar is the participle grammar for one citation segment.
// Examples: "John", "John 3", "John 3:16", "Mark 10-12", "Luke 6:20-26",
// "John 3:16-4:2", "1 Cor. 13", "I John 4:8", "Jude 5"
//
//nolint:govet // participle grammar tags are not standard struct tags
type citationGrammar struct {
	Prefix  string          `@(Ordinal | Int)?`
	Words   []string        `@Ident+ "."?`
	Locator *locatorGrammar `@@?`

	EndPos lexer.Position
}

//nolint:govet // participle grammar tags are not standard struct tags
type locatorGrammar struct {
	Start positionGrammar  `@@`
	End   *positionGrammar `( Dash @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type positionGrammar struct {
	Major number        `@Int`
	Minor *minorGrammar `@@?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type minorGrammar struct {
	Value number `( ":" | "." ) @Int`
}

// number captures an Int token, dropping a trailing verse-part letter
// ("16a" -> 16).
type number int

func (n *number) Capture(values []string) error {
	v := strings.TrimRight(values[0], "abcdef")
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", values[0], err)
	}
	*n = number(i)
	return nil
}

// citationLexer tokenizes a single segment. Ordinal is listed before Int so
// "1st" is not split into "1" and "st". Other absorbs anything else so
// trailing notes such as "(ESV)" still lex.
var citationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ordinal", Pattern: `[1-3](?:st|nd|rd)\b`},
	{Name: "Int", Pattern: `[0-9]+(?:[a-f]\b)?`},
	{Name: "Ident", Pattern: `\p{L}[\p{L}']*`},
	{Name: "Dash", Pattern: `[-\x{2013}\x{2014}]`},
	{Name: "Punct", Pattern: `[:.]`},
	{Name: "Whitespace", Pattern: `[\s\p{Zs}]+`},
	{Name: "Other", Pattern: `.`},
})

// citationParser is safe for concurrent use.
var citationParser = participle.MustBuild[citationGrammar](
	participle.Lexer(citationLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// parseSegment parses the leading book and locator of segment and ignores
// trailing text ("John 3:16 ff", "Matthew 5:1-12 (ESV)"). A remainder that
// starts with a digit or colon is a locator that failed to parse, so the
// segment is rejected rather than read as a bare book.
func parseSegment(segment string) (*citationGrammar, bool) {
	parsed, err := citationParser.ParseString("", segment, participle.AllowTrailing(true))
	if err != nil {
		return nil, false
	}
	if off := parsed.EndPos.Offset; off < len(segment) {
		rest := strings.TrimSpace(segment[off:])
		if rest != "" && strings.ContainsRune("0123456789:", rune(rest[0])) {
			return nil, false
		}
	}
	return parsed, true
}

// bookName joins the parsed prefix and words into a name suitable for
// Canon.Lookup.
func (g *citationGrammar) bookName() string {
	name := strings.Join(g.Words, " ")
	if g.Prefix != "" {
		name = g.Prefix + " " + name
	}
	return name
}

// toCitation applies the range rules to a parsed segment. It reports false
// when the segment names no chapter of the book.
func (g *citationGrammar) toCitation(b Book) (Citation, bool) {
	c := Citation{Book: b.Slug, Name: b.Name}

	if g.Locator == nil {
		c.ChapterStart = 1
		c.ChapterEnd = b.Chapters
		return c, true
	}

	start, end := g.Locator.Start, g.Locator.End

	// "Jude 5" and "Philemon 4-7" name verses of the only chapter.
	if b.SingleChapter() && start.Minor == nil {
		c.ChapterStart, c.ChapterEnd = 1, 1
		c.VerseStart = int(start.Major)
		c.VerseEnd = c.VerseStart
		if end != nil {
			c.VerseEnd = int(end.Major)
			if end.Minor != nil {
				c.VerseEnd = int(end.Minor.Value)
			}
		}
		if c.VerseEnd < c.VerseStart {
			c.VerseEnd = c.VerseStart
		}
		return c, c.VerseStart >= 1
	}

	c.ChapterStart = int(start.Major)
	c.ChapterEnd = c.ChapterStart
	if start.Minor != nil {
		c.VerseStart = int(start.Minor.Value)
		c.VerseEnd = c.VerseStart
	}

	if end != nil {
		switch {
		case end.Minor != nil:
			c.ChapterEnd = int(end.Major)
			c.VerseEnd = int(end.Minor.Value)
		case start.Minor != nil:
			c.VerseEnd = int(end.Major)
		default:
			c.ChapterEnd = int(end.Major)
		}
	}

	if !b.HasChapter(c.ChapterStart) {
		return Citation{}, false
	}

	// An inverted chapter range collapses to its start chapter.
	if c.ChapterEnd < c.ChapterStart {
		c.ChapterEnd = c.ChapterStart
		c.VerseEnd = c.VerseStart
	}
	if c.ChapterEnd > b.Chapters {
		c.ChapterEnd = b.Chapters
	}
	if c.ChapterEnd == c.ChapterStart && c.VerseEnd < c.VerseStart {
		c.VerseEnd = c.VerseStart
	}

	return c, true
}
