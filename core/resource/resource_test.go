package resource

import (
	"strings"
	"testing"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
		ok    bool
	}{
		{"sermon", KindSermon, true},
		{"Sermons", KindSermon, true},
		{" VIDEO ", KindVideo, true},
		{"commentaries", KindCommentary, true},
		{"Commentary", KindCommentary, true},
		{"devotionals", KindDevotional, true},
		{"Books", KindBook, true},
		{"podcast", Kind("podcast"), false},
		{"", Kind(""), false},
	}

	for _, tt := range tests {
		got, ok := ParseKind(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseKind(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestKindPlural(t *testing.T) {
	want := []string{"sermons", "commentaries", "devotionals", "books", "videos"}
	for i, k := range Kinds {
		if got := k.Plural(); got != want[i] {
			t.Errorf("%s.Plural() = %q, want %q", k, got, want[i])
		}
	}
}

func TestPriceClass(t *testing.T) {
	tests := map[string]PriceClass{
		"":       PriceFree,
		"free":   PriceFree,
		" FREE ": PriceFree,
		"$12.99": PricePaid,
		"paid":   PricePaid,
	}
	for price, want := range tests {
		r := Resource{Price: price}
		if got := r.PriceClass(); got != want {
			t.Errorf("PriceClass(%q) = %q, want %q", price, got, want)
		}
	}

	if _, ok := ParsePriceClass("cheap"); ok {
		t.Error("ParsePriceClass(cheap) should fail")
	}
	if p, ok := ParsePriceClass("Paid"); !ok || p != PricePaid {
		t.Errorf("ParsePriceClass(Paid) = %q, %v", p, ok)
	}
}

func TestChapterRange(t *testing.T) {
	tests := []struct {
		name               string
		r                  Resource
		wantStart, wantEnd int
		wantWhole          bool
	}{
		{"whole book", Resource{}, 0, 0, true},
		{"single chapter", Resource{Chapter: Int(5)}, 5, 5, false},
		{"range", Resource{Chapter: Int(5), ChapterEnd: Int(7)}, 5, 7, false},
		{"inverted end ignored", Resource{Chapter: Int(5), ChapterEnd: Int(3)}, 5, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, whole := tt.r.ChapterRange()
			if start != tt.wantStart || end != tt.wantEnd || whole != tt.wantWhole {
				t.Errorf("ChapterRange() = %d, %d, %v; want %d, %d, %v",
					start, end, whole, tt.wantStart, tt.wantEnd, tt.wantWhole)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	r := Resource{Book: " 1-corinthians ", Title: "  Love  ", Type: " Sermon "}
	r.Normalize()
	if r.Book != "1 Corinthians" {
		t.Errorf("Book = %q, want %q", r.Book, "1 Corinthians")
	}
	if r.Title != "Love" || r.Type != "Sermon" {
		t.Errorf("fields not trimmed: %+v", r)
	}

	unknown := Resource{Book: " Hezekiah "}
	unknown.Normalize()
	if unknown.Book != "Hezekiah" {
		t.Errorf("unknown Book = %q, want Hezekiah", unknown.Book)
	}
}

func valid() Resource {
	return Resource{
		Book:    "Romans",
		Chapter: Int(8),
		Type:    "sermon",
		Title:   "No Condemnation",
		URL:     "https://example.org/romans-8",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Resource)
		wantField string
	}{
		{"valid", func(*Resource) {}, ""},
		{"whole book", func(r *Resource) { r.Chapter = nil }, ""},
		{"unknown book", func(r *Resource) { r.Book = "Hezekiah" }, "book"},
		{"empty title", func(r *Resource) { r.Title = " " }, "title"},
		{"unknown type", func(r *Resource) { r.Type = "podcast" }, "type"},
		{"zero chapter", func(r *Resource) { r.Chapter = Int(0) }, "chapter"},
		{"chapter past end", func(r *Resource) { r.Chapter = Int(17) }, "chapter"},
		{"end before start", func(r *Resource) { r.ChapterEnd = Int(7) }, "chapter_end"},
		{"end without start", func(r *Resource) { r.Chapter = nil; r.ChapterEnd = Int(3) }, "chapter_end"},
		{"end past book", func(r *Resource) { r.ChapterEnd = Int(20) }, "chapter_end"},
		{"bad verse", func(r *Resource) { r.VerseStart = Int(-1) }, "verse_start"},
		{"inverted verses", func(r *Resource) { r.VerseStart = Int(9); r.VerseEnd = Int(2) }, "verse_end"},
		{"ftp url", func(r *Resource) { r.URL = "ftp://example.org/x" }, "url"},
		{"relative url", func(r *Resource) { r.URL = "/romans" }, "url"},
		{"bad year", func(r *Resource) { r.PublishedYear = Int(-5) }, "published_year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error on %s", tt.wantField)
			}
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("Validate() error should match ErrInvalidInput: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Validate() = %q, want mention of %s", err, tt.wantField)
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	r := Resource{Book: "Nowhere", Type: "podcast"}
	err := r.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, field := range []string{"book", "title", "type"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}

func TestComputeFingerprint(t *testing.T) {
	a := valid()
	b := valid()
	b.Book = "romans"
	b.Title = "no condemnation "

	if a.ComputeFingerprint() != b.ComputeFingerprint() {
		t.Error("fingerprints should ignore book spelling and title case")
	}
	if len(a.ComputeFingerprint()) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(a.ComputeFingerprint()))
	}

	c := valid()
	c.Chapter = Int(9)
	if a.ComputeFingerprint() == c.ComputeFingerprint() {
		t.Error("different chapters should give different fingerprints")
	}

	d := valid()
	d.Description = "changed"
	if a.ComputeFingerprint() != d.ComputeFingerprint() {
		t.Error("description should not affect the fingerprint")
	}
}
