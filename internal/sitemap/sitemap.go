// Package sitemap writes and checks the sitemap.xml that lists every
// chapter page.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/core/scripture"
)

// Namespace is the sitemap protocol namespace.
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// URL is one <url> entry.
type URL struct {
	Loc        string `xml:"loc"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URLs returns the home page followed by every chapter of canon in
// canonical order, rooted at hostname.
func URLs(canon *scripture.Canon, hostname string) []URL {
	base := strings.TrimRight(hostname, "/")
	urls := make([]URL, 0, canon.TotalChapters()+1)
	urls = append(urls, URL{Loc: base + "/", ChangeFreq: "daily", Priority: "1.0"})
	for _, b := range canon.Books() {
		for ch := 1; ch <= b.Chapters; ch++ {
			urls = append(urls, URL{
				Loc:        base + "/" + b.Slug + "/" + strconv.Itoa(ch),
				ChangeFreq: "weekly",
				Priority:   "0.7",
			})
		}
	}
	return urls
}

// Generate writes the sitemap for the default canon to w.
func Generate(w io.Writer, hostname string) error {
	return GenerateFor(w, scripture.DefaultCanon(), hostname)
}

// GenerateFor writes the sitemap for canon to w.
func GenerateFor(w io.Writer, canon *scripture.Canon, hostname string) error {
	if hostname == "" {
		return errors.NewValidation("hostname", "must not be empty")
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(urlSet{XMLNS: Namespace, URLs: URLs(canon, hostname)}); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// locExpr selects every <loc> under a <url>, whatever namespace prefix the
// document uses.
var locExpr = xpath.MustCompile(`//*[local-name()='url']/*[local-name()='loc']`)

// Report lists the differences between a sitemap and the expected URLs.
type Report struct {
	Total      int      `json:"total"`
	Missing    []string `json:"missing,omitempty"`
	Unexpected []string `json:"unexpected,omitempty"`
	Duplicates []string `json:"duplicates,omitempty"`
}

// OK reports whether the sitemap matched exactly.
func (r *Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0 && len(r.Duplicates) == 0
}

// Verify parses the sitemap in r and compares its locations against the
// URLs Generate would write for hostname.
func Verify(r io.Reader, hostname string) (*Report, error) {
	return VerifyFor(r, scripture.DefaultCanon(), hostname)
}

// VerifyFor is Verify against canon.
func VerifyFor(r io.Reader, canon *scripture.Canon, hostname string) (*Report, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, errors.NewParse("XML", "sitemap.xml", err)
	}

	want := URLs(canon, hostname)
	expected := make(map[string]bool, len(want))
	for _, u := range want {
		expected[u.Loc] = true
	}

	report := &Report{}
	seen := make(map[string]bool, len(want))
	for _, n := range xmlquery.QuerySelectorAll(doc, locExpr) {
		loc := strings.TrimSpace(n.InnerText())
		report.Total++
		switch {
		case seen[loc]:
			report.Duplicates = append(report.Duplicates, loc)
		case !expected[loc]:
			report.Unexpected = append(report.Unexpected, loc)
		}
		seen[loc] = true
	}
	for _, u := range want {
		if !seen[u.Loc] {
			report.Missing = append(report.Missing, u.Loc)
		}
	}
	return report, nil
}
