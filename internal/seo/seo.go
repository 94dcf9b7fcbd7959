// Package seo builds the page metadata served alongside chapter views.
package seo

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/ReformedChapter/core/scripture"
)

// DefaultSiteName is used when no site name is configured.
const DefaultSiteName = "Bible Study Hub"

// Meta is the title, description and keywords for one page.
type Meta struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Keywords     []string `json:"keywords"`
	CanonicalURL string   `json:"canonical_url,omitempty"`
}

// KeywordString joins the keywords the way a meta tag expects them.
func (m Meta) KeywordString() string {
	return strings.Join(m.Keywords, ", ")
}

// Home returns the metadata for the landing page.
func Home(siteName, siteURL string) Meta {
	if siteName == "" {
		siteName = DefaultSiteName
	}
	m := Meta{
		Title:       siteName + " | Free Bible Study Resources & Commentary",
		Description: "Discover comprehensive Bible study resources including sermons, commentaries, devotionals, and more to deepen your Scripture understanding.",
		Keywords: []string{
			"bible study", "bible commentary", "scripture study", "christian resources",
			"biblical analysis", "devotionals", "sermons", "verse study", "biblical exegesis",
		},
	}
	if siteURL != "" {
		m.CanonicalURL = strings.TrimRight(siteURL, "/") + "/"
	}
	return m
}

// ChapterMeta returns the metadata for a chapter page. bookSlug may be a
// slug or any name the canon resolves; unknown books fall back to a title
// cased slug. resourceCount is the number of resources listed on the page.
func ChapterMeta(siteName, siteURL, bookSlug string, chapter, resourceCount int) Meta {
	if siteName == "" {
		siteName = DefaultSiteName
	}
	slug, name := bookSlug, scripture.DisplayName(bookSlug)
	if b, ok := scripture.Lookup(bookSlug); ok {
		slug, name = b.Slug, b.Name
	}

	title := fmt.Sprintf("%s %d Bible Study Commentary", name, chapter)
	if resourceCount > 0 {
		title += fmt.Sprintf(" | %d Resources", resourceCount)
	}
	title += " | " + siteName

	detail := " Access comprehensive study materials and biblical insights."
	if resourceCount > 0 {
		detail = fmt.Sprintf(" Explore %d curated sermons and commentaries plus additional study materials.", resourceCount)
	}
	description := fmt.Sprintf("Study %s Chapter %d with expert Bible commentary and analysis.%s Perfect for personal devotions, group studies, and sermon preparation.",
		name, chapter, detail)

	lower := strings.ToLower(name)
	m := Meta{
		Title:       title,
		Description: description,
		Keywords: []string{
			fmt.Sprintf("%s chapter %d", name, chapter),
			lower + " bible study",
			lower + " commentary",
			lower + " sermon",
			fmt.Sprintf("%s %d analysis", name, chapter),
			"bible verse study",
			"scripture commentary",
			"biblical exegesis",
			"christian resources",
			"bible study guide",
			"devotional study",
			"sermon preparation",
		},
	}
	if siteURL != "" {
		m.CanonicalURL = fmt.Sprintf("%s/%s/%d", strings.TrimRight(siteURL, "/"), slug, chapter)
	}
	return m
}
