package cartoony

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

type selector struct {
	raw     string
	matcher cascadia.Selector
}

// Selectors is an ordered list of CSS selectors tried first-match-wins.
// The site template changed several times, so each list holds every known layout,
// newest first. Adding a layout means appending a selector, nothing else.
type Selectors []selector

// CompileSelectors compiles the given selectors, keeping their order.
func CompileSelectors(raw ...string) (Selectors, error) {
	out := make(Selectors, 0, len(raw))
	for _, r := range raw {
		m, err := cascadia.Compile(r)
		if err != nil {
			return nil, fmt.Errorf("failed to cascadia.Compile %q: %w", r, err)
		}
		out = append(out, selector{raw: r, matcher: m})
	}
	return out, nil
}

// MustCompileSelectors is like CompileSelectors but panics on an invalid selector.
func MustCompileSelectors(raw ...string) Selectors {
	s, err := CompileSelectors(raw...)
	if err != nil {
		panic(err)
	}
	return s
}

// PickFirst returns the first selector matching at least one element of doc.
func (s Selectors) PickFirst(doc *goquery.Document) (string, bool) {
	for _, sel := range s {
		if doc.FindMatcher(sel.matcher).Length() > 0 {
			return sel.raw, true
		}
	}
	return "", false
}

// FirstBy returns the first descendant of el matched by the earliest selector that matches anything.
func (s Selectors) FirstBy(el *goquery.Selection) (*goquery.Selection, bool) {
	for _, sel := range s {
		if found := el.FindMatcher(sel.matcher).First(); found.Length() > 0 {
			return found, true
		}
	}
	return nil, false
}

// Strings returns the raw selectors in order.
func (s Selectors) Strings() []string {
	out := make([]string, 0, len(s))
	for _, sel := range s {
		out = append(out, sel.raw)
	}
	return out
}

var (
	cardSelectors = MustCompileSelectors(
		"article",
		".post",
		".grid-item",
		".GridItem",
		".Block",
	)
	cardTitleSelectors = MustCompileSelectors(
		"h2.entry-title a",
		".entry-title a",
		".GridTitle a",
		"a[rel=bookmark]",
	)
	cardImageSelectors = MustCompileSelectors(
		"img.wp-post-image",
		"img[data-src]",
		"figure img",
		"img",
	)
	episodeSelectors = MustCompileSelectors(
		"ul.episodes li a",
		".episodes-list a",
		".EpisodeList a",
		".ep-box a",
		".episodes a",
	)
	detailTitleSelectors  = MustCompileSelectors("h1.entry-title", "h1")
	detailPosterSelectors = MustCompileSelectors("img.wp-post-image", "figure img")
)

const defaultCardSelector = "article"
