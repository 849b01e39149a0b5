package cartoony

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// Name is the provider name shown to the host.
	Name = "Cartoony"
	// Lang is the site language tag.
	Lang = "ar"

	fallbackTitle        = "Cartoony Item"
	fallbackEpisodeLabel = "Episode"
)

// seriesMarkers are "episode" and "series" in Arabic. A card mentioning either is a series.
var seriesMarkers = []string{"حلقة", "مسلسل"}

var digitRunRE = regexp.MustCompile(`\d+`)

// ParseListing extracts the cards of a listing or search page in document order.
// Cards without a title or link are dropped.
func ParseListing(doc *goquery.Document) []Summary {
	cardSel, ok := cardSelectors.PickFirst(doc)
	if !ok {
		cardSel = defaultCardSelector
	}

	items := make([]Summary, 0)
	doc.Find(cardSel).Each(func(_ int, card *goquery.Selection) {
		titleEl, _ := cardTitleSelectors.FirstBy(card)
		imgEl, _ := cardImageSelectors.FirstBy(card)

		var title, href string
		if titleEl != nil {
			title = normalizeText(titleEl.Text())
			href = absAttr(titleEl, doc.Url, "href")
		}
		if title == "" || href == "" {
			return
		}

		items = append(items, Summary{
			Title:     title,
			URL:       href,
			PosterURL: absSrc(imgEl, doc.Url),
			Kind:      classifyCard(card.Text()),
		})
	})

	return items
}

func classifyCard(text string) MediaKind {
	for _, m := range seriesMarkers {
		if strings.Contains(text, m) {
			return Series
		}
	}
	return Movie
}

// ParseDetail builds a Detail from a detail page fetched from pageURL.
// It never fails: a page without any recognizable element still yields a Movie titled fallbackTitle.
func ParseDetail(doc *goquery.Document, pageURL string) *Detail {
	d := &Detail{
		Title:     firstText(doc.Selection, detailTitleSelectors, fallbackTitle),
		URL:       pageURL,
		PosterURL: firstAbsAttr(doc, detailPosterSelectors, "src"),
		Plot:      normalizeText(doc.Find(".entry-content p").First().Text()),
	}

	epSel, ok := episodeSelectors.PickFirst(doc)
	if !ok {
		d.Content = MovieContent{PlayableURL: pageURL}
		return d
	}

	var episodes []Episode
	doc.Find(epSel).Each(func(_ int, a *goquery.Selection) {
		label := normalizeText(a.Text())
		if label == "" {
			label = fallbackEpisodeLabel
		}
		episodes = append(episodes, Episode{
			URL:    absAttr(a, doc.Url, "href"),
			Label:  label,
			Number: EpisodeNumber(label),
		})
	})
	d.Content = SeriesContent{Episodes: episodes}

	return d
}

// EpisodeNumber parses the first decimal digit run of label.
func EpisodeNumber(label string) *int {
	m := digitRunRE.FindString(label)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

// normalizeText trims s and collapses every whitespace run to a single space.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstText(s *goquery.Selection, sels Selectors, fallback string) string {
	for _, sel := range sels {
		var text string
		s.FindMatcher(sel.matcher).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text = normalizeText(el.Text())
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return fallback
}

func firstAbsAttr(doc *goquery.Document, sels Selectors, attr string) string {
	for _, sel := range sels {
		if v := absAttr(doc.FindMatcher(sel.matcher).First(), doc.Url, attr); v != "" {
			return v
		}
	}
	return ""
}

// findIframe returns the absolute src of the first iframe carrying one.
func findIframe(doc *goquery.Document) string {
	return absAttr(doc.Find("iframe[src]").First(), doc.Url, "src")
}

// videoSources returns the non-blank absolute src of every <video><source>, in order.
func videoSources(doc *goquery.Document) []string {
	var out []string
	doc.Find("video source[src]").Each(func(_ int, s *goquery.Selection) {
		if src := absAttr(s, doc.Url, "src"); src != "" {
			out = append(out, src)
		}
	})
	return out
}
