package cartoony

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/wlynxg/chardet"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// maxBodySize caps how much of a page is read.
const maxBodySize = 5 * 1024 * 1024

// ErrBodyTooLarge is returned when a page exceeds maxBodySize.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPStatusError reports a non-2xx response from the site.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// fetchDocument GETs pageURL and parses it. The returned document's Url is the final
// response URL, or the page's <base href> when present, so absAttr resolves like a browser.
func (c *client) fetchDocument(ctx context.Context, pageURL, referer string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to http.NewRequestWithContext: %w", err)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to http.Client.Do: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: pageURL, StatusCode: res.StatusCode}
	}

	body, err := readCapped(res.Body, maxBodySize)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(decodeBody(body))
	if err != nil {
		return nil, fmt.Errorf("failed to goquery.NewDocumentFromReader: %w", err)
	}

	base := res.Request.URL
	if base == nil {
		base, _ = url.Parse(pageURL)
	}
	doc.Url = documentBase(doc, base)

	return doc, nil
}

// readCapped reads r fully, failing with ErrBodyTooLarge past limit bytes.
func readCapped(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, ErrBodyTooLarge
	}
	return b, nil
}

// decodeBody converts legacy encoded pages (windows-1256 mostly) to UTF-8.
func decodeBody(body []byte) io.Reader {
	if utf8.Valid(body) {
		return bytes.NewReader(body)
	}
	enc, err := htmlindex.Get(string(chardet.Detect(body).Encoding))
	if err != nil {
		return bytes.NewReader(body)
	}
	return transform.NewReader(bytes.NewReader(body), enc.NewDecoder())
}

func documentBase(doc *goquery.Document, fallback *url.URL) *url.URL {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" || fallback == nil {
		return fallback
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return fallback
	}
	return fallback.ResolveReference(ref)
}

// absAttr reads attr from the first element of s and resolves it against base.
// It returns "" when the attribute is missing, blank or cannot be resolved.
func absAttr(s *goquery.Selection, base *url.URL, attr string) string {
	if s == nil {
		return ""
	}
	v, ok := s.Attr(attr)
	if !ok {
		return ""
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	ref, err := url.Parse(v)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if base == nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// absSrc prefers src and falls back to data-src for lazy loaded images.
func absSrc(s *goquery.Selection, base *url.URL) string {
	if src := absAttr(s, base, "src"); src != "" {
		return src
	}
	return absAttr(s, base, "data-src")
}
