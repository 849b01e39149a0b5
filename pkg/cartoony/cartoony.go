package cartoony

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBaseURL is the site origin.
const DefaultBaseURL = "https://cartoony.net"

// Resolver turns a third party embed URL into stream links and subtitles.
type Resolver interface {
	Resolve(ctx context.Context, embedURL, referer string, subs SubtitleSink, links StreamLinkSink) error
}

// Cartoony defines the methods to scrape the Cartoony site.
type Cartoony interface {
	// MainPage lists the latest items of the home page.
	MainPage(ctx context.Context, page int) ([]Summary, error)
	// Listing lists the cards found on an arbitrary listing page.
	Listing(ctx context.Context, pageURL string) ([]Summary, error)
	// Search lists the cards of the site search results for query.
	Search(ctx context.Context, query string) ([]Summary, error)
	// Load fetches a detail page.
	Load(ctx context.Context, pageURL string) (*Detail, error)
	// LoadLinks discovers the stream links of an episode or movie URL and pushes them into links.
	LoadLinks(ctx context.Context, pageURL string, subs SubtitleSink, links StreamLinkSink) error
}

// NewCartoony creates a new instance of the Cartoony scraper.
// A nil httpClient uses a plain client with a 10s timeout.
func NewCartoony(baseURL string, httpClient *http.Client, resolver Resolver) Cartoony {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Second * 10}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &client{
		httpClient: httpClient,
		resolver:   resolver,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type client struct {
	httpClient *http.Client
	resolver   Resolver
	baseURL    string
}

// MainPage lists the latest items of the home page.
// The site exposes no stable pagination, page is accepted but the first page is always fetched.
func (c *client) MainPage(ctx context.Context, page int) ([]Summary, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "cartoony.Cartoony.MainPage")
	defer span.End()
	span.SetAttributes(attribute.Int("page", page))

	return c.listing(ctx, c.baseURL+"/")
}

// Listing lists the cards found on an arbitrary listing page.
func (c *client) Listing(ctx context.Context, pageURL string) ([]Summary, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "cartoony.Cartoony.Listing")
	defer span.End()

	return c.listing(ctx, pageURL)
}

// Search lists the cards of the site search results for query.
func (c *client) Search(ctx context.Context, query string) ([]Summary, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "cartoony.Cartoony.Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	return c.listing(ctx, c.SearchURL(query))
}

// SearchURL builds the site search URL for query.
func (c *client) SearchURL(query string) string {
	return c.baseURL + "/?" + url.Values{"s": {query}}.Encode()
}

func (c *client) listing(ctx context.Context, pageURL string) ([]Summary, error) {
	span := trace.SpanFromContext(ctx)

	doc, err := c.fetchDocument(ctx, pageURL, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing %s: %w", pageURL, err)
	}

	items := ParseListing(doc)
	span.SetAttributes(attribute.Int("items", len(items)))

	return items, nil
}

// Load fetches a detail page.
func (c *client) Load(ctx context.Context, pageURL string) (*Detail, error) {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "cartoony.Cartoony.Load")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageURL))

	doc, err := c.fetchDocument(ctx, pageURL, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch detail %s: %w", pageURL, err)
	}

	d := ParseDetail(doc, pageURL)
	span.SetAttributes(attribute.String("kind", string(d.Kind())))

	return d, nil
}

// LoadLinks discovers the stream links of an episode or movie URL and pushes them into links.
//
// The first iframe of the page is followed one level down, the innermost player URL found is
// handed to the resolver. Without any iframe, plain <video><source> tags are emitted directly.
// Finding nothing is not an error, and neither is an iframe fetch or resolver failure.
func (c *client) LoadLinks(ctx context.Context, pageURL string, subs SubtitleSink, links StreamLinkSink) error {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "cartoony.Cartoony.LoadLinks")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageURL))

	if links == nil {
		links = func(StreamLink) {}
	}
	if subs == nil {
		subs = func(Subtitle) {}
	}

	doc, err := c.fetchDocument(ctx, pageURL, "")
	if err != nil {
		return fmt.Errorf("failed to fetch page %s: %w", pageURL, err)
	}

	if frame := findIframe(doc); frame != "" {
		// A failed iframe fetch still delegates frame itself.
		embedURL := frame
		inner, err := c.fetchDocument(ctx, frame, pageURL)
		if err != nil {
			span.RecordError(err)
		} else if nested := findIframe(inner); nested != "" {
			embedURL = nested
		}
		span.SetAttributes(attribute.String("embed", embedURL))

		if c.resolver == nil {
			return nil
		}
		if err := c.resolver.Resolve(ctx, embedURL, pageURL, subs, links); err != nil {
			span.RecordError(err)
		}
		return nil
	}

	sources := videoSources(doc)
	span.SetAttributes(attribute.Int("video.sources", len(sources)))
	for _, src := range sources {
		links(StreamLink{
			SourceName:  Name,
			DisplayName: Name,
			URL:         src,
			Referer:     pageURL,
			Quality:     QualityP720,
		})
	}

	return nil
}
