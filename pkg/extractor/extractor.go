// Package extractor resolves third party player URLs into stream links.
//
// Host specific extractors are registered on a Registry and picked by hostname.
// URLs no extractor claims are emitted as embed links for the player to open itself.
package extractor

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/ogero/stremio-cartoony/pkg/cartoony"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Extractor resolves URLs of the hosts it declares.
type Extractor interface {
	// Name is used as the stream link source name.
	Name() string
	// Hosts lists the hostnames handled, subdomains included.
	Hosts() []string
	// Extract pushes the links and subtitles found for embedURL.
	Extract(ctx context.Context, embedURL, referer string, subs cartoony.SubtitleSink, links cartoony.StreamLinkSink) error
}

// Registry dispatches embed URLs to registered extractors.
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a Registry. Extractors registered first win on overlapping hosts.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Register adds an extractor.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Resolve implements cartoony.Resolver.
func (r *Registry) Resolve(ctx context.Context, embedURL, referer string, subs cartoony.SubtitleSink, links cartoony.StreamLinkSink) error {
	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "extractor.Registry.Resolve")
	defer span.End()

	u, err := url.Parse(embedURL)
	if err != nil {
		return fmt.Errorf("failed to url.Parse: %w", err)
	}
	span.SetAttributes(attribute.String("embed.host", u.Hostname()))

	if IsMediaURL(u) {
		links(cartoony.StreamLink{
			SourceName:  cartoony.Name,
			DisplayName: cartoony.Name,
			URL:         embedURL,
			Referer:     referer,
			Quality:     cartoony.QualityP720,
		})
		return nil
	}

	if e := r.lookup(u.Hostname()); e != nil {
		span.SetAttributes(attribute.String("extractor", e.Name()))
		if err := e.Extract(ctx, embedURL, referer, subs, links); err != nil {
			return fmt.Errorf("failed to %s.Extract: %w", e.Name(), err)
		}
		return nil
	}

	links(cartoony.StreamLink{
		SourceName:  u.Hostname(),
		DisplayName: u.Hostname(),
		URL:         embedURL,
		Referer:     referer,
		Quality:     cartoony.QualityP720,
		Embed:       true,
	})
	return nil
}

func (r *Registry) lookup(host string) Extractor {
	host = strings.ToLower(host)
	for _, e := range r.extractors {
		for _, h := range e.Hosts() {
			h = strings.ToLower(h)
			if host == h || strings.HasSuffix(host, "."+h) {
				return e
			}
		}
	}
	return nil
}

var mediaExtensions = map[string]struct{}{
	".mp4":  {},
	".m3u8": {},
	".mkv":  {},
	".webm": {},
}

// IsMediaURL reports whether u points straight at a media file or playlist.
func IsMediaURL(u *url.URL) bool {
	_, ok := mediaExtensions[strings.ToLower(path.Ext(u.Path))]
	return ok
}
