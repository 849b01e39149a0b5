package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/ogero/stremio-cartoony/internal/cache"
	"github.com/ogero/stremio-cartoony/internal/common"
	"github.com/ogero/stremio-cartoony/internal/loki"
	"github.com/ogero/stremio-cartoony/pkg/cartoony"
	"github.com/ogero/stremio-cartoony/pkg/stremio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	catalogCacheTTL = time.Hour
	metaCacheTTL    = 6 * time.Hour
)

// ErrInvalidID is returned for ids that do not point at the scraped site.
var ErrInvalidID = errors.New("invalid id")

// Stats represents usage data broadcast to the landing page websocket.
type Stats struct {
	// CatalogsCount24 is the number of catalog and search requests in the last 24 hours.
	CatalogsCount24 int `json:"catalogsCount24"`
	// StreamsCount24 is the number of stream requests in the last 24 hours.
	StreamsCount24 int `json:"streamsCount24"`
	// TitleInstant is the last title somebody opened.
	TitleInstant string `json:"titleInstant"`
}

// StremioService maps Stremio resources onto the Cartoony scraper.
type StremioService interface {
	// Handler handles incoming HTTP requests via a websocket handler
	http.Handler
	// GetCatalog lists the latest items of the given content type.
	GetCatalog(ctx context.Context, contentType string, skip int) ([]stremio.MetaPreview, error)
	// Search lists the search results of the given content type.
	Search(ctx context.Context, contentType string, query string) ([]stremio.MetaPreview, error)
	// GetMeta loads the details of an item by its Stremio id.
	GetMeta(ctx context.Context, contentType string, id string) (*stremio.Meta, error)
	// GetStreams resolves the streams of a movie or episode by its Stremio id.
	GetStreams(ctx context.Context, contentType string, id string) ([]stremio.Stream, error)
	// BroadcastStats updates and publishes statistical data to a websocket channel.
	// Accepts a function to modify stats and returns an error if updating or publishing fails.
	BroadcastStats(statsUpdater func(stats *Stats) error) error
	// StartPollingStats fetches and broadcasts statistical data every interval until ctx is done.
	StartPollingStats(ctx context.Context, interval time.Duration)
	// Shutdown stops the websocket node.
	Shutdown(ctx context.Context) error
}

type stremioService struct {
	statsWebsocketChannel string
	cartoony              cartoony.Cartoony
	cache                 *cache.Cache
	loki                  loki.Loki
	siteHost              string

	node             *centrifuge.Node
	websocketHandler *centrifuge.WebsocketHandler
	statsMutex       *sync.Mutex
	stats            Stats
}

// NewStremioService creates a new instance of StremioService.
// siteURL restricts which URLs incoming ids may point at. loki may be nil.
func NewStremioService(statsWebsocketChannel string, siteURL string, cartoony cartoony.Cartoony, cache *cache.Cache, loki loki.Loki) (StremioService, error) {
	u, err := url.Parse(siteURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid site url %q", siteURL)
	}

	svc := &stremioService{
		statsWebsocketChannel: statsWebsocketChannel,
		cartoony:              cartoony,
		cache:                 cache,
		loki:                  loki,
		siteHost:              strings.ToLower(strings.TrimPrefix(u.Hostname(), "www.")),

		statsMutex: &sync.Mutex{},
	}

	node, err := centrifuge.New(centrifuge.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to centrifuge.New: %w", err)
	}
	svc.node = node

	node.OnConnecting(func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		return centrifuge.ConnectReply{}, nil
	})

	node.OnConnect(func(client *centrifuge.Client) {
		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			if e.Channel != statsWebsocketChannel {
				cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
				return
			}

			cb(centrifuge.SubscribeReply{
				Options: centrifuge.SubscribeOptions{},
			}, nil)

			go func() {
				err := svc.BroadcastStats(func(data *Stats) error { return nil })
				if err != nil {
					common.Log.Warn("Failed to internal.StremioService.BroadcastStats", "err", err)
				}
			}()
		})
	})

	if err := node.Run(); err != nil {
		return nil, fmt.Errorf("failed to centrifuge.Node.Run: %w", err)
	}

	svc.websocketHandler = centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		ReadBufferSize:     1024,
		UseWriteBufferPool: true,
	})

	return svc, nil
}

type summaries struct {
	Items []cartoony.Summary `json:"items"`
}

// GetCatalog lists the latest items of the given content type.
// The site cannot paginate, so any skip past the first page yields an empty page.
func (s *stremioService) GetCatalog(ctx context.Context, contentType string, skip int) ([]stremio.MetaPreview, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.StremioService.GetCatalog")
	defer span.End()
	span.SetAttributes(attribute.String("type", contentType), attribute.Int("skip", skip))

	if skip > 0 {
		return []stremio.MetaPreview{}, nil
	}

	items, err := s.memoizeSummaries(ctx, "cartoony.catalog", "latest", func() ([]cartoony.Summary, error) {
		return s.cartoony.MainPage(ctx, 1)
	})
	if err != nil {
		return nil, err
	}

	return s.previews(contentType, items), nil
}

// Search lists the search results of the given content type.
func (s *stremioService) Search(ctx context.Context, contentType string, query string) ([]stremio.MetaPreview, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.StremioService.Search")
	defer span.End()
	span.SetAttributes(attribute.String("type", contentType), attribute.String("query", query))

	query = strings.TrimSpace(query)
	if query == "" {
		return []stremio.MetaPreview{}, nil
	}

	items, err := s.memoizeSummaries(ctx, "cartoony.search", strings.ToLower(query), func() ([]cartoony.Summary, error) {
		return s.cartoony.Search(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	return s.previews(contentType, items), nil
}

func (s *stremioService) memoizeSummaries(ctx context.Context, keyPrefix, key string, fetch func() ([]cartoony.Summary, error)) ([]cartoony.Summary, error) {
	span := trace.SpanFromContext(ctx)

	cacheKey := fmt.Sprintf("%s : %s", keyPrefix, key)
	result, hit, err := cache.Memoize[summaries](s.cache, cacheKey, catalogCacheTTL, func() (*summaries, error) {
		items, err := fetch()
		s.countScrape(ctx, keyPrefix, err)
		if err != nil {
			return nil, fmt.Errorf("failed to scrape %s: %w", keyPrefix, err)
		}
		return &summaries{Items: items}, nil
	})
	s.countCacheGet(ctx, keyPrefix, hit)
	span.SetAttributes(attribute.String("cache."+keyPrefix+".result", cacheResult(hit)))
	if err != nil {
		return nil, err
	}

	return result.Items, nil
}

func (s *stremioService) previews(contentType string, items []cartoony.Summary) []stremio.MetaPreview {
	metas := make([]stremio.MetaPreview, 0, len(items))
	for _, item := range items {
		if string(item.Kind) != contentType {
			continue
		}
		metas = append(metas, stremio.MetaPreview{
			ID:     common.EncodeID(item.URL),
			Type:   string(item.Kind),
			Name:   item.Title,
			Poster: item.PosterURL,
		})
	}
	return metas
}

// GetMeta loads the details of an item by its Stremio id.
func (s *stremioService) GetMeta(ctx context.Context, contentType string, id string) (*stremio.Meta, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.StremioService.GetMeta")
	defer span.End()
	span.SetAttributes(attribute.String("type", contentType), attribute.String("id", id))

	pageURL, err := s.decodeID(id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("url", pageURL))

	cacheKey := fmt.Sprintf("cartoony.meta : %s", pageURL)
	meta, hit, err := cache.Memoize[stremio.Meta](s.cache, cacheKey, metaCacheTTL, func() (*stremio.Meta, error) {
		detail, err := s.cartoony.Load(ctx, pageURL)
		s.countScrape(ctx, "cartoony.meta", err)
		if err != nil {
			return nil, fmt.Errorf("failed to cartoony.Cartoony.Load: %w", err)
		}
		return toMeta(id, detail), nil
	})
	s.countCacheGet(ctx, "cartoony.meta", hit)
	span.SetAttributes(attribute.String("cache.cartoony.meta.result", cacheResult(hit)))
	if err != nil {
		return nil, err
	}

	go func() {
		err := s.BroadcastStats(func(data *Stats) error {
			data.TitleInstant = meta.Name
			return nil
		})
		if err != nil {
			common.Log.WarnContext(ctx, "Failed to internal.StremioService.BroadcastStats", "err", err)
		}
	}()

	return meta, nil
}

func toMeta(id string, d *cartoony.Detail) *stremio.Meta {
	meta := &stremio.Meta{
		ID:          id,
		Type:        string(d.Kind()),
		Name:        d.Title,
		Poster:      d.PosterURL,
		Background:  d.PosterURL,
		Description: d.Plot,
		Language:    cartoony.Lang,
		Website:     d.URL,
	}

	switch c := d.Content.(type) {
	case cartoony.SeriesContent:
		meta.Videos = make([]stremio.Video, 0, len(c.Episodes))
		for i, ep := range c.Episodes {
			if ep.URL == "" {
				continue
			}
			number := i + 1
			if ep.Number != nil {
				number = *ep.Number
			}
			meta.Videos = append(meta.Videos, stremio.Video{
				ID:      common.EncodeID(ep.URL),
				Title:   ep.Label,
				Season:  1,
				Episode: number,
			})
		}
	case cartoony.MovieContent:
		// Streams are requested with the meta id itself, which already encodes PlayableURL.
	}

	return meta
}

// GetStreams resolves the streams of a movie or episode by its Stremio id.
// Streams are never cached, player links expire.
func (s *stremioService) GetStreams(ctx context.Context, contentType string, id string) ([]stremio.Stream, error) {

	ctx, span := trace.SpanFromContext(ctx).TracerProvider().Tracer("").Start(ctx, "internal.StremioService.GetStreams")
	defer span.End()
	span.SetAttributes(attribute.String("type", contentType), attribute.String("id", id))

	pageURL, err := s.decodeID(id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("url", pageURL))

	var links []cartoony.StreamLink
	var subs []cartoony.Subtitle
	err = s.cartoony.LoadLinks(ctx, pageURL,
		func(sub cartoony.Subtitle) { subs = append(subs, sub) },
		func(link cartoony.StreamLink) { links = append(links, link) },
	)
	s.countScrape(ctx, "cartoony.links", err)
	if err != nil {
		return nil, fmt.Errorf("failed to cartoony.Cartoony.LoadLinks: %w", err)
	}

	streams := toStreams(links, subs)
	span.SetAttributes(attribute.Int("streams", len(streams)), attribute.Int("subtitles", len(subs)))
	common.StreamsResolvedTotal.Add(ctx, int64(len(streams)))
	common.Log.InfoContext(ctx, "Resolved streams", "url", pageURL, "streams", len(streams), "subtitles", len(subs))

	return streams, nil
}

func toStreams(links []cartoony.StreamLink, subs []cartoony.Subtitle) []stremio.Stream {
	var subtitles []stremio.Subtitle
	for i, sub := range subs {
		subtitles = append(subtitles, stremio.Subtitle{
			ID:   strconv.Itoa(i + 1),
			Lang: sub.Lang,
			URL:  sub.URL,
		})
	}

	streams := make([]stremio.Stream, 0, len(links))
	for _, link := range links {
		if link.Embed {
			streams = append(streams, stremio.Stream{
				Name:        cartoony.Name,
				Title:       link.DisplayName + "\n(external player)",
				ExternalURL: link.URL,
			})
			continue
		}

		stream := stremio.Stream{
			Name:      cartoony.Name,
			Title:     fmt.Sprintf("%s %dp", link.DisplayName, link.Quality),
			URL:       link.URL,
			Subtitles: subtitles,
		}
		if link.Referer != "" {
			stream.BehaviorHints = &stremio.BehaviorHints{
				NotWebReady: true,
				ProxyHeaders: &stremio.ProxyHeaders{
					Request: map[string]string{"Referer": link.Referer},
				},
			}
		}
		streams = append(streams, stream)
	}

	return streams
}

// decodeID returns the page URL of id, rejecting URLs outside the scraped site.
func (s *stremioService) decodeID(id string) (string, error) {
	pageURL, err := common.DecodeID(id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidID, err)
	}

	u, _ := url.Parse(pageURL)
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	if host != s.siteHost && !strings.HasSuffix(host, "."+s.siteHost) {
		return "", fmt.Errorf("%w: host %s is not %s", ErrInvalidID, host, s.siteHost)
	}

	return pageURL, nil
}

func (s *stremioService) countCacheGet(ctx context.Context, keyPrefix string, hit bool) {
	common.CacheGetsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key.prefix", keyPrefix),
		attribute.String("result", cacheResult(hit)),
	))
}

func (s *stremioService) countScrape(ctx context.Context, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	common.ScrapesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("result", result),
	))
}

func cacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// BroadcastStats updates and publishes statistical data to a websocket channel.
// Accepts a function to modify stats and returns an error if updating or publishing fails.
func (s *stremioService) BroadcastStats(statsUpdater func(stats *Stats) error) error {
	stats, err := func() (Stats, error) {
		s.statsMutex.Lock()
		defer s.statsMutex.Unlock()
		err := statsUpdater(&s.stats)
		if err != nil {
			return Stats{}, err
		}
		return s.stats, nil
	}()
	if err != nil {
		return fmt.Errorf("failed to statsUpdater: %w", err)
	}

	b, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to json.Marshal: %w", err)
	}

	_, err = s.node.Publish(s.statsWebsocketChannel, b)
	if err != nil {
		return fmt.Errorf("failed to centrifuge.Node.Publish: %w", err)
	}

	return nil
}

// StartPollingStats fetches and broadcasts statistical data every interval until ctx is done.
func (s *stremioService) StartPollingStats(ctx context.Context, interval time.Duration) {
	if s.loki == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		catalogs, err := s.loki.GetCatalogs24(ctx)
		if err != nil {
			common.Log.Error("Failed to loki.Loki.GetCatalogs24", "err", err)
		}
		streams, err := s.loki.GetStreams24(ctx)
		if err != nil {
			common.Log.Error("Failed to loki.Loki.GetStreams24", "err", err)
		}
		err = s.BroadcastStats(func(stats *Stats) error {
			if catalogs != 0 {
				stats.CatalogsCount24 = catalogs
			}
			if streams != 0 {
				stats.StreamsCount24 = streams
			}
			return nil
		})
		if err != nil {
			common.Log.Warn("Failed to internal.StremioService.BroadcastStats", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ServeHTTP handles incoming HTTP requests via a websocket handler
func (s *stremioService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	newCtx := centrifuge.SetCredentials(ctx, &centrifuge.Credentials{})
	r = r.WithContext(newCtx)

	s.websocketHandler.ServeHTTP(w, r)
}

// Shutdown stops the websocket node.
func (s *stremioService) Shutdown(ctx context.Context) error {
	return s.node.Shutdown(ctx)
}
