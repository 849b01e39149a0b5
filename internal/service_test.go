package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/ogero/stremio-cartoony/internal/cache"
	"github.com/ogero/stremio-cartoony/internal/common"
	"github.com/ogero/stremio-cartoony/pkg/cartoony"
	"github.com/ogero/stremio-cartoony/pkg/stremio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCartoony struct {
	mainPageCalls int
	summaries     []cartoony.Summary
	details       map[string]*cartoony.Detail
	links         []cartoony.StreamLink
	subs          []cartoony.Subtitle
	loadedLinks   []string
	err           error
}

func (m *mockCartoony) MainPage(_ context.Context, _ int) ([]cartoony.Summary, error) {
	m.mainPageCalls++
	return m.summaries, m.err
}

func (m *mockCartoony) Listing(_ context.Context, _ string) ([]cartoony.Summary, error) {
	return m.summaries, m.err
}

func (m *mockCartoony) Search(_ context.Context, _ string) ([]cartoony.Summary, error) {
	return m.summaries, m.err
}

func (m *mockCartoony) Load(_ context.Context, pageURL string) (*cartoony.Detail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.details[pageURL], nil
}

func (m *mockCartoony) LoadLinks(_ context.Context, pageURL string, subs cartoony.SubtitleSink, links cartoony.StreamLinkSink) error {
	m.loadedLinks = append(m.loadedLinks, pageURL)
	for _, s := range m.subs {
		subs(s)
	}
	for _, l := range m.links {
		links(l)
	}
	return m.err
}

func newTestService(t *testing.T, m *mockCartoony) StremioService {
	t.Helper()

	c, err := cache.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	svc, err := NewStremioService("stats", "https://www.cartoony.net", m, c, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	return svc
}

func TestStremioService_GetCatalog(t *testing.T) {
	m := &mockCartoony{summaries: []cartoony.Summary{
		{Title: "Show", URL: "https://cartoony.net/show/", PosterURL: "https://cartoony.net/show.jpg", Kind: cartoony.Series},
		{Title: "Film", URL: "https://cartoony.net/film/", Kind: cartoony.Movie},
	}}
	svc := newTestService(t, m)

	series, err := svc.GetCatalog(context.Background(), "series", 0)
	require.NoError(t, err)
	assert.Equal(t, []stremio.MetaPreview{{
		ID:     common.EncodeID("https://cartoony.net/show/"),
		Type:   "series",
		Name:   "Show",
		Poster: "https://cartoony.net/show.jpg",
	}}, series)

	movies, err := svc.GetCatalog(context.Background(), "movie", 0)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Film", movies[0].Name)

	assert.Equal(t, 1, m.mainPageCalls, "second catalog must come from cache")

	next, err := svc.GetCatalog(context.Background(), "movie", 100)
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.Equal(t, 1, m.mainPageCalls)
}

func TestStremioService_GetCatalogError(t *testing.T) {
	boom := errors.New("boom")
	svc := newTestService(t, &mockCartoony{err: boom})

	_, err := svc.GetCatalog(context.Background(), "series", 0)
	assert.ErrorIs(t, err, boom)
}

func TestStremioService_SearchBlank(t *testing.T) {
	m := &mockCartoony{err: errors.New("must not be called")}
	svc := newTestService(t, m)

	metas, err := svc.Search(context.Background(), "series", "   ")
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestStremioService_GetMeta(t *testing.T) {
	seriesURL := "https://cartoony.net/show/"
	movieURL := "https://cartoony.net/film/"
	one := 1
	m := &mockCartoony{details: map[string]*cartoony.Detail{
		seriesURL: {
			Title: "Show", URL: seriesURL, Plot: "plot",
			Content: cartoony.SeriesContent{Episodes: []cartoony.Episode{
				{URL: "https://cartoony.net/show/ep-1/", Label: "الحلقة 1", Number: &one},
				{URL: "", Label: "Episode"},
				{URL: "https://cartoony.net/show/special/", Label: "Episode"},
			}},
		},
		movieURL: {
			Title: "Film", URL: movieURL,
			Content: cartoony.MovieContent{PlayableURL: movieURL},
		},
	}}
	svc := newTestService(t, m)

	meta, err := svc.GetMeta(context.Background(), "series", common.EncodeID(seriesURL))
	require.NoError(t, err)
	assert.Equal(t, "series", meta.Type)
	assert.Equal(t, "plot", meta.Description)
	assert.Equal(t, "ar", meta.Language)
	assert.Equal(t, []stremio.Video{
		{ID: common.EncodeID("https://cartoony.net/show/ep-1/"), Title: "الحلقة 1", Season: 1, Episode: 1},
		{ID: common.EncodeID("https://cartoony.net/show/special/"), Title: "Episode", Season: 1, Episode: 3},
	}, meta.Videos)

	meta, err = svc.GetMeta(context.Background(), "movie", common.EncodeID(movieURL))
	require.NoError(t, err)
	assert.Equal(t, "movie", meta.Type)
	assert.Equal(t, common.EncodeID(movieURL), meta.ID)
	assert.Empty(t, meta.Videos)
}

func TestStremioService_RejectsForeignIDs(t *testing.T) {
	svc := newTestService(t, &mockCartoony{})

	for _, id := range []string{
		"tt123",
		common.EncodeID("https://evil.example/"),
		common.EncodeID("https://notcartoony.net/"),
	} {
		_, err := svc.GetMeta(context.Background(), "movie", id)
		assert.ErrorIs(t, err, ErrInvalidID, id)

		_, err = svc.GetStreams(context.Background(), "movie", id)
		assert.ErrorIs(t, err, ErrInvalidID, id)
	}
}

func TestStremioService_GetStreams(t *testing.T) {
	pageURL := "https://cdn.cartoony.net/show/ep-1/"
	m := &mockCartoony{
		subs: []cartoony.Subtitle{{Lang: "ara", URL: "https://subs.example/1.vtt"}},
		links: []cartoony.StreamLink{
			{SourceName: "Cartoony", DisplayName: "Cartoony", URL: "https://cdn.example/v.mp4", Referer: pageURL, Quality: 720},
			{SourceName: "host.example", DisplayName: "host.example", URL: "https://host.example/e/1", Quality: 720, Embed: true},
		},
	}
	svc := newTestService(t, m)

	streams, err := svc.GetStreams(context.Background(), "series", common.EncodeID(pageURL))
	require.NoError(t, err)

	assert.Equal(t, []string{pageURL}, m.loadedLinks)
	assert.Equal(t, []stremio.Stream{
		{
			Name:      "Cartoony",
			Title:     "Cartoony 720p",
			URL:       "https://cdn.example/v.mp4",
			Subtitles: []stremio.Subtitle{{ID: "1", Lang: "ara", URL: "https://subs.example/1.vtt"}},
			BehaviorHints: &stremio.BehaviorHints{
				NotWebReady:  true,
				ProxyHeaders: &stremio.ProxyHeaders{Request: map[string]string{"Referer": pageURL}},
			},
		},
		{
			Name:        "Cartoony",
			Title:       "host.example\n(external player)",
			ExternalURL: "https://host.example/e/1",
		},
	}, streams)
}

func TestStremioService_GetStreamsNothingFound(t *testing.T) {
	svc := newTestService(t, &mockCartoony{})

	streams, err := svc.GetStreams(context.Background(), "movie", common.EncodeID("https://cartoony.net/film/"))
	require.NoError(t, err)
	assert.Empty(t, streams)
	assert.NotNil(t, streams)
}

func TestStremioService_BroadcastStats(t *testing.T) {
	svc := newTestService(t, &mockCartoony{})

	err := svc.BroadcastStats(func(stats *Stats) error {
		stats.TitleInstant = "Show"
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = svc.BroadcastStats(func(stats *Stats) error { return boom })
	assert.ErrorIs(t, err, boom)
}
