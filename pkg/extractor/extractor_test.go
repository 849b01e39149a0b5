package extractor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ogero/stremio-cartoony/pkg/cartoony"
	"github.com/ogero/stremio-cartoony/pkg/extractor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	name  string
	hosts []string
	err   error
	got   []string
}

func (f *fakeExtractor) Name() string    { return f.name }
func (f *fakeExtractor) Hosts() []string { return f.hosts }

func (f *fakeExtractor) Extract(_ context.Context, embedURL, referer string, subs cartoony.SubtitleSink, links cartoony.StreamLinkSink) error {
	f.got = append(f.got, embedURL)
	if f.err != nil {
		return f.err
	}
	subs(cartoony.Subtitle{Lang: "ara", URL: "https://subs.example/1.vtt"})
	links(cartoony.StreamLink{SourceName: f.name, URL: embedURL + "/master.m3u8", Referer: referer})
	return nil
}

func TestRegistry_Resolve(t *testing.T) {
	host := &fakeExtractor{name: "host", hosts: []string{"Host.example"}}
	r := extractor.NewRegistry(host)

	tests := []struct {
		name      string
		embedURL  string
		wantLinks []cartoony.StreamLink
		wantSubs  int
	}{
		{
			name:     "direct media file",
			embedURL: "https://cdn.example/v/1.MP4?token=x",
			wantLinks: []cartoony.StreamLink{{
				SourceName: "Cartoony", DisplayName: "Cartoony",
				URL: "https://cdn.example/v/1.MP4?token=x", Referer: "https://cartoony.net/ep/", Quality: 720,
			}},
		},
		{
			name:     "registered host subdomain",
			embedURL: "https://www.host.example/e/abc",
			wantLinks: []cartoony.StreamLink{{
				SourceName: "host", URL: "https://www.host.example/e/abc/master.m3u8", Referer: "https://cartoony.net/ep/",
			}},
			wantSubs: 1,
		},
		{
			name:     "unknown host becomes embed link",
			embedURL: "https://player.other.example/e/abc",
			wantLinks: []cartoony.StreamLink{{
				SourceName: "player.other.example", DisplayName: "player.other.example",
				URL: "https://player.other.example/e/abc", Referer: "https://cartoony.net/ep/", Quality: 720, Embed: true,
			}},
		},
		{
			name:     "lookalike host is not matched",
			embedURL: "https://evilhost.example/e/abc",
			wantLinks: []cartoony.StreamLink{{
				SourceName: "evilhost.example", DisplayName: "evilhost.example",
				URL: "https://evilhost.example/e/abc", Referer: "https://cartoony.net/ep/", Quality: 720, Embed: true,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var links []cartoony.StreamLink
			var subs []cartoony.Subtitle
			err := r.Resolve(context.Background(), tt.embedURL, "https://cartoony.net/ep/",
				func(s cartoony.Subtitle) { subs = append(subs, s) },
				func(l cartoony.StreamLink) { links = append(links, l) })
			require.NoError(t, err)
			assert.Equal(t, tt.wantLinks, links)
			assert.Len(t, subs, tt.wantSubs)
		})
	}
}

func TestRegistry_ResolveWithoutExtractors(t *testing.T) {
	r := extractor.NewRegistry()

	var links []cartoony.StreamLink
	err := r.Resolve(context.Background(), "https://ok.example/videoembed/1", "https://cartoony.net/ep/", nil,
		func(l cartoony.StreamLink) { links = append(links, l) })

	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.True(t, links[0].Embed)
	assert.Equal(t, "https://ok.example/videoembed/1", links[0].URL)
}

func TestRegistry_ResolveExtractorError(t *testing.T) {
	r := extractor.NewRegistry()
	r.Register(&fakeExtractor{name: "broken", hosts: []string{"broken.example"}, err: errors.New("boom")})

	err := r.Resolve(context.Background(), "https://broken.example/e/1", "", nil, func(cartoony.StreamLink) {
		t.Fatal("no link expected")
	})
	assert.ErrorContains(t, err, "boom")
}

func TestRegistry_ResolveInvalidURL(t *testing.T) {
	err := extractor.NewRegistry().Resolve(context.Background(), "://bad", "", nil, nil)
	assert.Error(t, err)
}
