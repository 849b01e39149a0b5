package cartoony

// MediaKind classifies a content item as episodic or single playable unit.
type MediaKind string

const (
	Movie  MediaKind = "movie"
	Series MediaKind = "series"
)

// QualityP720 is the quality hint attached to links found in plain <video> tags.
const QualityP720 = 720

// Summary is a single card found on a listing or search page.
type Summary struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	PosterURL string    `json:"posterUrl,omitempty"`
	Kind      MediaKind `json:"kind"`
}

// Episode is one entry of a series episode list.
type Episode struct {
	URL   string
	Label string
	// Number is the first digit run found in Label, nil when there is none.
	Number *int
}

// Content is either a SeriesContent or a MovieContent.
type Content interface {
	Kind() MediaKind
	content()
}

// SeriesContent holds a non-empty, page-ordered episode list.
type SeriesContent struct {
	Episodes []Episode
}

func (SeriesContent) Kind() MediaKind { return Series }
func (SeriesContent) content()        {}

// MovieContent is a single playable unit. PlayableURL is the detail page itself.
type MovieContent struct {
	PlayableURL string
}

func (MovieContent) Kind() MediaKind { return Movie }
func (MovieContent) content()        {}

// Detail is the result of loading a detail page.
type Detail struct {
	Title     string
	URL       string
	PosterURL string
	Plot      string
	Content   Content
}

// Kind reports the media kind of the detail content.
func (d *Detail) Kind() MediaKind {
	if d.Content == nil {
		return Movie
	}
	return d.Content.Kind()
}

// StreamLink is a playable link discovered for a content URL.
type StreamLink struct {
	SourceName  string
	DisplayName string
	URL         string
	Referer     string
	Quality     int
	// Embed is set when URL is a third party player page rather than a media file.
	Embed bool
}

// Subtitle is a subtitle track discovered by a resolver.
type Subtitle struct {
	Lang string
	URL  string
}

// StreamLinkSink receives stream links as they are discovered.
type StreamLinkSink func(StreamLink)

// SubtitleSink receives subtitle tracks as they are discovered.
type SubtitleSink func(Subtitle)
