package stremio

// Manifest represents a Stremio addon manifest
type Manifest struct {
	ID          string        `json:"id"`
	Version     string        `json:"version"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Logo        string        `json:"logo,omitempty"`
	Types       []string      `json:"types"`
	IDPrefixes  []string      `json:"idPrefixes"`
	Catalogs    []CatalogItem `json:"catalogs"`
	Resources   []string      `json:"resources"`
}

// CatalogItem represents a Stremio manifest catalog item
type CatalogItem struct {
	ID    string             `json:"id"`
	Type  string             `json:"type"`
	Name  string             `json:"name,omitempty"`
	Extra []CatalogItemExtra `json:"extra,omitempty"`
}

// CatalogItemExtra represents an extra property a catalog accepts, like search or skip
type CatalogItemExtra struct {
	Name       string `json:"name"`
	IsRequired bool   `json:"isRequired,omitempty"`
}

// MetaPreview represents a catalog entry
type MetaPreview struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Poster string `json:"poster,omitempty"`
}

// Meta represents the full metadata of a movie or series
type Meta struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Poster      string  `json:"poster,omitempty"`
	Background  string  `json:"background,omitempty"`
	Description string  `json:"description,omitempty"`
	Language    string  `json:"language,omitempty"`
	Website     string  `json:"website,omitempty"`
	Videos      []Video `json:"videos,omitempty"`
}

// Video represents a series episode
type Video struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Season   int    `json:"season"`
	Episode  int    `json:"episode"`
	Released string `json:"released,omitempty"`
}

// Stream represents a Stremio stream
type Stream struct {
	Name          string         `json:"name,omitempty"`
	Title         string         `json:"title,omitempty"`
	URL           string         `json:"url,omitempty"`
	ExternalURL   string         `json:"externalUrl,omitempty"`
	Subtitles     []Subtitle     `json:"subtitles,omitempty"`
	BehaviorHints *BehaviorHints `json:"behaviorHints,omitempty"`
}

// BehaviorHints tweaks how Stremio plays a stream
type BehaviorHints struct {
	NotWebReady  bool          `json:"notWebReady,omitempty"`
	BingeGroup   string        `json:"bingeGroup,omitempty"`
	ProxyHeaders *ProxyHeaders `json:"proxyHeaders,omitempty"`
}

// ProxyHeaders holds headers Stremio sends when proxying a stream
type ProxyHeaders struct {
	Request map[string]string `json:"request,omitempty"`
}

// Subtitle represents a Stremio subtitle
type Subtitle struct {
	ID   string `json:"id"`
	Lang string `json:"lang"`
	URL  string `json:"url"`
}

// Metas is the catalog response envelope
type Metas struct {
	Metas []MetaPreview `json:"metas"`
}

// MetaResponse is the meta response envelope
type MetaResponse struct {
	Meta Meta `json:"meta"`
}

// Streams is the stream response envelope
type Streams struct {
	Streams []Stream `json:"streams"`
}
