package stremio

// Manifest represents a Stremio addon manifest
type Manifest struct {
	ID          string    `json:"id"`
	Version     string    `json:"version"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Types       []string  `json:"types"`
	IDPrefixes  []string  `json:"idPrefixes"`
	Catalogs    []Catalog `json:"catalogs"`
	Resources   []string  `json:"resources"`
}

// Catalog represents a Stremio manifest catalog definition
type Catalog struct {
	ID    string  `json:"id"`
	Type  string  `json:"type"`
	Name  string  `json:"name"`
	Extra []Extra `json:"extra,omitempty"`
}

// Extra represents a supported extra filter of a catalog
type Extra struct {
	Name       string   `json:"name"`
	Options    []string `json:"options,omitempty"`
	IsRequired bool     `json:"isRequired,omitempty"`
}

// Meta represents a Stremio content item descriptor
type Meta struct {
	ID          string   `json:"id,omitempty"`
	Type        string   `json:"type,omitempty"`
	Name        string   `json:"name,omitempty"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Description string   `json:"description,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	IMDBRating  string   `json:"imdbRating,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Language    string   `json:"language,omitempty"`
	Videos      []Video  `json:"videos,omitempty"`
}

// Video represents one episode entry of a series Meta
type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
	Released  string `json:"released,omitempty"`
	Overview  string `json:"overview,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Stream represents one playable source of a content item
type Stream struct {
	Name          string               `json:"name,omitempty"`
	Title         string               `json:"title,omitempty"`
	URL           string               `json:"url"`
	BehaviorHints *StreamBehaviorHints `json:"behaviorHints,omitempty"`
}

// StreamBehaviorHints carries playback hints for a Stream
type StreamBehaviorHints struct {
	NotWebReady bool `json:"notWebReady,omitempty"`
}

// CatalogResponse is the envelope of a catalog resource response
type CatalogResponse struct {
	Metas []Meta `json:"metas"`
}

// MetaResponse is the envelope of a meta resource response
type MetaResponse struct {
	Meta Meta `json:"meta"`
}

// StreamsResponse is the envelope of a stream resource response
type StreamsResponse struct {
	Streams []Stream `json:"streams"`
}
