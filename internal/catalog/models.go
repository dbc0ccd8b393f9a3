package catalog

import (
	"errors"
	"strings"

	"github.com/samber/mo"
)

const (
	ProviderYouTube = "youtube"
	ProviderSpotify = "spotify"
)

var (
	ErrCatalogQueryFailed = errors.New("catalog query failed")
	ErrInvalidTrack       = errors.New("track id and source id are required")
)

// Track is one playable media item. StreamURL stays absent until a stream
// resolver fills it in.
type Track struct {
	ID            string            `json:"id"`
	SourceID      string            `json:"sourceId"`
	Provider      string            `json:"provider"`
	Title         string            `json:"title"`
	ArtistName    string            `json:"artistName"`
	ThumbnailURL  string            `json:"thumbnailUrl"`
	DurationLabel string            `json:"durationLabel"`
	StreamURL     mo.Option[string] `json:"streamUrl"`
}

func NewTrack(id, sourceID, provider string) (Track, error) {
	id = strings.TrimSpace(id)
	sourceID = strings.TrimSpace(sourceID)
	if id == "" || sourceID == "" {
		return Track{}, ErrInvalidTrack
	}
	return Track{
		ID:            id,
		SourceID:      sourceID,
		Provider:      provider,
		DurationLabel: unknownDuration,
		StreamURL:     mo.None[string](),
	}, nil
}

// WithStreamURL returns a copy of t carrying the resolved stream locator.
func (t Track) WithStreamURL(u string) Track {
	t.StreamURL = mo.Some(u)
	return t
}

// WithoutStreamURL returns a copy of t with no stream locator.
func (t Track) WithoutStreamURL() Track {
	t.StreamURL = mo.None[string]()
	return t
}

func (t Track) Valid() bool {
	return t.ID != "" && t.SourceID != ""
}

type SearchResponse struct {
	Tracks []Track `json:"tracks"`
	Error  string  `json:"error,omitempty"`
}
