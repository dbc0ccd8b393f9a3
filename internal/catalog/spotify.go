package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const maxSpotifyResults = 50

var ErrSpotifyNotConfigured = errors.New("spotify credentials are not configured")

type SpotifyClient struct {
	apiURL        string
	trendingQuery string
	http          *http.Client
}

// NewSpotifyClient authenticates with the client credentials grant. The
// base client is used both for token exchange and API calls; nil means a
// default client with a 10s timeout.
func NewSpotifyClient(clientID, clientSecret, tokenURL, apiURL, trendingQuery string, base *http.Client) (*SpotifyClient, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrSpotifyNotConfigured
	}
	if base == nil {
		base = &http.Client{Timeout: 10 * time.Second}
	}

	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := cc.Client(ctx)
	httpClient.Timeout = base.Timeout

	return &SpotifyClient{
		apiURL:        strings.TrimSuffix(apiURL, "/"),
		trendingQuery: trendingQuery,
		http:          httpClient,
	}, nil
}

func (c *SpotifyClient) Name() string { return ProviderSpotify }

type spotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []spotifyArtist `json:"artists"`
	Album   struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	PreviewURL *string `json:"preview_url"`
	DurationMs int     `json:"duration_ms"`
}

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyPlaylistItem struct {
	Track *spotifyTrack `json:"track"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []*spotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyPlaylistResponse struct {
	Items []spotifyPlaylistItem `json:"items"`
}

func (c *SpotifyClient) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 || limit > maxSpotifyResults {
		limit = maxSpotifyResults
	}

	val := url.Values{}
	val.Set("q", query)
	val.Set("type", "track")
	val.Set("limit", fmt.Sprint(limit))

	var body spotifySearchResponse
	if err := c.getJSON(ctx, c.apiURL+"/search?"+val.Encode(), &body); err != nil {
		return nil, fmt.Errorf("spotify search: %w", err)
	}
	return c.mapTracks(body.Tracks.Items), nil
}

func (c *SpotifyClient) Trending(ctx context.Context, limit int) ([]Track, error) {
	return c.Search(ctx, c.trendingQuery, limit)
}

// PlaylistTracks lists the tracks of a public playlist.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error) {
	if strings.TrimSpace(playlistID) == "" {
		return []Track{}, nil
	}

	var body spotifyPlaylistResponse
	if err := c.getJSON(ctx, c.apiURL+"/playlists/"+url.PathEscape(playlistID)+"/tracks", &body); err != nil {
		return nil, fmt.Errorf("spotify playlist tracks: %w", err)
	}
	items := lo.Map(body.Items, func(it spotifyPlaylistItem, _ int) *spotifyTrack {
		return it.Track
	})
	return c.mapTracks(items), nil
}

// PreviewURL looks up the preview stream of a single track. An empty string
// means the track has no preview.
func (c *SpotifyClient) PreviewURL(ctx context.Context, trackID string) (string, error) {
	var body spotifyTrack
	if err := c.getJSON(ctx, c.apiURL+"/tracks/"+url.PathEscape(trackID), &body); err != nil {
		return "", fmt.Errorf("spotify track: %w", err)
	}
	if body.PreviewURL == nil {
		return "", nil
	}
	return *body.PreviewURL, nil
}

func (c *SpotifyClient) mapTracks(items []*spotifyTrack) []Track {
	out := make([]Track, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		t, err := NewTrack(it.ID, it.ID, ProviderSpotify)
		if err != nil {
			log.WithFields(log.Fields{"component": "catalog", "provider": ProviderSpotify}).
				Warnf("skipping track %q: %v", it.Name, err)
			continue
		}
		names := lo.FilterMap(it.Artists, func(a spotifyArtist, _ int) (string, bool) {
			return a.Name, a.Name != ""
		})
		t.ArtistName = unknownArtist
		if len(names) > 0 {
			t.ArtistName = strings.Join(names, ", ")
		}
		t.Title = cleanTitle(it.Name)
		if len(it.Album.Images) > 0 {
			t.ThumbnailURL = it.Album.Images[0].URL
		}
		t.DurationLabel = FormatDuration(time.Duration(it.DurationMs) * time.Millisecond)
		out = append(out, t)
	}
	return out
}

func (c *SpotifyClient) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
