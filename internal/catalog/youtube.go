package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const maxYouTubeResults = 50

type YouTubeClient struct {
	apiKey        string
	searchURL     string
	videosURL     string
	trendingQuery string
	http          *http.Client
}

func NewYouTubeClient(apiKey, searchURL, videosURL, trendingQuery string) *YouTubeClient {
	if videosURL == "" {
		videosURL = "https://www.googleapis.com/youtube/v3/videos"
		if strings.HasSuffix(searchURL, "/search") {
			videosURL = strings.TrimSuffix(searchURL, "/search") + "/videos"
		}
	}
	return &YouTubeClient{
		apiKey:        apiKey,
		searchURL:     searchURL,
		videosURL:     videosURL,
		trendingQuery: trendingQuery,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *YouTubeClient) Name() string { return ProviderYouTube }

type ytSearchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
		Thumbnails   struct {
			Default struct {
				URL string `json:"url"`
			} `json:"default"`
			Medium struct {
				URL string `json:"url"`
			} `json:"medium"`
			High struct {
				URL string `json:"url"`
			} `json:"high"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

type ytSearchResponse struct {
	Items []ytSearchItem `json:"items"`
}

func (c *YouTubeClient) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit <= 0 || limit > maxYouTubeResults {
		limit = maxYouTubeResults
	}

	val := url.Values{}
	val.Set("part", "snippet")
	val.Set("type", "video")
	val.Set("videoCategoryId", "10")
	val.Set("order", "relevance")
	val.Set("maxResults", fmt.Sprint(limit))
	val.Set("q", query)
	val.Set("key", c.apiKey)

	var body ytSearchResponse
	if err := c.getJSON(ctx, c.searchURL+"?"+val.Encode(), &body); err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	items := body.Items
	if len(items) > limit {
		items = items[:limit]
	}

	out := make([]Track, 0, len(items))
	for _, it := range items {
		t, err := trackFromSearchItem(it)
		if err != nil {
			log.WithFields(log.Fields{"component": "catalog", "provider": ProviderYouTube}).
				Warnf("skipping search entry %q: %v", it.Snippet.Title, err)
			continue
		}
		out = append(out, t)
	}

	if len(out) > 0 {
		ids := lo.Map(out, func(t Track, _ int) string { return t.SourceID })
		durations, err := c.fetchDurations(ctx, ids)
		if err != nil {
			log.WithField("component", "catalog").Warnf("youtube fetch durations: %v", err)
		}
		for i := range out {
			if d, ok := durations[out[i].SourceID]; ok {
				out[i].DurationLabel = FormatDuration(d)
			}
		}
	}

	return out, nil
}

func (c *YouTubeClient) Trending(ctx context.Context, limit int) ([]Track, error) {
	return c.Search(ctx, c.trendingQuery, limit)
}

func trackFromSearchItem(it ytSearchItem) (Track, error) {
	t, err := NewTrack(it.ID.VideoID, it.ID.VideoID, ProviderYouTube)
	if err != nil {
		return Track{}, err
	}

	thumbs := it.Snippet.Thumbnails
	thumb := thumbs.High.URL
	if thumb == "" {
		thumb = thumbs.Medium.URL
	}
	if thumb == "" {
		thumb = thumbs.Default.URL
	}

	t.ArtistName, t.Title = SplitTitleArtist(it.Snippet.Title, it.Snippet.ChannelTitle)
	t.ThumbnailURL = thumb
	return t, nil
}

type ytVideosResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (c *YouTubeClient) fetchDurations(ctx context.Context, ids []string) (map[string]time.Duration, error) {
	val := url.Values{}
	val.Set("part", "contentDetails")
	val.Set("id", strings.Join(ids, ","))
	val.Set("key", c.apiKey)

	var body ytVideosResponse
	if err := c.getJSON(ctx, c.videosURL+"?"+val.Encode(), &body); err != nil {
		return nil, err
	}

	durations := make(map[string]time.Duration, len(body.Items))
	for _, item := range body.Items {
		if d := parseISO8601Duration(item.ContentDetails.Duration); d > 0 {
			durations[item.ID] = d
		}
	}
	return durations, nil
}

func (c *YouTubeClient) getJSON(ctx context.Context, reqURL string, out any) error {
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
		return fmt.Errorf("youtube status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
