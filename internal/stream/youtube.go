package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	innertubeClientName    = "ANDROID"
	innertubeClientVersion = "19.09.37"
)

// YouTubeResolver asks the innertube player endpoint for the formats of one
// video and picks the first audio-capable one.
type YouTubeResolver struct {
	playerURL string
	apiKey    string
	http      *http.Client
}

func NewYouTubeResolver(playerURL, apiKey string) *YouTubeResolver {
	return &YouTubeResolver{
		playerURL: playerURL,
		apiKey:    apiKey,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type ytFormat struct {
	URL             string `json:"url"`
	SignatureCipher string `json:"signatureCipher"`
	MimeType        string `json:"mimeType"`
	AudioQuality    string `json:"audioQuality"`
}

type ytPlayerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	StreamingData struct {
		Formats         []ytFormat `json:"formats"`
		AdaptiveFormats []ytFormat `json:"adaptiveFormats"`
	} `json:"streamingData"`
}

func (r *YouTubeResolver) Lookup(ctx context.Context, videoID string) (string, error) {
	payload := map[string]any{
		"videoId": videoID,
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    innertubeClientName,
				"clientVersion": innertubeClientVersion,
				"hl":            "en",
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	reqURL := r.playerURL
	if r.apiKey != "" {
		reqURL += "?" + url.Values{"key": {r.apiKey}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("youtube player status %d", resp.StatusCode)
	}

	var pr ytPlayerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", err
	}
	if st := pr.PlayabilityStatus.Status; st != "" && st != "OK" {
		return "", fmt.Errorf("video %s not playable: %s %s", videoID, st, pr.PlayabilityStatus.Reason)
	}

	formats := append(pr.StreamingData.Formats, pr.StreamingData.AdaptiveFormats...)
	return firstAudioURL(formats), nil
}

func firstAudioURL(formats []ytFormat) string {
	for _, f := range formats {
		if !strings.Contains(f.MimeType, "audio") && f.AudioQuality == "" {
			continue
		}
		if f.URL != "" {
			return f.URL
		}
		if f.SignatureCipher != "" {
			if v, err := url.ParseQuery(f.SignatureCipher); err == nil && v.Get("url") != "" {
				return v.Get("url")
			}
		}
	}
	return ""
}
