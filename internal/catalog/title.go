package catalog

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
)

const (
	unknownArtist   = "Unknown Artist"
	unknownTitle    = "Unknown Title"
	unknownDuration = "Unknown"
)

var annotationRe = regexp.MustCompile(`\(.*?\)|\[.*?\]`)

// SplitTitleArtist derives artist and title from a combined "Artist - Title"
// string. Without a hyphen (or with nothing before it) the artist falls back to
// fallbackAuthor. Bracketed and parenthetical annotations are removed from the
// title.
func SplitTitleArtist(raw, fallbackAuthor string) (artist, title string) {
	raw = strings.TrimSpace(html.UnescapeString(raw))
	fallbackAuthor = strings.TrimSpace(html.UnescapeString(fallbackAuthor))

	artist, title = fallbackAuthor, raw
	if left, right, ok := strings.Cut(raw, "-"); ok && strings.TrimSpace(left) != "" && strings.TrimSpace(right) != "" {
		artist = strings.TrimSpace(left)
		title = strings.TrimSpace(right)
	}
	if artist == "" {
		artist = unknownArtist
	}

	return artist, cleanTitle(title)
}

// cleanTitle drops annotations such as "(Official Video)". A title made only
// of annotations is kept as is.
func cleanTitle(title string) string {
	title = strings.TrimSpace(html.UnescapeString(title))
	stripped := strings.Join(strings.Fields(annotationRe.ReplaceAllString(title, "")), " ")
	switch {
	case stripped != "":
		return stripped
	case title != "":
		return title
	default:
		return unknownTitle
	}
}

// FormatDuration renders d as m:ss or h:mm:ss.
func FormatDuration(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs <= 0 {
		return unknownDuration
	}
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

var iso8601Re = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

func parseISO8601Duration(duration string) time.Duration {
	matches := iso8601Re.FindStringSubmatch(duration)
	if len(matches) < 4 {
		return 0
	}

	var h, m, s int
	fmt.Sscanf(matches[1], "%d", &h)
	fmt.Sscanf(matches[2], "%d", &m)
	fmt.Sscanf(matches[3], "%d", &s)

	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}
