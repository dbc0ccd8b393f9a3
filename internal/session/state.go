package session

import (
	"errors"

	"playback-service/internal/catalog"
	"playback-service/internal/player"
)

// Published event types.
const (
	EventStateChanged = "player.state_changed"
	EventNotice       = "player.notice"
)

// Notice kinds.
const (
	NoticeReady            = "ready"
	NoticeNotReady         = "not_ready"
	NoticeNowPlaying       = "now_playing"
	NoticePlaybackError    = "playback_error"
	NoticeStreamUnresolved = "stream_unresolved"
)

var (
	ErrNotReady         = player.ErrNotReady
	ErrStreamUnresolved = errors.New("no playable stream for track")
	ErrPlayback         = errors.New("playback command failed")
)

// State is a snapshot of the playback session.
type State struct {
	CurrentTrack  *catalog.Track  `json:"currentTrack"`
	Queue         []catalog.Track `json:"queue"`
	CurrentIndex  int             `json:"currentIndex"`
	IsPlaying     bool            `json:"isPlaying"`
	IsPlayerReady bool            `json:"isPlayerReady"`
	Volume        int             `json:"volume"`
	Muted         bool            `json:"muted"`
}

func (s State) clone() State {
	out := s
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		out.CurrentTrack = &t
	}
	out.Queue = append([]catalog.Track{}, s.Queue...)
	return out
}

// Notice is user-facing feedback about an outcome.
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	TrackID string `json:"trackId,omitempty"`
	Code    int    `json:"code,omitempty"`
}
