package session

import (
	"context"
	"errors"
	"fmt"

	"playback-service/internal/catalog"
)

// Intent actions.
const (
	ActionPlay     = "play"
	ActionPause    = "pause"
	ActionResume   = "resume"
	ActionNext     = "next"
	ActionPrevious = "previous"
	ActionVolume   = "volume"
	ActionMute     = "mute"
	ActionReload   = "reload"
)

var ErrBadIntent = errors.New("invalid player intent")

// Intent is a playback request from a presentation surface.
type Intent struct {
	Action string          `json:"action"`
	Track  *catalog.Track  `json:"track,omitempty"`
	Queue  []catalog.Track `json:"queue,omitempty"`
	Volume *int            `json:"volume,omitempty"`
}

func (s *Session) Dispatch(ctx context.Context, in Intent) error {
	switch in.Action {
	case ActionPlay:
		if in.Track == nil {
			return fmt.Errorf("%w: play needs a track", ErrBadIntent)
		}
		return s.Play(ctx, *in.Track, in.Queue)
	case ActionPause:
		return s.Pause(ctx)
	case ActionResume:
		return s.Resume(ctx)
	case ActionNext:
		return s.Next(ctx)
	case ActionPrevious:
		return s.Previous(ctx)
	case ActionVolume:
		if in.Volume == nil {
			return fmt.Errorf("%w: volume is required", ErrBadIntent)
		}
		return s.SetVolume(ctx, *in.Volume)
	case ActionMute:
		return s.ToggleMute(ctx)
	case ActionReload:
		return s.Reload(ctx)
	}
	return fmt.Errorf("%w: unknown action %q", ErrBadIntent, in.Action)
}
