package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"playback-service/internal/catalog"
	"playback-service/internal/player"
	"playback-service/internal/stream"
)

const (
	DefaultVolume = 50
	minVolume     = 0
	maxVolume     = 100
)

var ErrStopped = errors.New("playback session stopped")

// Engine is the playback engine the session drives. *player.Adapter
// satisfies it.
type Engine interface {
	Load(m player.Media) error
	Pause() error
	Resume() error
	SetVolume(v int) error
	Mute() error
	Unmute() error
	Reload(ctx context.Context) error
	Events() <-chan player.Event
}

// Publisher fans session events out to connected surfaces.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

type command struct {
	fn   func() error
	done chan error
}

// Session owns the queue, the current track and volume state. Every change
// is applied on the Run goroutine, which is also the only caller of the
// engine's playback commands.
type Session struct {
	engine     Engine
	resolver   stream.Resolver
	pub        Publisher
	resolveFor map[string]bool

	cmds    chan command
	stopped chan struct{}

	// owned by Run
	state State
	gen   uint64
	dirty bool

	// restore reloads the current track once a remounted host is ready.
	restore bool

	snapMu sync.RWMutex
	snap   State
}

type Option func(*Session)

func WithInitialVolume(v int) Option {
	return func(s *Session) {
		s.state.Volume = lo.Clamp(v, minVolume, maxVolume)
	}
}

// WithResolveProviders lists the providers whose tracks need a stream URL
// resolved before they can be loaded.
func WithResolveProviders(providers ...string) Option {
	return func(s *Session) {
		s.resolveFor = lo.SliceToMap(providers, func(p string) (string, bool) {
			return p, true
		})
	}
}

func New(engine Engine, resolver stream.Resolver, pub Publisher, opts ...Option) *Session {
	s := &Session{
		engine:     engine,
		resolver:   resolver,
		pub:        pub,
		resolveFor: map[string]bool{catalog.ProviderSpotify: true},
		cmds:       make(chan command),
		stopped:    make(chan struct{}),
		state:      State{Volume: DefaultVolume, Queue: []catalog.Track{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap = s.state.clone()
	return s
}

// Run applies commands and engine events until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	defer close(s.stopped)

	events := s.engine.Events()
	for {
		select {
		case <-ctx.Done():
			return

		case c := <-s.cmds:
			err := c.fn()
			s.flush(ctx)
			c.done <- err

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleEvent(ctx, ev)
			s.flush(ctx)
		}
	}
}

// State returns the latest published snapshot.
func (s *Session) State() State {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap.clone()
}

func (s *Session) do(ctx context.Context, fn func() error) error {
	c := command{fn: fn, done: make(chan error, 1)}
	select {
	case s.cmds <- c:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) changed() {
	s.dirty = true
}

func (s *Session) flush(ctx context.Context) {
	if !s.dirty {
		return
	}
	s.dirty = false

	snap := s.state.clone()
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()

	s.pub.Publish(ctx, EventStateChanged, snap)
}

func (s *Session) notify(ctx context.Context, n Notice) {
	s.pub.Publish(ctx, EventNotice, n)
}

func (s *Session) notReady(ctx context.Context) error {
	s.notify(ctx, Notice{Kind: NoticeNotReady, Message: "player is loading, please wait a moment"})
	return ErrNotReady
}

// Play loads track and starts it. With a queue, the queue is replaced and
// the index moves to the track's position in it (0 when absent). Stream URLs
// arriving with track or queue are dropped; only the resolver sets them.
func (s *Session) Play(ctx context.Context, track catalog.Track, queue []catalog.Track) error {
	if !track.Valid() {
		return catalog.ErrInvalidTrack
	}
	track = track.WithoutStreamURL()
	if queue != nil {
		queue = lo.Map(queue, func(t catalog.Track, _ int) catalog.Track { return t.WithoutStreamURL() })
	}
	if err := s.do(ctx, func() error {
		if !s.state.IsPlayerReady {
			return s.notReady(ctx)
		}
		return nil
	}); err != nil {
		return err
	}

	track, err := s.withStream(ctx, track)
	if err != nil {
		return err
	}

	return s.do(ctx, func() error {
		if !s.state.IsPlayerReady {
			return s.notReady(ctx)
		}

		nextQueue := s.state.Queue
		if queue != nil {
			nextQueue = queue
		}
		idx := s.state.CurrentIndex
		if _, i, ok := lo.FindIndexOf(nextQueue, func(t catalog.Track) bool { return t.ID == track.ID }); ok {
			idx = i
		} else if queue != nil {
			idx = 0
		} else if len(nextQueue) == 0 {
			nextQueue = []catalog.Track{track}
			idx = 0
		}

		if err := s.load(ctx, track); err != nil {
			return err
		}
		s.state.Queue = nextQueue
		s.state.CurrentIndex = idx
		return nil
	})
}

// Next plays the following queue entry. At the last position it does nothing.
func (s *Session) Next(ctx context.Context) error {
	return s.step(ctx, 1, nil)
}

// Previous plays the preceding queue entry. At the first position it does
// nothing.
func (s *Session) Previous(ctx context.Context) error {
	return s.step(ctx, -1, nil)
}

// step moves the queue position by delta. When from is set, the move is
// dropped if the current track changed since generation *from.
func (s *Session) step(ctx context.Context, delta int, from *uint64) error {
	var (
		target catalog.Track
		idx    int
		gen    uint64
		move   bool
	)
	err := s.do(ctx, func() error {
		if from != nil && *from != s.gen {
			return nil
		}
		if !s.state.IsPlayerReady {
			return s.notReady(ctx)
		}
		idx = s.state.CurrentIndex + delta
		if idx < 0 || idx >= len(s.state.Queue) {
			return nil
		}
		target, gen, move = s.state.Queue[idx], s.gen, true
		return nil
	})
	if err != nil || !move {
		return err
	}

	target, err = s.withStream(ctx, target)
	if err != nil {
		return err
	}

	return s.do(ctx, func() error {
		if s.gen != gen {
			log.WithField("component", "session").Debug("queue step superseded by a newer track change")
			return nil
		}
		if err := s.load(ctx, target); err != nil {
			return err
		}
		s.state.CurrentIndex = idx
		return nil
	})
}

// load runs on the session goroutine.
func (s *Session) load(ctx context.Context, track catalog.Track) error {
	media := player.Media{
		SourceID:  track.SourceID,
		Provider:  track.Provider,
		StreamURL: track.StreamURL.OrEmpty(),
	}
	if err := s.engine.Load(media); err != nil {
		s.notify(ctx, Notice{Kind: NoticePlaybackError, Message: "failed to play track", TrackID: track.ID})
		return s.engineErr(err)
	}

	s.gen++
	s.state.CurrentTrack = &track
	s.state.IsPlaying = true
	s.changed()

	s.notify(ctx, Notice{Kind: NoticeNowPlaying, Message: track.Title, TrackID: track.ID})
	return nil
}

func (s *Session) withStream(ctx context.Context, track catalog.Track) (catalog.Track, error) {
	if track.StreamURL.IsPresent() || !s.resolveFor[track.Provider] {
		return track, nil
	}
	u, ok := s.resolver.Resolve(ctx, track.Provider, track.SourceID).Get()
	if !ok {
		s.notify(ctx, Notice{Kind: NoticeStreamUnresolved, Message: "track is unavailable", TrackID: track.ID})
		return track, ErrStreamUnresolved
	}
	return track.WithStreamURL(u), nil
}

// Pause does nothing when no track has been played.
func (s *Session) Pause(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.state.CurrentTrack == nil {
			return nil
		}
		if err := s.engine.Pause(); err != nil {
			return s.engineErr(err)
		}
		s.state.IsPlaying = false
		s.changed()
		return nil
	})
}

// Resume does nothing when no track has been played.
func (s *Session) Resume(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.state.CurrentTrack == nil {
			return nil
		}
		if err := s.engine.Resume(); err != nil {
			return s.engineErr(err)
		}
		s.state.IsPlaying = true
		s.changed()
		return nil
	})
}

// SetVolume stores v clamped to [0,100]. It reaches the engine right away
// unless muted or not ready yet; otherwise it is applied on unmute or ready.
func (s *Session) SetVolume(ctx context.Context, v int) error {
	return s.do(ctx, func() error {
		v = lo.Clamp(v, minVolume, maxVolume)
		if s.state.Volume != v {
			s.state.Volume = v
			s.changed()
		}
		if !s.state.IsPlayerReady || s.state.Muted {
			return nil
		}
		return s.engineErr(s.engine.SetVolume(v))
	})
}

// ToggleMute silences output, or restores the remembered volume.
func (s *Session) ToggleMute(ctx context.Context) error {
	return s.do(ctx, func() error {
		if !s.state.IsPlayerReady {
			return s.notReady(ctx)
		}
		if s.state.Muted {
			if err := s.engine.Unmute(); err != nil {
				return s.engineErr(err)
			}
			if err := s.engine.SetVolume(s.state.Volume); err != nil {
				return s.engineErr(err)
			}
		} else if err := s.engine.Mute(); err != nil {
			return s.engineErr(err)
		}
		s.state.Muted = !s.state.Muted
		s.changed()
		return nil
	})
}

// Reload asks the engine to start over after its initialization gave up.
func (s *Session) Reload(ctx context.Context) error {
	return s.engine.Reload(ctx)
}

func (s *Session) engineErr(err error) error {
	if err == nil || errors.Is(err, ErrNotReady) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPlayback, err)
}

func (s *Session) handleEvent(ctx context.Context, ev player.Event) {
	logger := log.WithFields(log.Fields{"component": "session", "event": ev.Kind.String()})

	switch ev.Kind {
	case player.EventReady:
		if s.state.IsPlayerReady {
			return
		}
		s.state.IsPlayerReady = true
		s.changed()
		if err := s.engine.SetVolume(s.state.Volume); err != nil {
			logger.Warnf("apply volume: %v", err)
		}
		if s.state.Muted {
			if err := s.engine.Mute(); err != nil {
				logger.Warnf("apply mute: %v", err)
			}
		}
		s.notify(ctx, Notice{Kind: NoticeReady, Message: "music player ready"})
		if s.restore && s.state.CurrentTrack != nil {
			if err := s.load(ctx, *s.state.CurrentTrack); err != nil {
				logger.Warnf("restore track: %v", err)
			}
		}
		s.restore = false

	case player.EventRemounted:
		s.restore = s.restore || (s.state.IsPlaying && s.state.CurrentTrack != nil)
		s.state.IsPlayerReady = false
		s.state.IsPlaying = false
		s.changed()
		s.notify(ctx, Notice{Kind: NoticeNotReady, Message: "music player reconnecting"})

	case player.EventPlaying:
		if !s.state.IsPlaying {
			s.state.IsPlaying = true
			s.changed()
		}

	case player.EventPaused:
		if s.state.IsPlaying {
			s.state.IsPlaying = false
			s.changed()
		}

	case player.EventEnded:
		s.state.IsPlaying = false
		s.changed()
		if s.state.CurrentIndex >= len(s.state.Queue)-1 {
			logger.Info("reached end of queue")
			return
		}
		gen := s.gen
		go func() {
			if err := s.step(ctx, 1, &gen); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warnf("auto-advance: %v", err)
			}
		}()

	case player.EventError:
		s.state.IsPlaying = false
		s.changed()
		var trackID string
		if s.state.CurrentTrack != nil {
			trackID = s.state.CurrentTrack.ID
		}
		logger.WithField("code", ev.Code).Warn("playback error, not advancing")
		s.notify(ctx, Notice{
			Kind:    NoticePlaybackError,
			Message: player.ErrorReason(ev.Code),
			TrackID: trackID,
			Code:    ev.Code,
		})
	}
}
