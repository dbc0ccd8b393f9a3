package player

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNotReady         = errors.New("player is not ready")
	ErrHostUnavailable  = errors.New("player host is not available yet")
	ErrInitGaveUp       = errors.New("player initialization gave up")
	ErrReloadNotAllowed = errors.New("player can only be reloaded after initialization gave up")
)

const (
	DefaultInitAttempts = 10
	DefaultInitDelay    = 500 * time.Millisecond
	eventBuffer         = 128
)

type Phase int

const (
	Uninitialized Phase = iota
	Initializing
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type Status int

const (
	Idle Status = iota
	Playing
	Paused
	Ended
	Errored
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	case Errored:
		return "errored"
	}
	return "unknown"
}

// Media is what the host needs to start playback.
type Media struct {
	SourceID  string `json:"sourceId"`
	Provider  string `json:"provider"`
	StreamURL string `json:"streamUrl,omitempty"`
}

// Host is the external embeddable player.
type Host interface {
	Load(m Media) error
	Pause() error
	Resume() error
	SetVolume(v int) error
	Mute() error
	Unmute() error
}

// HostFactory mounts the host. It returns ErrHostUnavailable while the host
// cannot be constructed yet.
type HostFactory func(ctx context.Context) (Host, error)

// Adapter owns the single external player. Commands are rejected with
// ErrNotReady until the host has been mounted and has reported ready.
type Adapter struct {
	factory  HostFactory
	attempts int
	delay    time.Duration

	mu        sync.Mutex
	phase     Phase
	status    Status
	host      Host
	readySeen bool

	events chan Event
}

type Option func(*Adapter)

// WithRetry bounds how often mounting is attempted and how long to wait
// between attempts.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(a *Adapter) {
		if attempts > 0 {
			a.attempts = attempts
		}
		if delay > 0 {
			a.delay = delay
		}
	}
}

func NewAdapter(factory HostFactory, opts ...Option) *Adapter {
	a := &Adapter{
		factory:  factory,
		attempts: DefaultInitAttempts,
		delay:    DefaultInitDelay,
		events:   make(chan Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Events() <-chan Event {
	return a.events
}

func (a *Adapter) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Init mounts the host, retrying on a fixed delay. After the last failed
// attempt the adapter stays Failed until Reload. Calling Init again once
// started is a no-op.
func (a *Adapter) Init(ctx context.Context) error {
	a.mu.Lock()
	if a.phase != Uninitialized {
		a.mu.Unlock()
		return nil
	}
	a.phase = Initializing
	a.mu.Unlock()

	logger := log.WithField("component", "player")
	for attempt := 1; ; attempt++ {
		host, err := a.factory(ctx)
		if err == nil {
			logger.WithField("attempt", attempt).Info("player host mounted")
			a.mount(host)
			return nil
		}
		if !errors.Is(err, ErrHostUnavailable) {
			logger.Warnf("mount player host: %v", err)
		}

		if attempt >= a.attempts {
			a.mu.Lock()
			a.phase = Failed
			a.mu.Unlock()
			logger.WithField("attempts", attempt).Error("player host never became available, giving up")
			return ErrInitGaveUp
		}

		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			a.mu.Lock()
			a.phase = Uninitialized
			a.mu.Unlock()
			return ctx.Err()
		}
	}
}

// Reload restarts initialization after it gave up.
func (a *Adapter) Reload(ctx context.Context) error {
	a.mu.Lock()
	if a.phase != Failed {
		a.mu.Unlock()
		return ErrReloadNotAllowed
	}
	a.phase = Uninitialized
	a.mu.Unlock()
	return a.Init(ctx)
}

// HostAttached handles a host page connecting. A Failed adapter reloads in
// the background. A Ready adapter drops back to Initializing, emits
// EventRemounted and waits for the new page to report ready.
func (a *Adapter) HostAttached(ctx context.Context) {
	a.mu.Lock()
	phase := a.phase
	if phase == Ready {
		a.phase = Initializing
		a.status = Idle
		a.readySeen = false
	}
	a.mu.Unlock()

	logger := log.WithField("component", "player")
	switch phase {
	case Ready:
		logger.Info("player host remounted, waiting for ready")
		a.emit(Event{Kind: EventRemounted})
	case Failed:
		go func() {
			if err := a.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warnf("player reload: %v", err)
			}
		}()
	}
}

func (a *Adapter) mount(host Host) {
	a.mu.Lock()
	a.host = host
	ready := a.readySeen && a.phase == Initializing
	if ready {
		a.phase = Ready
		a.status = Idle
	}
	a.mu.Unlock()

	if ready {
		a.emit(Event{Kind: EventReady})
	}
}

// HandleRaw receives host reports. A ready report that arrives before the
// host is mounted is remembered and applied on mount.
func (a *Adapter) HandleRaw(raw RawEvent) {
	ev, ok := translate(raw)
	if !ok {
		return
	}

	a.mu.Lock()
	if ev.Kind == EventReady {
		if a.phase == Ready {
			a.mu.Unlock()
			return
		}
		a.readySeen = true
		if a.phase != Initializing || a.host == nil {
			a.mu.Unlock()
			return
		}
		a.phase = Ready
		a.status = Idle
		a.mu.Unlock()
		a.emit(ev)
		return
	}

	if a.phase != Ready {
		a.mu.Unlock()
		return
	}
	switch ev.Kind {
	case EventPlaying:
		a.status = Playing
	case EventPaused:
		a.status = Paused
	case EventEnded:
		a.status = Ended
	case EventError:
		a.status = Errored
		log.WithFields(log.Fields{"component": "player", "code": ev.Code}).
			Warnf("host reported error: %s", ErrorReason(ev.Code))
	}
	a.mu.Unlock()
	a.emit(ev)
}

func (a *Adapter) emit(ev Event) {
	a.events <- ev
}

// Load starts the given media, superseding whatever is loading or playing.
func (a *Adapter) Load(m Media) error {
	return a.command(func(h Host) error { return h.Load(m) })
}

func (a *Adapter) Pause() error {
	return a.command(Host.Pause)
}

func (a *Adapter) Resume() error {
	return a.command(Host.Resume)
}

func (a *Adapter) SetVolume(v int) error {
	return a.command(func(h Host) error { return h.SetVolume(v) })
}

func (a *Adapter) Mute() error {
	return a.command(Host.Mute)
}

func (a *Adapter) Unmute() error {
	return a.command(Host.Unmute)
}

func (a *Adapter) command(fn func(Host) error) error {
	a.mu.Lock()
	if a.phase != Ready || a.host == nil {
		a.mu.Unlock()
		return ErrNotReady
	}
	h := a.host
	a.mu.Unlock()
	return fn(h)
}
