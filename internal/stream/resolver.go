package stream

import (
	"context"
	"strings"
	"time"

	"github.com/samber/mo"
	log "github.com/sirupsen/logrus"

	"playback-service/internal/catalog"
)

const DefaultTimeout = 8 * time.Second

// Lookuper fetches a playable locator for one source id. An empty string with
// a nil error means the item exists but offers nothing playable.
type Lookuper interface {
	Lookup(ctx context.Context, sourceID string) (string, error)
}

// LookupFunc adapts a function to Lookuper.
type LookupFunc func(ctx context.Context, sourceID string) (string, error)

func (f LookupFunc) Lookup(ctx context.Context, sourceID string) (string, error) {
	return f(ctx, sourceID)
}

// Resolver turns a track's platform identifier into a playable stream URL.
type Resolver interface {
	Resolve(ctx context.Context, provider, sourceID string) mo.Option[string]
}

// Service routes lookups by provider. Misses and lookup failures both come
// back as an absent option; failures are logged.
type Service struct {
	lookups map[string]Lookuper
	timeout time.Duration
}

func NewService(timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{lookups: map[string]Lookuper{}, timeout: timeout}
}

func (s *Service) Register(provider string, l Lookuper) *Service {
	s.lookups[provider] = l
	return s
}

func (s *Service) Resolve(ctx context.Context, provider, sourceID string) mo.Option[string] {
	if provider == "" {
		provider = catalog.ProviderYouTube
	}
	logger := log.WithFields(log.Fields{"component": "stream", "provider": provider, "sourceId": sourceID})

	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return mo.None[string]()
	}
	l, ok := s.lookups[provider]
	if !ok {
		logger.Warn("no resolver registered for provider")
		return mo.None[string]()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	u, err := l.Lookup(ctx, sourceID)
	if err != nil {
		logger.Errorf("stream lookup failed: %v", err)
		return mo.None[string]()
	}
	if u == "" {
		logger.Info("no playable audio format")
		return mo.None[string]()
	}
	return mo.Some(u)
}
