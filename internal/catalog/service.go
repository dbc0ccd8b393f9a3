package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultLimit   = 20
	DefaultMax     = 50
	DefaultTimeout = 5 * time.Second
)

// Catalog is the querying contract the rest of the service depends on.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]Track, error)
	Trending(ctx context.Context, limit int) ([]Track, error)
}

// Service wraps a Source with the catalog policy: empty queries never reach
// the network, every call runs under a timeout and failures come back as an
// empty result plus an error wrapping ErrCatalogQueryFailed.
type Service struct {
	source   Source
	timeout  time.Duration
	maxLimit int
}

func NewService(source Source, timeout time.Duration, maxLimit int) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxLimit <= 0 {
		maxLimit = DefaultMax
	}
	return &Service{source: source, timeout: timeout, maxLimit: maxLimit}
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Track{}, nil
	}
	return s.run(ctx, log.Fields{"op": "search", "query": query}, func(ctx context.Context) ([]Track, error) {
		return s.source.Search(ctx, query, s.clamp(limit))
	})
}

func (s *Service) Trending(ctx context.Context, limit int) ([]Track, error) {
	return s.run(ctx, log.Fields{"op": "trending"}, func(ctx context.Context) ([]Track, error) {
		return s.source.Trending(ctx, s.clamp(limit))
	})
}

func (s *Service) run(ctx context.Context, fields log.Fields, call func(context.Context) ([]Track, error)) ([]Track, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	tracks, err := call(ctx)
	logger := log.WithFields(fields).WithField("component", "catalog").WithField("took", time.Since(started))
	if err != nil {
		logger.Errorf("catalog query failed: %v", err)
		return []Track{}, fmt.Errorf("%w: %v", ErrCatalogQueryFailed, err)
	}
	if tracks == nil {
		tracks = []Track{}
	}
	logger.WithField("results", len(tracks)).Debug("catalog query")
	return tracks, nil
}

func (s *Service) clamp(limit int) int {
	if limit <= 0 {
		return min(DefaultLimit, s.maxLimit)
	}
	return min(limit, s.maxLimit)
}
