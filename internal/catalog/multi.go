package catalog

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source is one external media catalog.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Track, error)
	Trending(ctx context.Context, limit int) ([]Track, error)
}

// Multi queries several sources at once and interleaves their results.
// It fails only when every source fails.
type Multi struct {
	sources []Source
}

func NewMulti(sources ...Source) *Multi {
	return &Multi{sources: sources}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	return m.fanOut(ctx, limit, func(ctx context.Context, s Source) ([]Track, error) {
		return s.Search(ctx, query, limit)
	})
}

func (m *Multi) Trending(ctx context.Context, limit int) ([]Track, error) {
	return m.fanOut(ctx, limit, func(ctx context.Context, s Source) ([]Track, error) {
		return s.Trending(ctx, limit)
	})
}

func (m *Multi) fanOut(ctx context.Context, limit int, call func(context.Context, Source) ([]Track, error)) ([]Track, error) {
	if len(m.sources) == 0 {
		return nil, errors.New("no catalog sources configured")
	}

	results := make([][]Track, len(m.sources))
	errs := make([]error, len(m.sources))

	var g errgroup.Group
	for i, src := range m.sources {
		g.Go(func() error {
			tracks, err := call(ctx, src)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				log.WithFields(log.Fields{"component": "catalog", "provider": src.Name()}).
					Warnf("source failed: %v", err)
				return nil
			}
			results[i] = tracks
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(m.sources) {
		return nil, errors.Join(errs...)
	}

	return interleave(results, limit), nil
}

func interleave(lists [][]Track, limit int) []Track {
	out := make([]Track, 0, limit)
	for i := 0; len(out) < limit; i++ {
		added := false
		for _, l := range lists {
			if i < len(l) && len(out) < limit {
				out = append(out, l[i])
				added = true
			}
		}
		if !added {
			break
		}
	}
	return out
}
