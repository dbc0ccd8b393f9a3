package server

import (
	"context"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"playback-service/internal/catalog"
	"playback-service/internal/session"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Search(ctx context.Context, query string, limit int) ([]catalog.Track, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Track), args.Error(1)
}

func (m *MockCatalog) Trending(ctx context.Context, limit int) ([]catalog.Track, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Track), args.Error(1)
}

func (m *MockCatalog) PlaylistTracks(ctx context.Context, playlistID string) ([]catalog.Track, error) {
	args := m.Called(ctx, playlistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Track), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, provider, sourceID string) mo.Option[string] {
	args := m.Called(ctx, provider, sourceID)
	return args.Get(0).(mo.Option[string])
}

type MockPlayer struct {
	mock.Mock
}

func (m *MockPlayer) Dispatch(ctx context.Context, in session.Intent) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockPlayer) State() session.State {
	return session.State{Volume: 50, Queue: []catalog.Track{}}
}

func testTrack(id string) catalog.Track {
	t, _ := catalog.NewTrack(id, "src-"+id, catalog.ProviderYouTube)
	t.Title = "Song " + id
	return t
}
