package server

import (
	"context"
	"net/http"

	"playback-service/internal/catalog"
	"playback-service/internal/session"
	"playback-service/internal/stream"
)

const (
	ServiceName    = "playback-service"
	maxQueryLength = 200
)

type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.Track, error)
	Trending(ctx context.Context, limit int) ([]catalog.Track, error)
}

type PlaylistSource interface {
	PlaylistTracks(ctx context.Context, playlistID string) ([]catalog.Track, error)
}

// Player is the playback session behind the /player routes.
type Player interface {
	Dispatch(ctx context.Context, in session.Intent) error
	State() session.State
}

type Server struct {
	catalog   Catalog
	resolver  stream.Resolver
	player    Player
	playlists PlaylistSource
	surfaces  http.Handler
	host      http.Handler
	limit     int
}

type Option func(*Server)

// WithPlaylists enables /playlists/{id}/tracks.
func WithPlaylists(p PlaylistSource) Option {
	return func(s *Server) { s.playlists = p }
}

// WithRealtime mounts the surface and player host websockets.
func WithRealtime(surfaces, host http.Handler) Option {
	return func(s *Server) {
		s.surfaces = surfaces
		s.host = host
	}
}

func WithDefaultLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.limit = n
		}
	}
}

func NewServer(c Catalog, r stream.Resolver, p Player, opts ...Option) *Server {
	s := &Server{
		catalog:  c,
		resolver: r,
		player:   p,
		limit:    catalog.DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": ServiceName,
	})
}
