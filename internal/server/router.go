package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"playback-service/internal/session"
)

// Router builds the chi.Router with all routes behind the given middlewares.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.HandleHealth)
	r.Get("/search", s.HandleSearch)
	r.Get("/trending", s.HandleTrending)
	r.Get("/stream", s.HandleStream)
	r.Get("/playlists/{id}/tracks", s.HandlePlaylistTracks)

	r.Route("/player", func(r chi.Router) {
		r.Get("/state", s.HandlePlayerState)
		r.Post("/play", s.handleIntent(session.ActionPlay))
		r.Post("/pause", s.handleIntent(session.ActionPause))
		r.Post("/resume", s.handleIntent(session.ActionResume))
		r.Post("/next", s.handleIntent(session.ActionNext))
		r.Post("/previous", s.handleIntent(session.ActionPrevious))
		r.Post("/mute", s.handleIntent(session.ActionMute))
		r.Post("/reload", s.handleIntent(session.ActionReload))
		r.Put("/volume", s.handleIntent(session.ActionVolume))

		if s.host != nil {
			r.Get("/host", s.host.ServeHTTP)
		}
	})

	if s.surfaces != nil {
		r.Get("/ws", s.surfaces.ServeHTTP)
	}

	return r
}
