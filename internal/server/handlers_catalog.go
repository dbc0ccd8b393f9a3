package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"playback-service/internal/catalog"
)

// HandleSearch serves GET /search?q=&limit=.
func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		q = strings.TrimSpace(r.URL.Query().Get("query"))
	}
	if q == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if len(q) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "query is too long")
		return
	}
	limit, ok := parseLimit(r, s.limit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	tracks, err := s.catalog.Search(r.Context(), q, limit)
	if err != nil {
		log.WithFields(log.Fields{"component": "server", "query": q}).Errorf("search: %v", err)
		writeTracksError(w, "failed to query catalog")
		return
	}
	writeJSON(w, http.StatusOK, catalog.SearchResponse{Tracks: tracks})
}

// HandleTrending serves GET /trending?limit=.
func (s *Server) HandleTrending(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, s.limit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	tracks, err := s.catalog.Trending(r.Context(), limit)
	if err != nil {
		log.WithField("component", "server").Errorf("trending: %v", err)
		writeTracksError(w, "failed to fetch trending")
		return
	}
	writeJSON(w, http.StatusOK, catalog.SearchResponse{Tracks: tracks})
}

// HandleStream serves GET /stream?id=&provider=.
func (s *Server) HandleStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	id := strings.TrimSpace(query.Get("id"))
	if id == "" {
		id = strings.TrimSpace(query.Get("videoId"))
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	provider := strings.TrimSpace(query.Get("provider"))

	u, ok := s.resolver.Resolve(r.Context(), provider, id).Get()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"streamUrl": nil,
			"error":     "no playable stream found",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"streamUrl": u})
}

// HandlePlaylistTracks serves GET /playlists/{id}/tracks.
func (s *Server) HandlePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	if s.playlists == nil {
		writeError(w, http.StatusServiceUnavailable, "playlists are not configured")
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "playlist id is required")
		return
	}

	tracks, err := s.playlists.PlaylistTracks(r.Context(), id)
	if err != nil {
		log.WithFields(log.Fields{"component": "server", "playlist": id}).Errorf("playlist tracks: %v", err)
		writeTracksError(w, "failed to fetch playlist tracks")
		return
	}
	if tracks == nil {
		tracks = []catalog.Track{}
	}
	writeJSON(w, http.StatusOK, catalog.SearchResponse{Tracks: tracks})
}

func writeTracksError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadGateway, catalog.SearchResponse{
		Tracks: []catalog.Track{},
		Error:  msg,
	})
}
