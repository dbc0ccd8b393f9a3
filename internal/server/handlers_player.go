package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"playback-service/internal/session"
)

// HandlePlayerState serves GET /player/state.
func (s *Server) HandlePlayerState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.player.State())
}

// handleIntent serves one /player command. The body, when present, carries
// the intent's arguments (track and queue for play, volume for volume).
func (s *Server) handleIntent(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		var in session.Intent
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		in.Action = action

		if err := s.player.Dispatch(r.Context(), in); err != nil {
			writePlayerError(w, action, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":    true,
			"state": s.player.State(),
		})
	}
}
