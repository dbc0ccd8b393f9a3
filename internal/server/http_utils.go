package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"playback-service/internal/catalog"
	"playback-service/internal/player"
	"playback-service/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}

// writePlayerError maps a playback outcome onto a status code.
func writePlayerError(w http.ResponseWriter, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrBadIntent), errors.Is(err, catalog.ErrInvalidTrack):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotReady), errors.Is(err, player.ErrReloadNotAllowed):
		status = http.StatusConflict
	case errors.Is(err, session.ErrStreamUnresolved):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrPlayback), errors.Is(err, player.ErrInitGaveUp):
		status = http.StatusBadGateway
	case errors.Is(err, session.ErrStopped):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		log.WithFields(log.Fields{"component": "server", "action": action}).Errorf("player command failed: %v", err)
	}
	writeError(w, status, err.Error())
}

// parseLimit reads ?limit=. Missing means def; anything but a positive
// integer is rejected.
func parseLimit(r *http.Request, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
