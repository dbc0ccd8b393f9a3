package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"playback-service/internal/search"
	"playback-service/internal/session"
)

// Message types exchanged with surfaces.
const (
	MsgWelcome       = "welcome"
	MsgSearch        = "search"
	MsgSearchResults = "search.results"
	MsgCommand       = "command"
	MsgCommandError  = "command.error"
	MsgError         = "error"
)

const (
	defaultCommandTimeout = 15 * time.Second
	commandBacklog        = 8
)

var errCommandBacklog = errors.New("too many pending commands")

// Controller is the playback session as seen by surfaces.
type Controller interface {
	Dispatch(ctx context.Context, in session.Intent) error
	State() session.State
}

type SurfaceConfig struct {
	SearchDelay    time.Duration
	SearchLimit    int
	CommandTimeout time.Duration
	AllowedOrigin  string
}

type surfaceMessage struct {
	Type    string          `json:"type"`
	Query   string          `json:"query,omitempty"`
	Command *session.Intent `json:"command,omitempty"`
}

type commandError struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

// Surfaces serves the /ws endpoint for presentation surfaces.
type Surfaces struct {
	ctx      context.Context
	hub      *Hub
	ctrl     Controller
	searcher search.Searcher
	cfg      SurfaceConfig
	upgrader websocket.Upgrader
}

// NewSurfaces binds surface connections to ctx, which outlives any single
// request.
func NewSurfaces(ctx context.Context, hub *Hub, ctrl Controller, searcher search.Searcher, cfg SurfaceConfig) *Surfaces {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}
	return &Surfaces{
		ctx:      ctx,
		hub:      hub,
		ctrl:     ctrl,
		searcher: searcher,
		cfg:      cfg,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin(cfg.AllowedOrigin)},
	}
}

func checkOrigin(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "" || allowed == "*" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}

func (s *Surfaces) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("component", "realtime").Warnf("ws upgrade: %v", err)
		return
	}

	client := newClient(s.hub, conn)
	logger := log.WithFields(log.Fields{"component": "realtime", "client": client.id})

	debouncer := search.NewDebouncer(s.searcher, s.cfg.SearchDelay, s.cfg.SearchLimit, func(res search.Result) {
		s.sendTo(client, MsgSearchResults, res)
	})
	// Commands apply in arrival order, off the read pump.
	commands := make(chan session.Intent, commandBacklog)
	go s.runCommands(client, commands)

	client.onMessage = func(raw []byte) { s.handleMessage(client, debouncer, commands, raw) }
	client.onClose = func() {
		debouncer.Close()
		close(commands)
	}

	s.hub.Register(client)
	s.sendTo(client, MsgWelcome, map[string]any{
		"id":    client.id,
		"now":   time.Now().UTC().Format(time.RFC3339Nano),
		"state": s.ctrl.State(),
	})
	logger.Info("surface connected")

	go client.writePump()
	go client.readPump()
}

func (s *Surfaces) handleMessage(client *Client, debouncer *search.Debouncer, commands chan<- session.Intent, raw []byte) {
	var msg surfaceMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendTo(client, MsgError, map[string]string{"error": "invalid JSON message"})
		return
	}

	switch msg.Type {
	case MsgSearch:
		debouncer.Query(msg.Query)

	case MsgCommand:
		if msg.Command == nil {
			s.sendTo(client, MsgError, map[string]string{"error": "command is required"})
			return
		}
		select {
		case commands <- *msg.Command:
		default:
			s.sendTo(client, MsgCommandError, commandError{Action: msg.Command.Action, Error: errCommandBacklog.Error()})
		}

	default:
		s.sendTo(client, MsgError, map[string]string{"error": "unknown message type"})
	}
}

func (s *Surfaces) runCommands(client *Client, commands <-chan session.Intent) {
	for in := range commands {
		s.dispatch(client, in)
	}
}

func (s *Surfaces) dispatch(client *Client, in session.Intent) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.CommandTimeout)
	defer cancel()
	if err := s.ctrl.Dispatch(ctx, in); err != nil {
		s.sendTo(client, MsgCommandError, commandError{Action: in.Action, Error: err.Error()})
	}
}

func (s *Surfaces) sendTo(client *Client, msgType string, payload any) {
	data, err := encode(msgType, payload)
	if err != nil {
		log.WithField("type", msgType).Errorf("realtime: encode message: %v", err)
		return
	}
	s.hub.SendTo(client, data)
}
