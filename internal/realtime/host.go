package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"playback-service/internal/player"
)

// Commands sent to the player host.
const (
	HostLoad   = "load"
	HostPause  = "pause"
	HostResume = "resume"
	HostVolume = "volume"
	HostMute   = "mute"
	HostUnmute = "unmute"
)

const hostSendBuffer = 64

var errHostBacklog = errors.New("player host is not keeping up with commands")

type hostCommand struct {
	Type   string        `json:"type"`
	Media  *player.Media `json:"media,omitempty"`
	Volume *int          `json:"volume,omitempty"`
}

type hostConn struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (hc *hostConn) close() {
	hc.closeOnce.Do(func() {
		close(hc.done)
		_ = hc.conn.Close()
	})
}

// HostMount is the single mount point for the external player page. At most
// one host connection is live; a newer connection replaces the older one.
// HostMount itself is the player.Host handed to the adapter.
type HostMount struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	current  *hostConn
	handle   func(player.RawEvent)
	attached func()
}

func NewHostMount(allowedOrigin string) *HostMount {
	return &HostMount{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin(allowedOrigin)},
	}
}

// Handle sets the receiver of host reports.
func (m *HostMount) Handle(fn func(player.RawEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handle = fn
}

// OnAttach sets a callback run whenever a host page connects, before any of
// its reports are handled.
func (m *HostMount) OnAttach(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attached = fn
}

// Acquire is a player.HostFactory. It fails with player.ErrHostUnavailable
// until a host page has connected.
func (m *HostMount) Acquire(ctx context.Context) (player.Host, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !m.Attached() {
		return nil, player.ErrHostUnavailable
	}
	return m, nil
}

func (m *HostMount) Attached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

func (m *HostMount) Load(media player.Media) error {
	return m.send(hostCommand{Type: HostLoad, Media: &media})
}

func (m *HostMount) Pause() error {
	return m.send(hostCommand{Type: HostPause})
}

func (m *HostMount) Resume() error {
	return m.send(hostCommand{Type: HostResume})
}

func (m *HostMount) SetVolume(v int) error {
	return m.send(hostCommand{Type: HostVolume, Volume: &v})
}

func (m *HostMount) Mute() error {
	return m.send(hostCommand{Type: HostMute})
}

func (m *HostMount) Unmute() error {
	return m.send(hostCommand{Type: HostUnmute})
}

func (m *HostMount) send(cmd hostCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	m.mu.Lock()
	hc := m.current
	m.mu.Unlock()
	if hc == nil {
		return player.ErrHostUnavailable
	}

	select {
	case <-hc.done:
		return player.ErrHostUnavailable
	default:
	}
	select {
	case hc.send <- data:
		return nil
	default:
		return errHostBacklog
	}
}

func (m *HostMount) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("component", "host").Warnf("ws upgrade: %v", err)
		return
	}

	hc := &hostConn{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, hostSendBuffer),
		done: make(chan struct{}),
	}
	logger := log.WithFields(log.Fields{"component": "host", "host": hc.id})

	m.mu.Lock()
	old := m.current
	m.current = hc
	attached := m.attached
	m.mu.Unlock()

	if old != nil {
		logger.WithField("replaced", old.id).Info("player host replaced")
		old.close()
	} else {
		logger.Info("player host attached")
	}

	// Runs before the read pump so the page's ready report follows it.
	if attached != nil {
		attached()
	}

	go m.writePump(hc)
	go m.readPump(hc)
}

func (m *HostMount) readPump(hc *hostConn) {
	logger := log.WithFields(log.Fields{"component": "host", "host": hc.id})
	defer func() {
		hc.close()
		m.mu.Lock()
		if m.current == hc {
			m.current = nil
			logger.Warn("player host detached")
		}
		m.mu.Unlock()
	}()

	hc.conn.SetReadLimit(maxMessageSize)
	_ = hc.conn.SetReadDeadline(time.Now().Add(pongWait))
	hc.conn.SetPongHandler(func(string) error {
		return hc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := hc.conn.ReadMessage()
		if err != nil {
			return
		}
		var raw player.RawEvent
		if err := json.Unmarshal(data, &raw); err != nil {
			logger.Warnf("invalid host message: %v", err)
			continue
		}

		m.mu.Lock()
		handle := m.handle
		current := m.current == hc
		m.mu.Unlock()
		if handle != nil && current {
			handle(raw)
		}
	}
}

func (m *HostMount) writePump(hc *hostConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		hc.close()
	}()

	for {
		select {
		case <-hc.done:
			return

		case data := <-hc.send:
			_ = hc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := hc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = hc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := hc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
