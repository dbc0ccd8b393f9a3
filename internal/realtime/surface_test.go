package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playback-service/internal/catalog"
	"playback-service/internal/session"
)

type fakeController struct {
	mu      sync.Mutex
	intents []session.Intent
}

func (c *fakeController) Dispatch(ctx context.Context, in session.Intent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intents = append(c.intents, in)
	if in.Action == session.ActionPlay {
		return session.ErrNotReady
	}
	return nil
}

func (c *fakeController) State() session.State {
	return session.State{Volume: 50, Queue: []catalog.Track{}}
}

func (c *fakeController) Intents() []session.Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]session.Intent(nil), c.intents...)
}

type searcherFunc func(ctx context.Context, q string, limit int) ([]catalog.Track, error)

func (f searcherFunc) Search(ctx context.Context, q string, limit int) ([]catalog.Track, error) {
	return f(ctx, q, limit)
}

type wsMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func readMessage(t *testing.T, ws *websocket.Conn) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func dialSurfaces(t *testing.T, s *Surfaces, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	server := httptest.NewServer(s)
	t.Cleanup(server.Close)
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL(server), header)
	if err == nil {
		t.Cleanup(func() { ws.Close() })
	}
	return ws, resp, err
}

func newTestSurfaces(t *testing.T, ctrl Controller, origin string) *Surfaces {
	t.Helper()
	searcher := searcherFunc(func(ctx context.Context, q string, limit int) ([]catalog.Track, error) {
		if q == "fail" {
			return []catalog.Track{}, errors.New("catalog query failed")
		}
		tr, _ := catalog.NewTrack("id-"+q, q, catalog.ProviderYouTube)
		return []catalog.Track{tr}, nil
	})
	return NewSurfaces(context.Background(), startHub(t), ctrl, searcher, SurfaceConfig{
		SearchDelay:   5 * time.Millisecond,
		SearchLimit:   10,
		AllowedOrigin: origin,
	})
}

func TestSurfacesWelcome(t *testing.T) {
	s := newTestSurfaces(t, &fakeController{}, "")
	ws, _, err := dialSurfaces(t, s, nil)
	require.NoError(t, err)

	msg := readMessage(t, ws)
	assert.Equal(t, MsgWelcome, msg.Type)
	assert.NotEmpty(t, msg.Payload["id"])
	state := msg.Payload["state"].(map[string]any)
	assert.Equal(t, float64(50), state["volume"])
	assert.Equal(t, false, state["isPlayerReady"])
}

func TestSurfacesSearch(t *testing.T) {
	s := newTestSurfaces(t, &fakeController{}, "")
	ws, _, err := dialSurfaces(t, s, nil)
	require.NoError(t, err)
	readMessage(t, ws)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": MsgSearch, "query": "abc"}))
	msg := readMessage(t, ws)
	assert.Equal(t, MsgSearchResults, msg.Type)
	assert.Equal(t, "abc", msg.Payload["query"])
	assert.Len(t, msg.Payload["tracks"], 1)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": MsgSearch, "query": "fail"}))
	msg = readMessage(t, ws)
	assert.Equal(t, "catalog query failed", msg.Payload["error"])
	assert.Empty(t, msg.Payload["tracks"])
}

func TestSurfacesCommands(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestSurfaces(t, ctrl, "")
	ws, _, err := dialSurfaces(t, s, nil)
	require.NoError(t, err)
	readMessage(t, ws)

	require.NoError(t, ws.WriteJSON(map[string]any{
		"type":    MsgCommand,
		"command": map[string]any{"action": "volume", "volume": 80},
	}))
	require.NoError(t, ws.WriteJSON(map[string]any{
		"type":    MsgCommand,
		"command": map[string]any{"action": "play", "track": map[string]any{"id": "t1", "sourceId": "s1"}},
	}))

	msg := readMessage(t, ws)
	assert.Equal(t, MsgCommandError, msg.Type)
	assert.Equal(t, "play", msg.Payload["action"])
	assert.Equal(t, session.ErrNotReady.Error(), msg.Payload["error"])

	intents := ctrl.Intents()
	require.Len(t, intents, 2)
	require.NotNil(t, intents[0].Volume)
	assert.Equal(t, 80, *intents[0].Volume)
	assert.Equal(t, "s1", intents[1].Track.SourceID)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{nope")))
	assert.Equal(t, MsgError, readMessage(t, ws).Type)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "dance"}))
	assert.Equal(t, MsgError, readMessage(t, ws).Type)
}

func TestSurfacesOrigin(t *testing.T) {
	s := newTestSurfaces(t, &fakeController{}, "http://localhost:3000")

	header := http.Header{}
	header.Set("Origin", "http://localhost:3000")
	_, _, err := dialSurfaces(t, s, header)
	require.NoError(t, err)

	header.Set("Origin", "http://evil.com")
	_, resp, err := dialSurfaces(t, s, header)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

type blockingController struct {
	fakeController
	release chan struct{}
	started chan struct{}
}

func (c *blockingController) Dispatch(ctx context.Context, in session.Intent) error {
	c.started <- struct{}{}
	select {
	case <-c.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.fakeController.Dispatch(ctx, in)
}

func TestSurfacesSearchWhileCommandPending(t *testing.T) {
	ctrl := &blockingController{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s := newTestSurfaces(t, ctrl, "")
	ws, _, err := dialSurfaces(t, s, nil)
	require.NoError(t, err)
	readMessage(t, ws)

	require.NoError(t, ws.WriteJSON(map[string]any{
		"type":    MsgCommand,
		"command": map[string]any{"action": "next"},
	}))
	select {
	case <-ctrl.started:
	case <-time.After(time.Second):
		t.Fatal("command was never dispatched")
	}

	require.NoError(t, ws.WriteJSON(map[string]string{"type": MsgSearch, "query": "abc"}))
	msg := readMessage(t, ws)
	assert.Equal(t, MsgSearchResults, msg.Type)
	assert.Equal(t, "abc", msg.Payload["query"])
	assert.Empty(t, ctrl.Intents(), "command is still pending")

	close(ctrl.release)
	require.Eventually(t, func() bool { return len(ctrl.Intents()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, session.ActionNext, ctrl.Intents()[0].Action)
}
