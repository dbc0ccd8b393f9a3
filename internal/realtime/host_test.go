package realtime

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playback-service/internal/catalog"
	"playback-service/internal/player"
	"playback-service/internal/session"
)

type rawSink struct {
	mu     sync.Mutex
	events []player.RawEvent
}

func (s *rawSink) add(ev player.RawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *rawSink) All() []player.RawEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]player.RawEvent(nil), s.events...)
}

func dialHost(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestHostMountLifecycle(t *testing.T) {
	mount := NewHostMount("")
	sink := &rawSink{}
	mount.Handle(sink.add)

	_, err := mount.Acquire(context.Background())
	assert.ErrorIs(t, err, player.ErrHostUnavailable)
	assert.ErrorIs(t, mount.Pause(), player.ErrHostUnavailable)

	server := httptest.NewServer(mount)
	defer server.Close()
	ws := dialHost(t, server)

	require.Eventually(t, mount.Attached, time.Second, 5*time.Millisecond)
	host, err := mount.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, host.Load(player.Media{SourceID: "abc", Provider: "youtube"}))
	require.NoError(t, host.SetVolume(40))

	var cmd map[string]any
	_ = ws.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, ws.ReadJSON(&cmd))
	assert.Equal(t, HostLoad, cmd["type"])
	assert.Equal(t, "abc", cmd["media"].(map[string]any)["sourceId"])

	require.NoError(t, ws.ReadJSON(&cmd))
	assert.Equal(t, HostVolume, cmd["type"])
	assert.Equal(t, float64(40), cmd["volume"])

	require.NoError(t, ws.WriteJSON(player.RawEvent{Type: player.RawReady}))
	require.NoError(t, ws.WriteJSON(player.RawEvent{Type: player.RawState, Data: 1}))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, ws.WriteJSON(player.RawEvent{Type: player.RawError, Data: 150}))

	require.Eventually(t, func() bool { return len(sink.All()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, player.RawEvent{Type: player.RawError, Data: 150}, sink.All()[2])

	ws.Close()
	require.Eventually(t, func() bool { return !mount.Attached() }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, mount.Mute(), player.ErrHostUnavailable)
}

func TestHostMountReplacesOlderHost(t *testing.T) {
	mount := NewHostMount("")
	attaches := make(chan struct{}, 2)
	mount.OnAttach(func() { attaches <- struct{}{} })
	server := httptest.NewServer(mount)
	defer server.Close()

	first := dialHost(t, server)
	require.Eventually(t, mount.Attached, time.Second, 5*time.Millisecond)

	second := dialHost(t, server)

	_ = first.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := first.ReadMessage()
	assert.Error(t, err, "older host connection is closed")

	require.NoError(t, mount.Resume())
	var cmd map[string]any
	_ = second.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, second.ReadJSON(&cmd))
	assert.Equal(t, HostResume, cmd["type"])
	assert.True(t, mount.Attached())
	require.Eventually(t, func() bool { return len(attaches) == 2 }, time.Second, 5*time.Millisecond)
}

func TestHostMountDrivesAdapter(t *testing.T) {
	mount := NewHostMount("")
	adapter := player.NewAdapter(mount.Acquire, player.WithRetry(200, 5*time.Millisecond))
	mount.Handle(adapter.HandleRaw)

	server := httptest.NewServer(mount)
	defer server.Close()

	initErr := make(chan error, 1)
	go func() { initErr <- adapter.Init(context.Background()) }()

	ws := dialHost(t, server)
	require.NoError(t, <-initErr)
	require.NoError(t, ws.WriteJSON(player.RawEvent{Type: player.RawReady}))

	select {
	case ev := <-adapter.Events():
		assert.Equal(t, player.EventReady, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("adapter never became ready")
	}

	require.NoError(t, adapter.Pause())
	var cmd map[string]any
	_ = ws.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, ws.ReadJSON(&cmd))
	assert.Equal(t, HostPause, cmd["type"])
}

func readHostCommand(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	var cmd map[string]any
	_ = ws.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, ws.ReadJSON(&cmd))
	return cmd
}

func TestReplacementHostGetsSessionState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mount := NewHostMount("")
	adapter := player.NewAdapter(mount.Acquire, player.WithRetry(200, 5*time.Millisecond))
	mount.Handle(adapter.HandleRaw)
	mount.OnAttach(func() { adapter.HostAttached(ctx) })

	sess := session.New(adapter, nil, NewBroadcaster(startHub(t), nil))
	go sess.Run(ctx)
	go func() { _ = adapter.Init(ctx) }()

	server := httptest.NewServer(mount)
	defer server.Close()

	first := dialHost(t, server)
	require.NoError(t, first.WriteJSON(player.RawEvent{Type: player.RawReady}))
	require.Eventually(t, func() bool { return sess.State().IsPlayerReady }, 2*time.Second, 5*time.Millisecond)

	tr, err := catalog.NewTrack("t1", "abc", catalog.ProviderYouTube)
	require.NoError(t, err)
	require.NoError(t, sess.SetVolume(ctx, 30))
	require.NoError(t, sess.ToggleMute(ctx))
	require.NoError(t, sess.Play(ctx, tr, nil))
	require.NoError(t, first.WriteJSON(player.RawEvent{Type: player.RawState, Data: 1}))
	require.Eventually(t, func() bool { return sess.State().IsPlaying }, time.Second, 5*time.Millisecond)

	second := dialHost(t, server)
	require.Eventually(t, func() bool { return !sess.State().IsPlayerReady }, time.Second, 5*time.Millisecond)
	assert.False(t, sess.State().IsPlaying)

	require.NoError(t, second.WriteJSON(player.RawEvent{Type: player.RawReady}))
	require.Eventually(t, func() bool { return sess.State().IsPlayerReady }, time.Second, 5*time.Millisecond)

	assert.Equal(t, HostVolume, readHostCommand(t, second)["type"])
	assert.Equal(t, HostMute, readHostCommand(t, second)["type"])
	load := readHostCommand(t, second)
	assert.Equal(t, HostLoad, load["type"])
	assert.Equal(t, "abc", load["media"].(map[string]any)["sourceId"])

	st := sess.State()
	assert.True(t, st.Muted)
	assert.Equal(t, 30, st.Volume)
	assert.Equal(t, "t1", st.CurrentTrack.ID)
}
