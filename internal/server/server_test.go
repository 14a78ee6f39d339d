package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/flatsim/internal/core/observability/log"
	"github.com/zeusync/flatsim/internal/core/systems/physics"
	"github.com/zeusync/flatsim/internal/core/systems/physics/geom"
)

func testWorld(t *testing.T) *physics.World {
	t.Helper()
	w := physics.NewWorld()
	ground, err := physics.NewBoxBody(10, 1, geom.V(0, -2), 1, true, 0.5)
	require.NoError(t, err)
	ball, err := physics.NewCircleBody(0.5, geom.V(0, 2), 1, false, 0.5)
	require.NoError(t, err)
	require.NoError(t, w.AddBody(ground))
	require.NoError(t, w.AddBody(ball))
	return w
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.TickInterval = 5 * time.Millisecond
	cfg.BroadcastEvery = 1
	return cfg
}

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s, err := NewServer(cfg, testWorld(t), log.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dial(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) physics.Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap physics.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	return snap
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := map[string]func(*Config){
		"empty address":     func(c *Config) { c.ListenAddr = "" },
		"zero tick":         func(c *Config) { c.TickInterval = 0 },
		"zero broadcast":    func(c *Config) { c.BroadcastEvery = 0 },
		"no clients":        func(c *Config) { c.MaxClients = 0 },
		"unbuffered client": func(c *Config) { c.ClientBufferSize = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

			_, err := NewServer(cfg, physics.NewWorld(), nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := NewServer(DefaultConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestServerLifecycle(t *testing.T) {
	s, err := NewServer(testConfig(), testWorld(t), nil)
	require.NoError(t, err)
	assert.Nil(t, s.Addr())
	assert.ErrorIs(t, s.Stop(context.Background()), ErrServerNotRunning)
	assert.ErrorIs(t, s.Wait(), ErrServerNotRunning)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	assert.ErrorIs(t, s.Start(ctx), ErrServerAlreadyRunning)
	assert.True(t, s.GetStats().Running)

	require.Eventually(t, func() bool { return s.World().Stats().Steps > 3 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(ctx))
	assert.ErrorIs(t, s.Stop(ctx), ErrServerNotRunning)
	assert.False(t, s.GetStats().Running)

	steps := s.World().Stats().Steps
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, steps, s.World().Stats().Steps, "no steps after Stop")

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Start(ctx), ErrServerClosed)
}

func TestServerListenFailure(t *testing.T) {
	s := startServer(t, testConfig())

	cfg := testConfig()
	cfg.ListenAddr = s.Addr().String()
	other, err := NewServer(cfg, testWorld(t), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, other.Start(context.Background()), ErrListenerFailed)
	assert.False(t, other.GetStats().Running)
}

func TestWebSocketStreamsSnapshots(t *testing.T) {
	s := startServer(t, testConfig())
	conn := dial(t, s)

	first := readSnapshot(t, conn)
	require.Len(t, first.Bodies, 2)
	assert.Equal(t, "polygon", first.Bodies[0].Shape)
	assert.Equal(t, "circle", first.Bodies[1].Shape)

	var later physics.Snapshot
	for i := 0; i < 5; i++ {
		later = readSnapshot(t, conn)
	}
	assert.Greater(t, later.Step, first.Step)
	assert.Less(t, later.Bodies[1].Position[1], 2.0, "ball falls")
	assert.Equal(t, geom.V(0, -2), later.Bodies[0].Position)

	require.Eventually(t, func() bool { return s.GetStats().Broadcast > 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketMaxClients(t *testing.T) {
	cfg := testConfig()
	cfg.MaxClients = 1
	s := startServer(t, cfg)

	first := dial(t, s)
	readSnapshot(t, first)

	second := dial(t, s)
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := second.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "%v", err)
	assert.Equal(t, 1, s.GetStats().Clients)
}

func TestStopClosesClients(t *testing.T) {
	s := startServer(t, testConfig())
	conn := dial(t, s)
	readSnapshot(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "%v", err)
	assert.Equal(t, 0, s.GetStats().Clients)
}

func TestHealthz(t *testing.T) {
	s := startServer(t, testConfig())
	require.Eventually(t, func() bool { return s.World().Stats().Steps > 0 }, 2*time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr().String() + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Bodies)
	assert.Positive(t, health.Steps)
	assert.NotZero(t, health.Checksum)
}

func TestHandlersBeforeStart(t *testing.T) {
	s, err := NewServer(testConfig(), testWorld(t), nil)
	require.NoError(t, err)
	handler := s.routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap physics.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, uint64(0), snap.Step)
	assert.Len(t, snap.Bodies, 2)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHubRefusesClientsAfterClose(t *testing.T) {
	h := newHub(testConfig(), log.NewNop())

	first := &client{send: make(chan []byte, 1)}
	require.NoError(t, h.add(first))

	h.closeAll()
	assert.Equal(t, 0, h.count())
	_, open := <-first.send
	assert.False(t, open, "send queue is closed")

	late := &client{send: make(chan []byte, 1)}
	assert.ErrorIs(t, h.add(late), ErrServerNotRunning)
	assert.Equal(t, 0, h.count())

	h.open()
	require.NoError(t, h.add(late))
	assert.Equal(t, 1, h.count())
}

func TestUpgradeDuringShutdownIsRejected(t *testing.T) {
	s := startServer(t, testConfig())

	// Clients drained while the HTTP server is still accepting upgrades.
	s.hub.closeAll()

	conn := dial(t, s)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "%v", err)
	assert.Equal(t, 0, s.GetStats().Clients)
}

func TestRestartAcceptsClients(t *testing.T) {
	s := startServer(t, testConfig())
	ctx := context.Background()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Start(ctx))

	conn := dial(t, s)
	snap := readSnapshot(t, conn)
	assert.Len(t, snap.Bodies, 2)
}
