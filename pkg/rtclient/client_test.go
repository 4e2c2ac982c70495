package rtclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock fires every wait immediately and records the requested delays so
// the backoff schedule can be asserted without real sleeping.
type fakeClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.waits = append(f.waits, d)
	f.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func (f *fakeClock) recorded() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.waits))
	copy(out, f.waits)
	return out
}

// testServer accepts hub-side connections and records every request frame the
// client sends. An optional upgrade delay keeps dials in flight long enough
// to exercise session-teardown races.
type testServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	delay  time.Duration
	conns  []*websocket.Conn
	active int
	frames []envelope
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		delay := s.delay
		s.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		ws, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, ws)
		s.active++
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.active--
			s.mu.Unlock()
		}()
		for {
			var env envelope
			if err := ws.ReadJSON(&env); err != nil {
				return
			}
			s.mu.Lock()
			s.frames = append(s.frames, env)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *testServer) setUpgradeDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

func (s *testServer) activeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *testServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *testServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *testServer) conn(i int) *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[i]
}

func (s *testServer) joinRequests() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int
	for _, f := range s.frames {
		if f.Event != "join:workspace" {
			continue
		}
		var req workspaceRequest
		if json.Unmarshal(f.Data, &req) == nil {
			ids = append(ids, req.WorkspaceID)
		}
	}
	return ids
}

func TestInitialStateIsDisconnected(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws")
	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, 0, c.CurrentWorkspaceID())
}

func TestConnectAndDispatch(t *testing.T) {
	server := newTestServer(t)
	c := NewClient(server.url())
	defer c.Disconnect()

	received := make(chan json.RawMessage, 1)
	c.On("task:created", func(data json.RawMessage) {
		received <- data
	})

	c.Connect("token-1")
	require.Eventually(t, func() bool { return server.connCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return c.State() == StateConnected }, time.Second, 5*time.Millisecond)

	data, _ := json.Marshal(map[string]interface{}{"id": 1, "title": "Task"})
	require.NoError(t, server.conn(0).WriteJSON(envelope{Event: "task:created", Data: data}))

	select {
	case payload := <-received:
		var task map[string]interface{}
		require.NoError(t, json.Unmarshal(payload, &task))
		assert.Equal(t, "Task", task["title"])
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	server := newTestServer(t)
	c := NewClient(server.url())
	defer c.Disconnect()

	c.Connect("token-1")
	c.Connect("token-1")
	require.Eventually(t, func() bool { return c.State() == StateConnected }, time.Second, 5*time.Millisecond)

	// A second Connect while running must not open another session.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, server.connCount())
}

func TestFailedDialEntersReconnecting(t *testing.T) {
	clock := &fakeClock{}
	// Nothing listens here; every dial fails.
	c := NewClient("ws://127.0.0.1:1/ws").WithClock(clock)

	c.Connect("token-1")
	require.Eventually(t, func() bool { return c.State() == StateReconnecting }, time.Second, 5*time.Millisecond)

	c.Disconnect()
	assert.Equal(t, StateDisconnected, c.State())
}

func TestRestartWhileDialInFlightKeepsOneSession(t *testing.T) {
	server := newTestServer(t)
	server.setUpgradeDelay(200 * time.Millisecond)
	c := NewClient(server.url())
	defer c.Disconnect()

	// First session's dial is still waiting on the upgrade when the client
	// is torn down and restarted.
	c.Connect("token-1")
	time.Sleep(50 * time.Millisecond)
	c.Disconnect()
	c.Connect("token-2")

	// The superseded dial must surrender its socket instead of adopting it.
	require.Eventually(t, func() bool { return server.connCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return server.activeCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1, server.activeCount())
	assert.Equal(t, StateConnected, c.State())

	// The surviving session still owns the transport.
	c.JoinWorkspace(10)
	require.Eventually(t, func() bool { return len(server.joinRequests()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{10}, server.joinRequests())
}

func TestBackoffDoublesUntilCap(t *testing.T) {
	clock := &fakeClock{}
	// Nothing listens here; every dial fails.
	c := NewClient("ws://127.0.0.1:1/ws").WithClock(clock)

	c.Connect("token-1")
	require.Eventually(t, func() bool { return len(clock.recorded()) >= 5 }, 5*time.Second, 5*time.Millisecond)
	c.Disconnect()

	waits := clock.recorded()[:5]
	assert.Equal(t, []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
		5 * time.Second,
	}, waits)
}

func TestReconnectRejoinsWorkspace(t *testing.T) {
	server := newTestServer(t)
	clock := &fakeClock{}
	c := NewClient(server.url()).WithClock(clock)
	defer c.Disconnect()

	c.Connect("token-1")
	require.Eventually(t, func() bool { return c.State() == StateConnected }, time.Second, 5*time.Millisecond)

	c.JoinWorkspace(10)
	require.Eventually(t, func() bool { return len(server.joinRequests()) == 1 }, time.Second, 5*time.Millisecond)

	// Drop the transport out from under the client.
	_ = server.conn(0).Close()

	require.Eventually(t, func() bool { return server.connCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(server.joinRequests()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{10, 10}, server.joinRequests())
	assert.Equal(t, 10, c.CurrentWorkspaceID())
}

func TestServerCloseReconnectsWithoutDelay(t *testing.T) {
	server := newTestServer(t)
	clock := &fakeClock{}
	c := NewClient(server.url()).WithClock(clock)
	defer c.Disconnect()

	c.Connect("token-1")
	require.Eventually(t, func() bool { return server.connCount() == 1 }, time.Second, 5*time.Millisecond)

	// A deliberate server-side close skips the backoff wait entirely.
	deadline := time.Now().Add(time.Second)
	_ = server.conn(0).WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down"), deadline)
	_ = server.conn(0).Close()

	require.Eventually(t, func() bool { return server.connCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, clock.recorded())
}

func TestLeaveWorkspaceClearsRejoinIntent(t *testing.T) {
	server := newTestServer(t)
	c := NewClient(server.url())
	defer c.Disconnect()

	c.Connect("token-1")
	require.Eventually(t, func() bool { return c.State() == StateConnected }, time.Second, 5*time.Millisecond)

	c.JoinWorkspace(10)
	c.LeaveWorkspace(10)
	assert.Equal(t, 0, c.CurrentWorkspaceID())
}

func TestJoinWhileOfflineTakesEffectOnConnect(t *testing.T) {
	server := newTestServer(t)
	c := NewClient(server.url())
	defer c.Disconnect()

	// Record the intent before any connection exists.
	c.JoinWorkspace(10)
	assert.Equal(t, 10, c.CurrentWorkspaceID())

	c.Connect("token-1")
	require.Eventually(t, func() bool { return len(server.joinRequests()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{10}, server.joinRequests())
}

func TestOffRemovesHandler(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws")

	var calls int
	var mu sync.Mutex
	handler := func(json.RawMessage) {
		mu.Lock()
		calls++
		mu.Unlock()
	}
	c.On("task:created", handler)
	c.Off("task:created", handler)
	c.Off("task:created", handler)

	c.dispatch("task:created", nil)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestDisconnectResetsSession(t *testing.T) {
	server := newTestServer(t)
	c := NewClient(server.url())

	c.Connect("token-1")
	require.Eventually(t, func() bool { return c.State() == StateConnected }, time.Second, 5*time.Millisecond)
	c.JoinWorkspace(10)
	c.On("task:created", func(json.RawMessage) {})

	c.Disconnect()
	c.Disconnect()

	assert.Equal(t, StateDisconnected, c.State())
	assert.Equal(t, 0, c.CurrentWorkspaceID())

	// Handlers from the previous session must not fire after a reset.
	c.dispatch("task:created", nil)
}

func TestStateStringValues(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, 5*time.Second))
	assert.Equal(t, 4*time.Second, nextBackoff(2*time.Second, 5*time.Second))
	assert.Equal(t, 5*time.Second, nextBackoff(4*time.Second, 5*time.Second))
	assert.Equal(t, 5*time.Second, nextBackoff(5*time.Second, 5*time.Second))
}
