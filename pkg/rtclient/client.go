// Package rtclient owns one logical realtime connection per session. It
// hides transient network failures behind automatic reconnection with
// bounded exponential backoff and re-joins the last workspace after every
// reconnect, so application code never has to react to transport events.
package rtclient

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State is the connection lifecycle phase.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// Clock abstracts backoff timing so reconnection can be tested without
// real delays.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Handler receives the raw JSON payload of a relayed event.
type Handler func(data json.RawMessage)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type workspaceRequest struct {
	WorkspaceID int `json:"workspaceId"`
}

// Client maintains a single streaming connection to the hub.
type Client struct {
	url            string
	dialer         *websocket.Dialer
	initialBackoff time.Duration
	maxBackoff     time.Duration
	clock          Clock
	logger         *slog.Logger

	mu                 sync.Mutex
	state              State
	running            bool
	token              string
	conn               *websocket.Conn
	handlers           map[string][]Handler
	currentWorkspaceID int
	done               chan struct{}

	writeMu sync.Mutex
}

func NewClient(url string) *Client {
	return &Client{
		url:            url,
		dialer:         websocket.DefaultDialer,
		initialBackoff: time.Second,
		maxBackoff:     5 * time.Second,
		clock:          realClock{},
		logger:         slog.Default(),
		handlers:       make(map[string][]Handler),
	}
}

// WithBackoff overrides the reconnection delays.
func (c *Client) WithBackoff(initial, max time.Duration) *Client {
	c.initialBackoff = initial
	c.maxBackoff = max
	return c
}

// WithClock injects a clock for tests.
func (c *Client) WithClock(clock Clock) *Client {
	c.clock = clock
	return c
}

// Connect establishes the connection with the given credential. Idempotent
// while a connection attempt or session is active. Retries indefinitely
// until Disconnect is called.
func (c *Client) Connect(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.token = token
	c.state = StateConnecting
	c.done = make(chan struct{})
	go c.run(c.done)
}

// run owns one session generation, identified by its done channel. Every
// write to shared state checks that c.done is still this generation, so a
// goroutine whose session was torn down by Disconnect cannot adopt a socket
// or clobber the state of a newer session started by a later Connect.
func (c *Client) run(done chan struct{}) {
	backoff := c.initialBackoff
	skipDelay := false

	for {
		select {
		case <-done:
			return
		default:
		}

		c.mu.Lock()
		if c.done != done || !c.running {
			c.mu.Unlock()
			return
		}
		token := c.token
		c.mu.Unlock()

		ws, _, err := c.dialer.Dial(c.url+"?token="+token, nil)
		if err != nil {
			c.setState(done, StateReconnecting)
			c.logger.Warn("realtime dial failed", "err", err, "retryIn", backoff)
			select {
			case <-done:
				return
			case <-c.clock.After(backoff):
			}
			backoff = nextBackoff(backoff, c.maxBackoff)
			continue
		}

		c.mu.Lock()
		if c.done != done || !c.running {
			c.mu.Unlock()
			_ = ws.Close()
			return
		}
		c.conn = ws
		c.state = StateConnected
		rejoin := c.currentWorkspaceID
		c.mu.Unlock()

		backoff = c.initialBackoff
		c.logger.Info("realtime connected")

		// Restore room membership recorded before the interruption.
		if rejoin != 0 {
			c.sendRequest("join:workspace", workspaceRequest{WorkspaceID: rejoin})
		}

		serverClosed := c.readLoop(ws, done)

		c.mu.Lock()
		if c.done != done {
			c.mu.Unlock()
			return
		}
		c.conn = nil
		stopped := !c.running
		if c.running {
			c.state = StateReconnecting
		}
		c.mu.Unlock()
		if stopped {
			return
		}

		if serverClosed {
			// The server chose to drop us; reconnect right away instead of
			// waiting out the backoff timer, to minimize the presence gap.
			skipDelay = true
		}
		if skipDelay {
			skipDelay = false
			continue
		}
		select {
		case <-done:
			return
		case <-c.clock.After(backoff):
		}
		backoff = nextBackoff(backoff, c.maxBackoff)
	}
}

// readLoop dispatches incoming events until the connection fails. Reports
// whether the server initiated the close.
func (c *Client) readLoop(ws *websocket.Conn, done chan struct{}) bool {
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			_ = ws.Close()
			return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
		}
		select {
		case <-done:
			_ = ws.Close()
			return false
		default:
		}
		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			c.logger.Warn("discarding malformed frame", "err", err)
			continue
		}
		c.dispatch(env.Event, env.Data)
	}
}

// setState records the lifecycle phase for the given session generation.
// No-op when a newer session has taken over.
func (c *Client) setState(done chan struct{}, s State) {
	c.mu.Lock()
	if c.done == done {
		c.state = s
	}
	c.mu.Unlock()
}

func (c *Client) dispatch(event string, data json.RawMessage) {
	c.mu.Lock()
	registered := c.handlers[event]
	handlers := make([]Handler, len(registered))
	copy(handlers, registered)
	c.mu.Unlock()
	for _, h := range handlers {
		h(data)
	}
}

// JoinWorkspace records the workspace for auto-rejoin and, if connected,
// sends the join request now. If offline, the intent takes effect on the
// next successful connect.
func (c *Client) JoinWorkspace(workspaceID int) {
	c.mu.Lock()
	c.currentWorkspaceID = workspaceID
	connected := c.state == StateConnected && c.conn != nil
	c.mu.Unlock()
	if connected {
		c.sendRequest("join:workspace", workspaceRequest{WorkspaceID: workspaceID})
	}
}

// LeaveWorkspace clears the recorded workspace and, if connected, sends the
// leave request.
func (c *Client) LeaveWorkspace(workspaceID int) {
	c.mu.Lock()
	if c.currentWorkspaceID == workspaceID {
		c.currentWorkspaceID = 0
	}
	connected := c.state == StateConnected && c.conn != nil
	c.mu.Unlock()
	if connected {
		c.sendRequest("leave:workspace", workspaceRequest{WorkspaceID: workspaceID})
	}
}

// On registers a handler for an event. Multiple handlers per event are
// supported.
func (c *Client) On(event string, handler func(data json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

// Off removes a previously registered handler. Removing a handler that is
// not registered is a no-op.
func (c *Client) Off(event string, handler func(data json.RawMessage)) {
	target := reflect.ValueOf(handler).Pointer()
	c.mu.Lock()
	defer c.mu.Unlock()
	registered := c.handlers[event]
	for i, h := range registered {
		if reflect.ValueOf(h).Pointer() == target {
			c.handlers[event] = append(registered[:i], registered[i+1:]...)
			return
		}
	}
}

// Disconnect tears down the connection, cancels pending reconnection
// attempts, discards all handlers, and clears the recorded workspace. A
// later Connect starts with no workspace membership, matching sign-out.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.state = StateDisconnected
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.handlers = make(map[string][]Handler)
	c.currentWorkspaceID = 0
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// State reports the current lifecycle phase.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentWorkspaceID reports the workspace recorded for auto-rejoin, or 0.
func (c *Client) CurrentWorkspaceID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentWorkspaceID
}

func (c *Client) sendRequest(event string, payload interface{}) {
	c.mu.Lock()
	ws := c.conn
	c.mu.Unlock()
	if ws == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := ws.WriteJSON(envelope{Event: event, Data: data}); err != nil {
		c.logger.Warn("failed to send request", "event", event, "err", err)
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
