package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"planhub-api/models"
	"planhub-api/pkg/events"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MembershipChecker validates that a WorkspaceMember record exists for
// (user, workspace). The hub calls it on every join; results are never
// cached across joins because membership may change.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, workspaceID int) (bool, error)
}

// ProfileLookup resolves a user's public profile at handshake time.
type ProfileLookup interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
}

// Conn is a single authenticated streaming session. Its room set and closed
// flag are owned by the Hub and mutated only under the Hub's lock.
type Conn struct {
	ID     string
	UserID int
	User   *models.PublicUser

	send   chan []byte
	rooms  map[int]struct{}
	closed bool
}

// Envelope is the wire frame for every hub<->client message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub manages authenticated connections, workspace rooms, and event relay.
// Rooms exist only as the union of their current members; an empty room is
// removed. The hub holds no durable state.
type Hub struct {
	mu    sync.Mutex
	rooms map[int]map[*Conn]struct{}

	members   MembershipChecker
	users     ProfileLookup
	jwtSecret []byte
	logger    *slog.Logger
}

func NewHub(members MembershipChecker, users ProfileLookup, jwtSecret string) *Hub {
	return &Hub{
		rooms:     make(map[int]map[*Conn]struct{}),
		members:   members,
		users:     users,
		jwtSecret: []byte(jwtSecret),
		logger:    slog.Default(),
	}
}

// Authenticate validates the bearer credential and resolves the user's
// profile. It must succeed before the connection can join any room.
func (h *Hub) Authenticate(ctx context.Context, credential string) (*Conn, error) {
	if credential == "" {
		return nil, &AuthError{Reason: ReasonMissing}
	}
	token, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &AuthError{Reason: ReasonExpired}
		}
		return nil, &AuthError{Reason: ReasonInvalid}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, &AuthError{Reason: ReasonInvalid}
	}
	rawID, ok := claims["userId"].(float64)
	if !ok {
		return nil, &AuthError{Reason: ReasonInvalid}
	}

	user, err := h.users.GetUser(ctx, int(rawID))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &AuthError{Reason: ReasonUserNotFound}
	}

	return &Conn{
		ID:     uuid.NewString(),
		UserID: user.ID,
		User:   user.Public(),
		send:   make(chan []byte, 256),
		rooms:  make(map[int]struct{}),
	}, nil
}

// Join re-validates workspace membership, adds the connection to the room,
// notifies the other members with user:online, and replies to the joiner
// with the room's current presence list. Idempotent: a repeated join does
// not duplicate membership or re-emit user:online.
func (h *Hub) Join(ctx context.Context, c *Conn, workspaceID int) error {
	ok, err := h.members.IsMember(ctx, c.UserID, workspaceID)
	if err != nil {
		h.sendEvent(c, events.Error, events.ErrorPayload{Message: "Failed to join workspace"})
		return err
	}
	if !ok {
		h.sendEvent(c, events.Error, events.ErrorPayload{Message: "Not a member of this workspace"})
		return &AccessError{UserID: c.UserID, WorkspaceID: workspaceID}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return nil
	}

	room, exists := h.rooms[workspaceID]
	if !exists {
		room = make(map[*Conn]struct{})
		h.rooms[workspaceID] = room
	}
	_, already := room[c]
	room[c] = struct{}{}
	c.rooms[workspaceID] = struct{}{}

	if !already {
		h.emitLocked(workspaceID, c, events.UserOnline, events.PresenceChange{
			UserID:      c.UserID,
			User:        c.User,
			WorkspaceID: workspaceID,
		})
	}

	// Presence snapshot goes to the joiner only, so it can render
	// immediately without waiting for individual online events.
	online := make([]events.OnlineUser, 0, len(room))
	for member := range room {
		online = append(online, events.OnlineUser{UserID: member.UserID, User: member.User})
	}
	h.trySend(c, events.WorkspaceOnlineUsers, events.OnlineUsers{
		WorkspaceID: workspaceID,
		Users:       online,
	})

	h.logger.Info("joined workspace room", "user", c.UserID, "workspace", workspaceID, "members", len(room))
	return nil
}

// Leave removes the connection from the room if present and tells the
// remaining members it went offline. No-op for non-members.
func (h *Hub) Leave(c *Conn, workspaceID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, workspaceID)
}

func (h *Hub) leaveLocked(c *Conn, workspaceID int) {
	room, exists := h.rooms[workspaceID]
	if !exists {
		return
	}
	if _, member := room[c]; !member {
		return
	}
	delete(room, c)
	delete(c.rooms, workspaceID)
	if len(room) == 0 {
		delete(h.rooms, workspaceID)
	}
	h.emitLocked(workspaceID, c, events.UserOffline, events.PresenceChange{
		UserID:      c.UserID,
		User:        c.User,
		WorkspaceID: workspaceID,
	})
}

// Disconnect leaves every room the connection belongs to, with the same
// offline semantics as Leave, then discards the connection. Safe to call
// multiple times; only the first call has any effect.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	for workspaceID := range c.rooms {
		h.leaveLocked(c, workspaceID)
	}
	c.closed = true
	close(c.send)
	h.logger.Info("connection closed", "user", c.UserID, "conn", c.ID)
}

// Broadcast relays an event to every connection currently in the workspace's
// room. Best-effort: members that joined after this call do not receive it,
// and there is no replay. Implements notify.Broadcaster.
func (h *Hub) Broadcast(workspaceID int, event string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, exists := h.rooms[workspaceID]
	if !exists {
		return
	}
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast", "event", event, "err", err)
		return
	}
	for member := range room {
		h.trySendRaw(member, event, msg)
	}
}

// Presence returns the users currently joined to the workspace's room.
func (h *Hub) Presence(workspaceID int) []events.OnlineUser {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[workspaceID]
	online := make([]events.OnlineUser, 0, len(room))
	for member := range room {
		online = append(online, events.OnlineUser{UserID: member.UserID, User: member.User})
	}
	return online
}

// emitLocked sends an event to every member of the room except the origin.
// Caller must hold h.mu.
func (h *Hub) emitLocked(workspaceID int, origin *Conn, event string, payload interface{}) {
	room, exists := h.rooms[workspaceID]
	if !exists {
		return
	}
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("failed to marshal event", "event", event, "err", err)
		return
	}
	for member := range room {
		if member == origin {
			continue
		}
		h.trySendRaw(member, event, msg)
	}
}

// sendEvent delivers an event to a single connection.
func (h *Hub) sendEvent(c *Conn, event string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trySend(c, event, payload)
}

// trySend marshals and delivers to one connection. Caller must hold h.mu.
func (h *Hub) trySend(c *Conn, event string, payload interface{}) {
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("failed to marshal event", "event", event, "err", err)
		return
	}
	h.trySendRaw(c, event, msg)
}

// trySendRaw drops the message rather than block when the member's buffer is
// full; the write pump's deadlines take care of genuinely dead connections.
// Caller must hold h.mu, which also guarantees the channel is not closed
// mid-send and that every member observes one room's events in issue order.
func (h *Hub) trySendRaw(c *Conn, event string, msg []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("dropping event for slow consumer", "user", c.UserID, "event", event)
	}
}

func marshalEnvelope(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
