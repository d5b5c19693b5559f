package chatws

import (
	"sync"

	websocket "github.com/gofiber/contrib/websocket"
)

// Room name prefixes. Personal rooms receive direct deliveries for a user
// across every device, role rooms receive announcements for a whole role
// class, and session rooms scope delivery to one booking in progress.
const (
	personalRoomPrefix = "user:"
	roleRoomPrefix     = "role:"
	sessionRoomPrefix  = "session:"
)

func PersonalRoom(userID string) string { return personalRoomPrefix + userID }

func RoleRoom(role string) string { return roleRoomPrefix + role }

func SessionRoom(sessionID string) string { return sessionRoomPrefix + sessionID }

// Hub tracks live connections and their room memberships. Room membership and
// presence are deliberately separate structures: presence answers "is this
// user online" on a last-writer-wins basis, while room membership decides
// where payloads go, so a second open tab keeps receiving personal-room
// deliveries even though it no longer holds the presence slot.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]map[*Client]struct{}
	clientRooms map[*Client]map[string]struct{}
	presence    map[string]*Client
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	role   string

	sendMu sync.Mutex
	closed bool
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[string]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[string]struct{}),
		presence:    make(map[string]*Client),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, role string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		role:   role,
		send:   make(chan []byte, 32),
	}
}

func (c *Client) UserID() string { return c.userID }
func (c *Client) Role() string   { return c.role }

// trySend queues payload for the write pump without blocking. It reports
// false when the buffer is full or the client has already been removed.
// Sends and the close in closeSend share sendMu, so a payload can never hit
// a closed channel.
func (c *Client) trySend(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend shuts the send channel exactly once so the write pump drains the
// backlog and exits.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Register joins the client to its personal and role rooms and takes the
// presence slot for its user.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clientRooms[client]; ok {
		return
	}
	h.clientRooms[client] = make(map[string]struct{})
	h.joinLocked(client, PersonalRoom(client.userID))
	h.joinLocked(client, RoleRoom(client.role))
	h.presence[client.userID] = client
}

// Unregister removes the client from every room it joined and releases the
// presence slot if this client holds it. Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clientRooms[client]; !ok {
		return
	}
	h.joinLocked(client, room)
}

func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if memberships, ok := h.clientRooms[client]; ok {
		delete(memberships, room)
	}
	h.leaveLocked(client, room)
}

// Broadcast delivers payload to every member of the room. A room with no
// members is a silent no-op: nobody listening is an expected outcome, durable
// delivery is the store's job. Clients whose send buffer is full are dropped.
func (h *Hub) Broadcast(room string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}

	var stale []*Client
	for client := range members {
		if !client.trySend(payload) {
			stale = append(stale, client)
		}
	}
	for _, client := range stale {
		h.removeLocked(client)
	}
}

// SendToUser delivers payload to every live connection of the user.
func (h *Hub) SendToUser(userID string, payload []byte) {
	h.Broadcast(PersonalRoom(userID), payload)
}

// IsOnline reports best-effort presence for UI purposes only; delivery always
// goes through room membership.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.presence[userID]
	return ok
}

func (h *Hub) joinLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[client] = struct{}{}
	h.clientRooms[client][room] = struct{}{}
}

func (h *Hub) leaveLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) removeLocked(client *Client) {
	memberships, ok := h.clientRooms[client]
	if !ok {
		return
	}
	for room := range memberships {
		h.leaveLocked(client, room)
	}
	delete(h.clientRooms, client)

	if current, ok := h.presence[client.userID]; ok && current == client {
		delete(h.presence, client.userID)
	}

	client.closeSend()
}
