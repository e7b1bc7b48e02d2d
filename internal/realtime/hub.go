package realtime

import (
	"encoding/json"
	"sync"

	"github.com/bhojansetu/bhojansetu/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub tracks connected clients and the rooms they joined.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[uuid.UUID]map[*Client]struct{}
	clients map[*Client]struct{}
	closed  bool

	log     *zap.Logger
	metrics *metrics.Manager
}

func NewHub(log *zap.Logger, m *metrics.Manager) *Hub {
	return &Hub{
		rooms:   make(map[uuid.UUID]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		log:     log,
		metrics: m,
	}
}

// Register adds a client. It returns false once the hub is closed.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.ConnectionOpened()
	return true
}

// Unregister removes the client from every room and closes its queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		h.detachLocked(c)
	}
	h.mu.Unlock()

	if ok {
		h.metrics.ConnectionClosed()
		c.closeSend()
	}
}

func (h *Hub) Join(room uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) Leave(room uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

// Deliver sends the event to every local member of its room. Members whose
// queue is full are dropped.
func (h *Hub) Deliver(ev Event) {
	payload, err := json.Marshal(ev.Frame)
	if err != nil {
		h.log.Error("encode realtime frame", zap.Error(err))
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[ev.Room]))
	for c := range h.rooms[ev.Room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.enqueue(payload) {
			h.log.Warn("dropping slow realtime client",
				zap.String("user_id", c.principal.ID.String()),
				zap.String("room", ev.Room.String()))
			h.Unregister(c)
		}
	}
}

// RoomSize returns the number of local clients in the room.
func (h *Hub) RoomSize(room uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close disconnects every client and rejects new registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}

func (h *Hub) detachLocked(c *Client) {
	for room := range c.rooms {
		h.leaveLocked(room, c)
	}
	delete(h.clients, c)
}

func (h *Hub) leaveLocked(room uuid.UUID, c *Client) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}
