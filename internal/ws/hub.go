// internal/ws/hub.go
package ws

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Hub is the process-wide connection registry plus room routing. Rooms map a
// lobby name to the connections that joined it; the hub carries no business
// logic, it only delivers. Register/Unregister give the connection count an
// explicit lifecycle instead of a free-floating global counter.
type Hub struct {
	mu    sync.Mutex
	log   *logrus.Logger
	conns map[uuid.UUID]*Conn
	rooms map[string]map[uuid.UUID]*Conn
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log:   log,
		conns: make(map[uuid.UUID]*Conn),
		rooms: make(map[string]map[uuid.UUID]*Conn),
	}
}

// Register adds a connection to the hub and returns the live client count.
func (h *Hub) Register(conn *Conn) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID] = conn
	return len(h.conns)
}

// Unregister removes the connection from the hub and every room it joined,
// closes its outbound channel and returns the remaining client count.
func (h *Hub) Unregister(id uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[id]
	if !ok {
		return len(h.conns)
	}
	delete(h.conns, id)
	for room, members := range h.rooms {
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	conn.Close()
	return len(h.conns)
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// JoinRoom subscribes a connection to a room. Joining twice is a no-op.
func (h *Hub) JoinRoom(connID uuid.UUID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[connID]
	if !ok {
		h.log.Warnf("ws: JoinRoom for unknown conn %s", connID)
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[uuid.UUID]*Conn)
		h.rooms[room] = members
	}
	members[connID] = conn
}

// EmitTo delivers an event to a single connection.
func (h *Hub) EmitTo(connID uuid.UUID, event string, payload interface{}) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	h.mu.Unlock()
	if !ok {
		return
	}
	conn.Write(Envelope{Event: event, Data: payload})
}

// BroadcastToRoom delivers an event to every member of a room.
func (h *Hub) BroadcastToRoom(room, event string, payload interface{}) {
	h.mu.Lock()
	members := make([]*Conn, 0, len(h.rooms[room]))
	for _, conn := range h.rooms[room] {
		members = append(members, conn)
	}
	h.mu.Unlock()

	for _, conn := range members {
		conn.Write(Envelope{Event: event, Data: payload})
	}
}

// BroadcastGlobal delivers an event to every live connection, regardless of
// room membership.
func (h *Hub) BroadcastGlobal(event string, payload interface{}) {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Write(Envelope{Event: event, Data: payload})
	}
}
