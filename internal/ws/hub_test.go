// internal/ws/hub_test.go
package ws

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewHub(logger)
}

func addConn(h *Hub) *Conn {
	_, cancel := context.WithCancel(context.Background())
	conn := &Conn{
		ID:      uuid.New(),
		OutChan: make(chan Envelope, 16),
		Cancel:  cancel,
	}
	h.Register(conn)
	return conn
}

func drain(conn *Conn) []Envelope {
	var out []Envelope
	for {
		select {
		case env := <-conn.OutChan:
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestRoomScopedBroadcast(t *testing.T) {
	h := newTestHub()
	a := addConn(h)
	b := addConn(h)
	c := addConn(h)

	h.JoinRoom(a.ID, "room1")
	h.JoinRoom(b.ID, "room1")
	h.JoinRoom(c.ID, "room2")

	h.BroadcastToRoom("room1", "user_ready", map[string]interface{}{"lobby": "room1"})

	require.Len(t, drain(a), 1)
	require.Len(t, drain(b), 1)
	assert.Empty(t, drain(c), "other rooms must not receive room-scoped events")
}

func TestEmitToTargetsOneConnection(t *testing.T) {
	h := newTestHub()
	a := addConn(h)
	b := addConn(h)

	h.EmitTo(a.ID, "successful_enter", "hi")

	got := drain(a)
	require.Len(t, got, 1)
	assert.Equal(t, "successful_enter", got[0].Event)
	assert.Empty(t, drain(b))
}

func TestGlobalBroadcastIgnoresRooms(t *testing.T) {
	h := newTestHub()
	a := addConn(h)
	b := addConn(h)
	h.JoinRoom(a.ID, "room1")

	h.BroadcastGlobal("user_joined", "payload")

	require.Len(t, drain(a), 1)
	require.Len(t, drain(b), 1)
}

func TestConnectionLifecycle(t *testing.T) {
	h := newTestHub()
	a := addConn(h)
	b := addConn(h)
	h.JoinRoom(a.ID, "room1")
	assert.Equal(t, 2, h.ClientCount())

	count := h.Unregister(a.ID)
	assert.Equal(t, 1, count)

	// The departed connection's channel is closed and it is out of its rooms.
	_, open := <-a.OutChan
	assert.False(t, open)
	h.BroadcastToRoom("room1", "user_ready", nil)
	assert.Empty(t, drain(b))

	// Unregistering twice is harmless.
	assert.Equal(t, 1, h.Unregister(a.ID))
}

func TestWriteAfterUnregisterIsDropped(t *testing.T) {
	h := newTestHub()
	conn := addConn(h)
	h.JoinRoom(conn.ID, "room1")
	h.Unregister(conn.ID)

	// A broadcaster that snapshotted the conn before it went away must drop
	// the envelope, not panic on the closed channel.
	assert.NotPanics(t, func() {
		conn.Write(Envelope{Event: "user_ready"})
	})
	assert.NotPanics(t, conn.Close)
}

func TestBroadcastRacingUnregister(t *testing.T) {
	h := newTestHub()
	conns := make([]*Conn, 0, 64)
	for i := 0; i < 64; i++ {
		conn := addConn(h)
		h.JoinRoom(conn.ID, "room1")
		conns = append(conns, conn)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.BroadcastToRoom("room1", "user_ready", nil)
			h.BroadcastGlobal("user_joined", nil)
		}
	}()
	go func() {
		defer wg.Done()
		for _, conn := range conns {
			h.Unregister(conn.ID)
		}
	}()
	wg.Wait()

	assert.Equal(t, 0, h.ClientCount())
}

func TestWriteDropsWhenFull(t *testing.T) {
	h := newTestHub()
	conn := &Conn{ID: uuid.New(), OutChan: make(chan Envelope, 1)}
	h.Register(conn)

	h.EmitTo(conn.ID, "a", nil)
	h.EmitTo(conn.ID, "b", nil) // dropped, must not block

	got := drain(conn)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Event)
}
