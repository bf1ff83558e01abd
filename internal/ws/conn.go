// internal/ws/conn.go
package ws

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Envelope is the wire format in both directions:
// {"event": "...", "data": {...}}.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Conn is one client's presence in the hub. Outbound traffic goes through the
// buffered OutChan drained by the connection's write pump.
type Conn struct {
	ID      uuid.UUID
	OutChan chan Envelope
	Cancel  context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Write pushes an envelope onto OutChan without blocking. A full channel
// drops the message and logs the event type; a connection already torn down
// drops it silently. Broadcasters hold conn snapshots outside the hub lock,
// so the closed check and the send share c.mu with Close.
func (c *Conn) Write(env Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.OutChan <- env:
	default:
		log.Printf("ws: OutChan for conn %s full, dropped event %q", c.ID, env.Event)
	}
}

// Close tears the connection down: marks it closed so in-flight writes drop,
// closes OutChan to end the write pump and cancels the pump context. Closing
// twice is a no-op.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.OutChan)
	if c.Cancel != nil {
		c.Cancel()
	}
}

// WriteError is a convenience to send the generic error event.
func (c *Conn) WriteError(code, message string) {
	c.Write(Envelope{
		Event: "error",
		Data:  map[string]interface{}{"code": code, "message": message},
	})
}
