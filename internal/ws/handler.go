// internal/ws/handler.go
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeclash/codeclash/internal/match"
)

// Handler upgrades the connection, registers it with the hub and runs the
// read/write pumps until the client goes away. Every inbound frame is routed
// to the state machine; a bad frame produces an error event, never a closed
// connection.
func Handler(logger *logrus.Logger, hub *Hub, machine *match.Machine, origin string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{origin},
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		ctx, cancel := context.WithCancel(r.Context())
		conn := &Conn{
			ID:      uuid.New(),
			OutChan: make(chan Envelope, 16),
			Cancel:  cancel,
		}
		count := hub.Register(conn)
		logger.WithFields(logrus.Fields{
			"conn":    conn.ID,
			"remote":  r.RemoteAddr,
			"clients": count,
		}).Info("client connected")

		go writePump(ctx, c, conn, logger)
		readPump(ctx, c, conn, machine, logger)

		count = hub.Unregister(conn.ID)
		logger.WithFields(logrus.Fields{
			"conn":    conn.ID,
			"clients": count,
		}).Info("client disconnected")
	}
}

// readPump decodes inbound envelopes and dispatches them until the connection
// closes or the context is cancelled.
func readPump(ctx context.Context, c *websocket.Conn, conn *Conn, machine *match.Machine, logger *logrus.Logger) {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return
			}
			if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("ws: read error for conn %s: %v", conn.ID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var frame struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(msg, &frame); err != nil {
			conn.WriteError(match.CodeInternal, "invalid JSON frame")
			continue
		}

		var ev match.Inbound
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &ev); err != nil {
				conn.WriteError(match.CodeInternal, "invalid event payload")
				continue
			}
		}
		machine.Dispatch(ctx, conn.ID, frame.Event, ev)
	}
}

// writePump drains OutChan onto the socket and keeps the connection alive
// with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				logger.Warnf("ws: marshal outgoing %q for conn %s: %v", env.Event, conn.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("ws: write failed for conn %s: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ws: ping failed for conn %s, assuming disconnect: %v", conn.ID, err)
				return
			}
		}
	}
}
