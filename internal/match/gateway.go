// internal/match/gateway.go
package match

import "github.com/google/uuid"

// Gateway is the transport surface the state machine drives. A "room" is the
// broadcast scope of one lobby name; connections join it on a successful
// join_lobby. No business logic lives behind this interface.
type Gateway interface {
	JoinRoom(connID uuid.UUID, room string)
	EmitTo(connID uuid.UUID, event string, payload interface{})
	BroadcastToRoom(room, event string, payload interface{})
	BroadcastGlobal(event string, payload interface{})
}
