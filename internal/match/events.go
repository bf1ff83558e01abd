// internal/match/events.go
package match

// Inbound event types accepted from clients.
const (
	EventJoinLobby      = "join_lobby"
	EventUserReady      = "user_ready"
	EventUserUnready    = "user_unready"
	EventStartMatch     = "start_match"
	EventUserCompleted  = "user_completed"
	EventReadyNextMatch = "user_ready_next_match"
)

// Outbound event types.
const (
	EventSuccessfulEnter = "successful_enter" // to actor: hydrated lobby
	EventSuccessfulReady = "successful_ready" // to actor: {isReady}
	EventErrorJoining    = "error_joining"    // to actor: message
	EventError           = "error"            // to actor: {code, message}

	EventUserJoined     = "user_joined"     // global: hydrated lobby
	EventReadyUpdate    = "user_ready"      // room: hydrated lobby
	EventBeginMatch     = "begin_match"     // room: {lobby, roundNumber, problem}
	EventRoundCompleted = "round_completed" // room: {lobby, winner}
	EventGameCompleted  = "game_completed"  // room: {leaderboard, winner}
	EventNextRound      = "next_round"      // room: {lobby, roundNumber, problem}
)

// Error codes carried by the generic error event.
const (
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeUnauthorized = "unauthorized"
	CodeInternal     = "internal"
)

// Inbound is the payload shared by every client event: the acting user and
// the lobby the action targets.
type Inbound struct {
	Username string `json:"username"`
	Lobby    string `json:"lobby"`
}
