// internal/models/lobby.go
package models

// Participant is a lobby member: a username plus a readiness flag.
// Participants are created on join and mutated by ready/unready events.
type Participant struct {
	Username string `json:"username"`
	IsReady  bool   `json:"isReady"`
}

// RoundResult is an immutable completion fact: "this username finished this
// problem". The leaderboard is an append-only multiset of these.
type RoundResult struct {
	Username     string `json:"username"`
	ProblemTitle string `json:"problemTitle"`
}

// Lobby is the aggregate root, keyed by its unique Name. The Version field is
// the optimistic-concurrency token: FetchFull returns it and CompareAndSwap
// refuses to persist a snapshot whose Version no longer matches the store.
type Lobby struct {
	Name         string        `json:"name"`
	Users        []Participant `json:"users"`
	Host         string        `json:"host"`
	Problems     []Problem     `json:"problems"`
	Started      bool          `json:"started"`
	NumRounds    int           `json:"numRounds"`
	CurrentRound int           `json:"currentRound"`
	Leaderboard  []RoundResult `json:"leaderboard"`
	Version      int64         `json:"version"`
}

// Member returns a pointer to the participant with the given username, or nil.
func (l *Lobby) Member(username string) *Participant {
	for i := range l.Users {
		if l.Users[i].Username == username {
			return &l.Users[i]
		}
	}
	return nil
}

// RoundNumber is the 1-based display counter derived from CurrentRound.
// A single authoritative index is kept; the old secondary counter is gone.
func (l *Lobby) RoundNumber() int {
	return l.CurrentRound + 1
}

// Finished reports whether every round has been consumed.
func (l *Lobby) Finished() bool {
	return l.CurrentRound >= l.NumRounds
}

// ResetReadiness marks every participant unready, e.g. on match start and
// between rounds.
func (l *Lobby) ResetReadiness() {
	for i := range l.Users {
		l.Users[i].IsReady = false
	}
}

// Clone returns a deep copy suitable for local mutation before a
// CompareAndSwap round trip.
func (l *Lobby) Clone() *Lobby {
	cp := *l
	cp.Users = append([]Participant(nil), l.Users...)
	cp.Problems = append([]Problem(nil), l.Problems...)
	cp.Leaderboard = append([]RoundResult(nil), l.Leaderboard...)
	return &cp
}
