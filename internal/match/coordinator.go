// internal/match/coordinator.go
package match

import "github.com/codeclash/codeclash/internal/models"

// AllReady reports whether every participant has flagged ready. A lobby with
// zero members is NOT ready: the vacuously-true predicate must never trigger
// a round advance. This is the single quorum check used by both the in-round
// and the between-rounds advance paths.
func AllReady(lob *models.Lobby) bool {
	if len(lob.Users) == 0 {
		return false
	}
	for _, u := range lob.Users {
		if !u.IsReady {
			return false
		}
	}
	return true
}
