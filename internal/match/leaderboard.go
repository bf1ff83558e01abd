// internal/match/leaderboard.go
package match

import "github.com/codeclash/codeclash/internal/models"

// Winner is the outcome of a finished match.
type Winner struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// ComputeWinner tallies round completions per username and returns the user
// with the most. Ties break to the lexicographically smallest username, so
// the result never depends on map iteration order.
func ComputeWinner(results []models.RoundResult) Winner {
	tally := make(map[string]int, len(results))
	for _, r := range results {
		tally[r.Username]++
	}

	var win Winner
	for username, score := range tally {
		if score > win.Score || (score == win.Score && (win.Username == "" || username < win.Username)) {
			win = Winner{Username: username, Score: score}
		}
	}
	return win
}
