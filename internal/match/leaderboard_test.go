// internal/match/leaderboard_test.go
package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeclash/codeclash/internal/models"
)

func results(usernames ...string) []models.RoundResult {
	rs := make([]models.RoundResult, 0, len(usernames))
	for _, u := range usernames {
		rs = append(rs, models.RoundResult{Username: u, ProblemTitle: "two-sum"})
	}
	return rs
}

func TestComputeWinnerSimpleMajority(t *testing.T) {
	win := ComputeWinner(results("bob", "alice", "bob"))
	assert.Equal(t, "bob", win.Username)
	assert.Equal(t, 2, win.Score)
}

func TestComputeWinnerLexicographicTieBreak(t *testing.T) {
	// alice:2, bob:2, carol:1 -> alice wins the tie.
	win := ComputeWinner(results("bob", "alice", "carol", "alice", "bob"))
	assert.Equal(t, "alice", win.Username)
	assert.Equal(t, 2, win.Score)

	// Same multiset in a different arrival order must give the same answer.
	win = ComputeWinner(results("carol", "bob", "bob", "alice", "alice"))
	assert.Equal(t, "alice", win.Username)
}

func TestComputeWinnerEmptyResults(t *testing.T) {
	win := ComputeWinner(nil)
	assert.Equal(t, "", win.Username)
	assert.Equal(t, 0, win.Score)
}
