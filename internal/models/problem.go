// internal/models/problem.go
package models

// Problem is a reference entry in a lobby's fixed round sequence.
type Problem struct {
	Title      string `json:"title"`
	Difficulty string `json:"difficulty,omitempty"`
}

// ProblemContent is the per-language playable body of a problem, resolved
// through the problem store when a round begins.
type ProblemContent struct {
	Title       string `json:"title"`
	Language    string `json:"language"`
	Description string `json:"description"`
	StarterCode string `json:"starterCode"`
}
