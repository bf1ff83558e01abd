// internal/problems/store.go
package problems

import (
	"context"
	"errors"

	"github.com/codeclash/codeclash/internal/models"
)

// ErrNotFound is returned when no playable content exists for a
// title/language pair.
var ErrNotFound = errors.New("problems: not found")

// Store resolves problem content and supplies problem sets for new lobbies.
type Store interface {
	// FindByTitleAndLanguage fetches the playable body of a problem in the
	// given implementation language.
	FindByTitleAndLanguage(ctx context.Context, title, language string) (*models.ProblemContent, error)

	// RandomSet picks n distinct problems to seed a fresh lobby's round
	// sequence.
	RandomSet(ctx context.Context, n int) ([]models.Problem, error)
}
