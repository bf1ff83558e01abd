// internal/registry/registry.go
package registry

import (
	"context"
	"errors"

	"github.com/codeclash/codeclash/internal/models"
)

var (
	// ErrNotFound is returned when a lobby or a member of it does not exist.
	ErrNotFound = errors.New("registry: not found")
	// ErrConflict is returned by CompareAndSwap when a concurrent writer
	// modified the lobby after the caller's snapshot was taken.
	ErrConflict = errors.New("registry: version conflict")
)

// SeedFunc supplies the problem sequence for a lobby created implicitly by
// its first join. The returned slice fixes NumRounds for the lobby lifetime.
type SeedFunc func(ctx context.Context, lobbyName string) ([]models.Problem, error)

// Registry is the durable-state contract for lobbies. Every operation is
// atomic with respect to a single lobby key; cross-lobby ordering is not
// guaranteed. Reads return fully hydrated aggregates (problems and host
// resolved inline), never lazily-joined partials.
type Registry interface {
	// JoinIfAbsent adds a participant with IsReady=false unless a member with
	// that username already exists. It creates the lobby on first join, with
	// the joiner as host and a seeded problem sequence. joined=false means
	// the user was already present; that is a no-op, not an error.
	JoinIfAbsent(ctx context.Context, lobbyName, username string) (lob *models.Lobby, joined bool, err error)

	// SetReady flips exactly one participant's readiness flag. ErrNotFound if
	// the lobby or the username is absent.
	SetReady(ctx context.Context, lobbyName, username string, ready bool) (*models.Lobby, error)

	// FetchFull reads the hydrated aggregate. ErrNotFound if absent.
	FetchFull(ctx context.Context, lobbyName string) (*models.Lobby, error)

	// CompareAndSwap persists a full snapshot only if no concurrent writer
	// has modified the lobby since the snapshot was read, else ErrConflict.
	// On success the returned lobby carries the new version.
	CompareAndSwap(ctx context.Context, lob *models.Lobby) (*models.Lobby, error)
}
