// internal/registry/memory.go
package registry

import (
	"context"
	"sync"

	"github.com/codeclash/codeclash/internal/models"
)

// Memory is a mutex-guarded in-process Registry. It backs tests and the
// single-node dev mode; the per-store lock gives the same per-key atomicity
// the Redis implementation gets from WATCH.
type Memory struct {
	mu      sync.Mutex
	lobbies map[string]*models.Lobby
	seed    SeedFunc
}

// NewMemory returns an empty in-memory registry. seed may be nil, in which
// case implicitly created lobbies start with no problems (NumRounds 0).
func NewMemory(seed SeedFunc) *Memory {
	return &Memory{
		lobbies: make(map[string]*models.Lobby),
		seed:    seed,
	}
}

func (m *Memory) JoinIfAbsent(ctx context.Context, lobbyName, username string) (*models.Lobby, bool, error) {
	m.mu.Lock()
	lob, ok := m.lobbies[lobbyName]
	m.mu.Unlock()

	if !ok {
		// Seed outside the lock; the store may be hit again concurrently and
		// only one creator wins below.
		var problems []models.Problem
		if m.seed != nil {
			var err error
			if problems, err = m.seed(ctx, lobbyName); err != nil {
				return nil, false, err
			}
		}
		m.mu.Lock()
		if existing, raced := m.lobbies[lobbyName]; raced {
			lob = existing
		} else {
			lob = &models.Lobby{
				Name:      lobbyName,
				Host:      username,
				Problems:  problems,
				NumRounds: len(problems),
				Version:   1,
			}
			m.lobbies[lobbyName] = lob
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	lob = m.lobbies[lobbyName]
	if lob.Member(username) != nil {
		return lob.Clone(), false, nil
	}
	lob.Users = append(lob.Users, models.Participant{Username: username})
	lob.Version++
	return lob.Clone(), true, nil
}

func (m *Memory) SetReady(ctx context.Context, lobbyName, username string, ready bool) (*models.Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lob, ok := m.lobbies[lobbyName]
	if !ok {
		return nil, ErrNotFound
	}
	member := lob.Member(username)
	if member == nil {
		return nil, ErrNotFound
	}
	member.IsReady = ready
	lob.Version++
	return lob.Clone(), nil
}

func (m *Memory) FetchFull(ctx context.Context, lobbyName string) (*models.Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lob, ok := m.lobbies[lobbyName]
	if !ok {
		return nil, ErrNotFound
	}
	return lob.Clone(), nil
}

func (m *Memory) CompareAndSwap(ctx context.Context, lob *models.Lobby) (*models.Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.lobbies[lob.Name]
	if !ok {
		return nil, ErrNotFound
	}
	if cur.Version != lob.Version {
		return nil, ErrConflict
	}
	next := lob.Clone()
	next.Version++
	m.lobbies[lob.Name] = next
	return next.Clone(), nil
}
