// internal/registry/redis.go
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/codeclash/codeclash/internal/models"
)

// watchRetries bounds internal replays of WATCH transactions that lost the
// race to another writer of the same key. These retries are for blind
// mutations only; CompareAndSwap surfaces the collision to the caller.
const watchRetries = 5

// Redis stores each lobby aggregate as a JSON document under lobby:<name>.
// Single-key mutations run inside WATCH-guarded transactions, which gives the
// per-lobby atomicity the contract requires without any cross-lobby lock.
type Redis struct {
	client *redis.Client
	seed   SeedFunc
}

// NewRedis wraps an already-connected client. seed supplies the problem
// sequence for lobbies created implicitly by their first join.
func NewRedis(client *redis.Client, seed SeedFunc) *Redis {
	return &Redis{client: client, seed: seed}
}

func lobbyKey(name string) string {
	return "lobby:" + name
}

func (r *Redis) JoinIfAbsent(ctx context.Context, lobbyName, username string) (*models.Lobby, bool, error) {
	var (
		out    *models.Lobby
		joined bool
	)
	txn := func(tx *redis.Tx) error {
		lob, err := getLobby(ctx, tx, lobbyName)
		if errors.Is(err, ErrNotFound) {
			var problems []models.Problem
			if r.seed != nil {
				if problems, err = r.seed(ctx, lobbyName); err != nil {
					return err
				}
			}
			lob = &models.Lobby{
				Name:      lobbyName,
				Host:      username,
				Problems:  problems,
				NumRounds: len(problems),
			}
		} else if err != nil {
			return err
		}

		if lob.Member(username) != nil {
			out, joined = lob, false
			return nil
		}
		lob.Users = append(lob.Users, models.Participant{Username: username})
		if err := putLobby(ctx, tx, lob); err != nil {
			return err
		}
		out, joined = lob, true
		return nil
	}
	if err := r.watch(ctx, lobbyName, txn); err != nil {
		return nil, false, err
	}
	return out, joined, nil
}

func (r *Redis) SetReady(ctx context.Context, lobbyName, username string, ready bool) (*models.Lobby, error) {
	var out *models.Lobby
	txn := func(tx *redis.Tx) error {
		lob, err := getLobby(ctx, tx, lobbyName)
		if err != nil {
			return err
		}
		member := lob.Member(username)
		if member == nil {
			return ErrNotFound
		}
		member.IsReady = ready
		if err := putLobby(ctx, tx, lob); err != nil {
			return err
		}
		out = lob
		return nil
	}
	if err := r.watch(ctx, lobbyName, txn); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Redis) FetchFull(ctx context.Context, lobbyName string) (*models.Lobby, error) {
	raw, err := r.client.Get(ctx, lobbyKey(lobbyName)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch lobby %q: %w", lobbyName, err)
	}
	var lob models.Lobby
	if err := json.Unmarshal(raw, &lob); err != nil {
		return nil, fmt.Errorf("decode lobby %q: %w", lobbyName, err)
	}
	return &lob, nil
}

func (r *Redis) CompareAndSwap(ctx context.Context, lob *models.Lobby) (*models.Lobby, error) {
	var out *models.Lobby
	txn := func(tx *redis.Tx) error {
		cur, err := getLobby(ctx, tx, lob.Name)
		if err != nil {
			return err
		}
		if cur.Version != lob.Version {
			return ErrConflict
		}
		next := lob.Clone()
		if err := putLobby(ctx, tx, next); err != nil {
			return err
		}
		out = next
		return nil
	}
	err := r.client.Watch(ctx, txn, lobbyKey(lob.Name))
	if errors.Is(err, redis.TxFailedErr) {
		// Key changed between read and EXEC: same outcome as a version
		// mismatch from the caller's point of view.
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// watch runs txn under WATCH on the lobby key, replaying a bounded number of
// times when the optimistic transaction aborts.
func (r *Redis) watch(ctx context.Context, lobbyName string, txn func(tx *redis.Tx) error) error {
	for i := 0; i < watchRetries; i++ {
		err := r.client.Watch(ctx, txn, lobbyKey(lobbyName))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

// getLobby reads and decodes the aggregate inside a WATCH transaction.
func getLobby(ctx context.Context, tx *redis.Tx, name string) (*models.Lobby, error) {
	raw, err := tx.Get(ctx, lobbyKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch lobby %q: %w", name, err)
	}
	var lob models.Lobby
	if err := json.Unmarshal(raw, &lob); err != nil {
		return nil, fmt.Errorf("decode lobby %q: %w", name, err)
	}
	return &lob, nil
}

// putLobby bumps the version and writes the document via the queued MULTI/EXEC
// pipeline so the surrounding WATCH can detect concurrent writers.
func putLobby(ctx context.Context, tx *redis.Tx, lob *models.Lobby) error {
	lob.Version++
	data, err := json.Marshal(lob)
	if err != nil {
		return fmt.Errorf("encode lobby %q: %w", lob.Name, err)
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, lobbyKey(lob.Name), data, 0)
		return nil
	})
	return err
}
