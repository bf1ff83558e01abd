// internal/match/machine.go
package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeclash/codeclash/internal/models"
	"github.com/codeclash/codeclash/internal/problems"
	"github.com/codeclash/codeclash/internal/registry"
)

// maxCASAttempts bounds transparent retries of optimistic-concurrency
// collisions before they escalate to an internal error event.
const maxCASAttempts = 3

// Machine is the top-level orchestrator: one handler per inbound client
// event, each performing registry operations and instructing the gateway
// what to emit. Handlers for different connections run concurrently; the
// registry's per-key atomicity plus CAS retry is what keeps shared lobby
// state consistent.
type Machine struct {
	reg      registry.Registry
	store    problems.Store
	gateway  Gateway
	log      *logrus.Logger
	language string
	attempts int
}

// NewMachine wires the state machine to its collaborators. language selects
// which per-language problem content is served when a round begins.
func NewMachine(reg registry.Registry, store problems.Store, gw Gateway, log *logrus.Logger, language string) *Machine {
	return &Machine{
		reg:      reg,
		store:    store,
		gateway:  gw,
		log:      log,
		language: language,
		attempts: maxCASAttempts,
	}
}

// Dispatch routes a decoded inbound event to its handler. Unknown events get
// an error reply; no event may crash or close the connection.
func (m *Machine) Dispatch(ctx context.Context, connID uuid.UUID, event string, ev Inbound) {
	switch event {
	case EventJoinLobby:
		m.HandleJoin(ctx, connID, ev)
	case EventUserReady:
		m.HandleReady(ctx, connID, ev, true)
	case EventUserUnready:
		m.HandleReady(ctx, connID, ev, false)
	case EventStartMatch:
		m.HandleStartMatch(ctx, connID, ev)
	case EventUserCompleted:
		m.HandleCompleted(ctx, connID, ev)
	case EventReadyNextMatch:
		m.HandleReadyNextMatch(ctx, connID, ev)
	default:
		m.emitError(connID, CodeNotFound, fmt.Sprintf("unknown event %q", event))
	}
}

// HandleJoin adds the user to the lobby (creating it on first join), joins
// the connection to the lobby's room and announces the join. A duplicate
// join is idempotent: the connection still enters the room and receives the
// current aggregate, but no global announcement is repeated.
func (m *Machine) HandleJoin(ctx context.Context, connID uuid.UUID, ev Inbound) {
	lob, joined, err := m.reg.JoinIfAbsent(ctx, ev.Lobby, ev.Username)
	if err != nil {
		m.log.WithFields(logrus.Fields{"lobby": ev.Lobby, "user": ev.Username}).
			Warnf("join failed: %v", err)
		m.gateway.EmitTo(connID, EventErrorJoining, "internal server error")
		return
	}

	m.gateway.JoinRoom(connID, lob.Name)
	m.gateway.EmitTo(connID, EventSuccessfulEnter, lob)
	if joined {
		m.gateway.BroadcastGlobal(EventUserJoined, lob)
	}
}

// HandleReady flips the actor's readiness and mirrors the new aggregate to
// the room. When the match is running and the flip completes the quorum, the
// in-round auto-advance path fires; it is the same routine the explicit
// user_ready_next_match path uses.
func (m *Machine) HandleReady(ctx context.Context, connID uuid.UUID, ev Inbound, ready bool) {
	lob, err := m.reg.SetReady(ctx, ev.Lobby, ev.Username, ready)
	if err != nil {
		m.emitRegistryError(connID, ev, err)
		return
	}

	m.gateway.EmitTo(connID, EventSuccessfulReady, map[string]interface{}{"isReady": ready})
	m.gateway.BroadcastToRoom(lob.Name, EventReadyUpdate, lob)

	if ready && lob.Started && !lob.Finished() && AllReady(lob) {
		m.advanceToNextRound(ctx, connID, lob)
	}
}

// HandleStartMatch begins the match: host-only, once per lobby. Readiness is
// reset so the first round's quorum starts clean, then round one's problem is
// pushed to the room.
func (m *Machine) HandleStartMatch(ctx context.Context, connID uuid.UUID, ev Inbound) {
	saved, err := m.casRetry(ctx, ev.Lobby, func(lob *models.Lobby) error {
		if lob.Member(ev.Username) == nil {
			return registry.ErrNotFound
		}
		if lob.Host != ev.Username {
			return errUnauthorized
		}
		if lob.Started {
			return errAlreadyStarted
		}
		lob.Started = true
		lob.ResetReadiness()
		return nil
	})
	if err != nil {
		m.emitStartError(connID, ev, err)
		return
	}

	if len(saved.Problems) == 0 {
		m.emitError(connID, CodeInternal, "lobby has no problems configured")
		return
	}
	content, err := m.store.FindByTitleAndLanguage(ctx, saved.Problems[0].Title, m.language)
	if err != nil {
		m.log.WithField("lobby", saved.Name).Warnf("resolve round 1 problem: %v", err)
		m.emitError(connID, CodeInternal, "failed to load round problem")
		return
	}

	m.gateway.BroadcastToRoom(saved.Name, EventBeginMatch, map[string]interface{}{
		"lobby":       saved,
		"roundNumber": 1,
		"problem":     content,
	})
}

// HandleCompleted records a round completion: append the result, advance the
// round counter, and either close out the match or announce the round winner.
// The CAS retry loop is what makes two near-simultaneous completions both
// count instead of the second clobbering the first.
func (m *Machine) HandleCompleted(ctx context.Context, connID uuid.UUID, ev Inbound) {
	saved, err := m.casRetry(ctx, ev.Lobby, func(lob *models.Lobby) error {
		if lob.Member(ev.Username) == nil {
			return registry.ErrNotFound
		}
		if !lob.Started {
			return errNotStarted
		}
		if lob.Finished() {
			return errAlreadyFinished
		}
		title := ""
		if lob.CurrentRound < len(lob.Problems) {
			title = lob.Problems[lob.CurrentRound].Title
		}
		lob.Leaderboard = append(lob.Leaderboard, models.RoundResult{
			Username:     ev.Username,
			ProblemTitle: title,
		})
		lob.CurrentRound++
		return nil
	})
	if err != nil {
		m.emitCompletionError(connID, ev, err)
		return
	}

	if saved.Finished() {
		winner := ComputeWinner(saved.Leaderboard)
		m.log.WithFields(logrus.Fields{"lobby": saved.Name, "winner": winner.Username}).
			Info("match completed")
		m.gateway.BroadcastToRoom(saved.Name, EventGameCompleted, map[string]interface{}{
			"leaderboard": saved.Leaderboard,
			"winner":      winner,
		})
		return
	}

	m.gateway.BroadcastToRoom(saved.Name, EventRoundCompleted, map[string]interface{}{
		"lobby":  saved,
		"winner": ev.Username,
	})
}

// HandleReadyNextMatch flags the actor ready for the next round and, once
// every member is ready, pushes the next problem to the room.
func (m *Machine) HandleReadyNextMatch(ctx context.Context, connID uuid.UUID, ev Inbound) {
	lob, err := m.reg.SetReady(ctx, ev.Lobby, ev.Username, true)
	if err != nil {
		m.emitRegistryError(connID, ev, err)
		return
	}
	if !lob.Started || lob.Finished() || !AllReady(lob) {
		return
	}
	m.advanceToNextRound(ctx, connID, lob)
}

// advanceToNextRound resolves the current round's problem, resets readiness
// and announces next_round. Quorum has already been checked by the caller;
// it is re-checked against the fresh aggregate inside the CAS loop so a
// concurrent unready cannot slip a stale advance through.
func (m *Machine) advanceToNextRound(ctx context.Context, connID uuid.UUID, lob *models.Lobby) {
	round := lob.CurrentRound
	if round >= len(lob.Problems) {
		m.emitError(connID, CodeInternal, "no problem available for the next round")
		return
	}
	content, err := m.store.FindByTitleAndLanguage(ctx, lob.Problems[round].Title, m.language)
	if err != nil {
		m.log.WithField("lobby", lob.Name).Warnf("resolve next round problem: %v", err)
		m.emitError(connID, CodeInternal, "failed to load round problem")
		return
	}

	saved, err := m.casRetry(ctx, lob.Name, func(cur *models.Lobby) error {
		// The content above was fetched for round; if a completion moved the
		// counter in the meantime the announcement would pair a fresh round
		// number with the previous round's problem.
		if !cur.Started || cur.Finished() || cur.CurrentRound != round || !AllReady(cur) {
			return errQuorumLost
		}
		cur.ResetReadiness()
		return nil
	})
	if errors.Is(err, errQuorumLost) {
		// Someone unreadied or completed in the meantime; their own event
		// will drive the next advance.
		return
	}
	if err != nil {
		m.emitRegistryError(connID, Inbound{Lobby: lob.Name}, err)
		return
	}

	m.gateway.BroadcastToRoom(saved.Name, EventNextRound, map[string]interface{}{
		"lobby":       saved,
		"roundNumber": saved.RoundNumber(),
		"problem":     content,
	})
}

// Terminal per-event failures surfaced through the error taxonomy.
var (
	errUnauthorized    = errors.New("match: actor is not the host")
	errAlreadyStarted  = errors.New("match: match already started")
	errNotStarted      = errors.New("match: match has not started")
	errAlreadyFinished = errors.New("match: match already finished")
	errQuorumLost      = errors.New("match: quorum lost before advance")
)

// casRetry runs the read-mutate-CAS sequence until it sticks, a terminal
// error surfaces, or the attempt budget runs out. mutate operates on a fresh
// snapshot every attempt.
func (m *Machine) casRetry(ctx context.Context, lobbyName string, mutate func(*models.Lobby) error) (*models.Lobby, error) {
	for attempt := 0; attempt < m.attempts; attempt++ {
		lob, err := m.reg.FetchFull(ctx, lobbyName)
		if err != nil {
			return nil, err
		}
		next := lob.Clone()
		if err := mutate(next); err != nil {
			return nil, err
		}
		saved, err := m.reg.CompareAndSwap(ctx, next)
		if errors.Is(err, registry.ErrConflict) {
			m.log.WithField("lobby", lobbyName).Debugf("CAS conflict, attempt %d", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}
		return saved, nil
	}
	return nil, registry.ErrConflict
}

func (m *Machine) emitError(connID uuid.UUID, code, message string) {
	m.gateway.EmitTo(connID, EventError, map[string]interface{}{
		"code":    code,
		"message": message,
	})
}

// emitRegistryError maps registry-level failures onto the error taxonomy and
// always surfaces them to the originating connection.
func (m *Machine) emitRegistryError(connID uuid.UUID, ev Inbound, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		m.emitError(connID, CodeNotFound, fmt.Sprintf("lobby %q or user %q not found", ev.Lobby, ev.Username))
	case errors.Is(err, registry.ErrConflict):
		m.emitError(connID, CodeInternal, "lobby is under heavy contention, try again")
	default:
		m.log.WithField("lobby", ev.Lobby).Warnf("registry error: %v", err)
		m.emitError(connID, CodeInternal, "internal server error")
	}
}

func (m *Machine) emitStartError(connID uuid.UUID, ev Inbound, err error) {
	switch {
	case errors.Is(err, errUnauthorized):
		m.emitError(connID, CodeUnauthorized, "only the host can start the match")
	case errors.Is(err, errAlreadyStarted):
		m.emitError(connID, CodeConflict, "match already started")
	default:
		m.emitRegistryError(connID, ev, err)
	}
}

func (m *Machine) emitCompletionError(connID uuid.UUID, ev Inbound, err error) {
	switch {
	case errors.Is(err, errNotStarted):
		m.emitError(connID, CodeConflict, "match has not started")
	case errors.Is(err, errAlreadyFinished):
		m.emitError(connID, CodeConflict, "match already finished")
	default:
		m.emitRegistryError(connID, ev, err)
	}
}
