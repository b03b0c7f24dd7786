package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/internal/model"
	"github.com/freeeve/conquest/api/internal/repository"
	"github.com/freeeve/conquest/api/pkg/risk"
)

// ActionService applies player actions. Every action runs under the match
// lock inside one store transaction: lock, load, apply, write, commit. Only
// then is the new state cached and published.
type ActionService struct {
	store       repository.MatchStore
	cache       repository.MatchCache
	locker      repository.MatchLocker
	engine      *risk.Engine
	broadcaster Broadcaster
	lockTTL     time.Duration
	bots        *BotDriver

	// matchLocks queues actions for the same match inside this process so
	// they do not spin on the distributed lock.
	matchLocks sync.Map
}

// NewActionService creates an ActionService.
func NewActionService(
	store repository.MatchStore,
	cache repository.MatchCache,
	locker repository.MatchLocker,
	engine *risk.Engine,
	broadcaster Broadcaster,
	lockTTL time.Duration,
) *ActionService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &ActionService{
		store:       store,
		cache:       cache,
		locker:      locker,
		engine:      engine,
		broadcaster: broadcaster,
		lockTTL:     lockTTL,
	}
}

// SetBotDriver configures the driver notified when the turn passes to an AI seat.
func (s *ActionService) SetBotDriver(d *BotDriver) {
	s.bots = d
}

func (s *ActionService) matchLock(matchID string) *sync.Mutex {
	v, _ := s.matchLocks.LoadOrStore(matchID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// ExecuteRaw decodes a client payload for the named action type and executes it.
func (s *ActionService) ExecuteRaw(ctx context.Context, matchID, playerID, kind string, payload json.RawMessage) (*risk.Outcome, error) {
	action, err := risk.DecodeAction(risk.ActionType(kind), payload)
	if err != nil {
		return nil, err
	}
	_, out, err := s.Execute(ctx, matchID, playerID, action)
	return out, err
}

// Execute applies one action for playerID and returns the committed state.
// A rejected action commits nothing.
func (s *ActionService) Execute(ctx context.Context, matchID, playerID string, action risk.Action) (*risk.MatchState, *risk.Outcome, error) {
	mu := s.matchLock(matchID)
	mu.Lock()
	defer mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTTL)
	unlock, err := s.locker.Lock(lockCtx, matchID, s.lockTTL)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: lock match %s: %w", ErrStoreUnavailable, matchID, err)
	}
	defer unlock()

	var after *risk.MatchState
	var out *risk.Outcome
	err = s.store.InTx(ctx, func(tx repository.MatchTx) error {
		before, err := tx.LockState(ctx, matchID)
		if err != nil {
			return err
		}
		if before == nil {
			return ErrMatchNotFound
		}

		next, o, err := s.engine.Apply(before, playerID, action)
		if err != nil {
			return err
		}
		if err := tx.SaveChanges(ctx, next, risk.Diff(before, next)); err != nil {
			return err
		}
		payload, err := json.Marshal(o.Public())
		if err != nil {
			return fmt.Errorf("marshal outcome: %w", err)
		}
		if err := tx.AppendAction(ctx, model.Action{MatchID: matchID, PlayerID: playerID, Type: string(o.Type), Payload: payload}); err != nil {
			return err
		}
		if next.Finished() {
			if err := tx.SetRoomStatus(ctx, next.RoomID, model.RoomFinished); err != nil {
				return err
			}
		}
		after, out = next, o
		return nil
	})
	if err != nil {
		return nil, nil, asStoreError(err)
	}

	s.publish(ctx, after, playerID, out)
	return after, out, nil
}

// publish caches the committed state and tells clients what happened.
func (s *ActionService) publish(ctx context.Context, st *risk.MatchState, playerID string, out *risk.Outcome) {
	cacheState(ctx, s.cache, st)

	log.Debug().Str("matchId", st.MatchID).Str("playerId", playerID).Str("action", string(out.Type)).
		Str("phase", string(st.Phase)).Int("turn", st.TurnNumber).Msg("Action applied")

	s.broadcaster.BroadcastMatchEvent(st.MatchID, EventActionApplied, map[string]any{
		"playerId": playerID,
		"outcome":  out.Public(),
		"state":    NewMatchView(st),
	})

	for _, ev := range out.Events {
		switch ev.Kind {
		case risk.EventEliminated:
			log.Info().Str("matchId", st.MatchID).Str("playerId", ev.Player).Str("by", ev.Target).Msg("Player eliminated")
			s.broadcaster.BroadcastMatchEvent(st.MatchID, EventPlayerEliminated, map[string]any{
				"playerId": ev.Player,
				"by":       ev.Target,
			})
		case risk.EventWon:
			log.Info().Str("matchId", st.MatchID).Str("winner", ev.Player).Int("turn", st.TurnNumber).Msg("Match won")
			s.broadcaster.BroadcastMatchEvent(st.MatchID, EventMatchEnded, map[string]any{
				"winner": ev.Player,
			})
		case risk.EventCardDrawn:
			// the card itself is only visible to its holder
			s.broadcaster.BroadcastMatchEvent(st.MatchID, EventCardDrawn, map[string]any{
				"playerId": ev.Player,
			})
			if n, ok := s.broadcaster.(PlayerNotifier); ok {
				n.NotifyPlayer(st.MatchID, ev.Player, EventCardReceived, map[string]any{
					"cardId": ev.Target,
				})
			}
		case risk.EventTurnPassed:
			s.broadcaster.BroadcastMatchEvent(st.MatchID, EventTurnChanged, map[string]any{
				"from":               ev.Player,
				"to":                 ev.Target,
				"turnNumber":         st.TurnNumber,
				"reinforcementsLeft": st.ReinforcementsLeft,
			})
			if s.bots != nil && st.Players[st.CurrentPlayerIndex].IsAI {
				s.bots.Schedule(st.MatchID)
			}
		}
	}
}
