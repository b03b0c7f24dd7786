package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/internal/bot"
	"github.com/freeeve/conquest/api/internal/repository"
	"github.com/freeeve/conquest/api/pkg/risk"
)

// botTurnTimeout bounds one AI turn including pacing delays.
const botTurnTimeout = 2 * time.Minute

// BotDriver plays AI seats. A turn is scheduled whenever play passes to an
// AI player; a poller re-drives AI turns that stalled (crash, lost
// notification) and RecoverActiveMatches picks them up after a restart.
type BotDriver struct {
	actions      *ActionService
	store        repository.MatchStore
	cache        repository.MatchCache
	worldMap     *risk.Map
	pollInterval time.Duration
	pacing       bool

	mu      sync.Mutex
	baseCtx context.Context
	running map[string]bool // matches with a turn goroutine in flight
	wg      sync.WaitGroup
}

// NewBotDriver creates a BotDriver. With pacing disabled bots act without
// the per-difficulty delays.
func NewBotDriver(actions *ActionService, store repository.MatchStore, cache repository.MatchCache, pollInterval time.Duration, pacing bool) *BotDriver {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &BotDriver{
		actions:      actions,
		store:        store,
		cache:        cache,
		worldMap:     risk.StandardMap(),
		pollInterval: pollInterval,
		pacing:       pacing,
		baseCtx:      context.Background(),
		running:      make(map[string]bool),
	}
}

// Start launches the stalled-turn poller, which runs until ctx is done.
// Turns scheduled after Start are cancelled together with ctx.
func (d *BotDriver) Start(ctx context.Context) {
	d.mu.Lock()
	d.baseCtx = ctx
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.pollInterval)
		defer ticker.Stop()

		log.Info().Dur("interval", d.pollInterval).Msg("Bot turn poller started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Bot turn poller stopped")
				return
			case <-ticker.C:
				d.checkStalled(ctx)
			}
		}
	}()
}

// Wait blocks until the poller and every scheduled turn goroutine have returned.
func (d *BotDriver) Wait() {
	d.wg.Wait()
}

// Schedule plays the current AI turn of matchID in the background. It is a
// no-op while a turn goroutine for the match is already running.
func (d *BotDriver) Schedule(matchID string) {
	d.mu.Lock()
	if d.running[matchID] {
		d.mu.Unlock()
		return
	}
	d.running[matchID] = true
	ctx := d.baseCtx
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		d.run(ctx, matchID)
	}()
}

func (d *BotDriver) isRunning(matchID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running[matchID]
}

// run keeps playing while the current seat is an AI, so consecutive bots
// move without waiting for a notification.
func (d *BotDriver) run(ctx context.Context, matchID string) {
	for {
		st, player, ok := d.pendingTurn(ctx, matchID)
		if !ok {
			break
		}
		if err := d.playTurn(ctx, st, player); err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Str("matchId", matchID).Str("playerId", player.ID).Msg("Bot turn failed")
			}
			d.release(matchID)
			return
		}
	}
	d.release(matchID)

	// a human may have passed the turn to a bot between the last check and
	// the release above, while Schedule was still a no-op
	if _, _, ok := d.pendingTurn(ctx, matchID); ok {
		d.Schedule(matchID)
	}
}

func (d *BotDriver) release(matchID string) {
	d.mu.Lock()
	delete(d.running, matchID)
	d.mu.Unlock()
}

// pendingTurn reports the AI player to move in matchID, if any.
func (d *BotDriver) pendingTurn(ctx context.Context, matchID string) (*risk.MatchState, risk.Player, bool) {
	if ctx.Err() != nil {
		return nil, risk.Player{}, false
	}
	st, err := loadState(ctx, d.store, d.cache, matchID)
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("Failed to load match for bot turn")
		return nil, risk.Player{}, false
	}
	if st.Finished() {
		return nil, risk.Player{}, false
	}
	p := st.Players[st.CurrentPlayerIndex]
	if !p.IsAI {
		return nil, risk.Player{}, false
	}
	return st, p, true
}

func (d *BotDriver) playTurn(ctx context.Context, st *risk.MatchState, player risk.Player) error {
	ctx, cancel := context.WithTimeout(ctx, botTurnTimeout)
	defer cancel()

	var pace time.Duration
	if d.pacing {
		pace = bot.PaceFor(player.Difficulty)
	}
	strat := bot.StrategyForDifficulty(player.Difficulty)
	exec := matchExecutor{actions: d.actions, matchID: st.MatchID}

	log.Debug().Str("matchId", st.MatchID).Str("playerId", player.ID).Str("strategy", strat.Name()).
		Int("turn", st.TurnNumber).Msg("Bot turn started")
	_, err := bot.PlayTurn(ctx, exec, st, d.worldMap, player.ID, strat, pace)
	if errors.Is(err, ErrMatchFinished) {
		return nil
	}
	return err
}

// matchExecutor routes bot actions through the same path as human actions.
type matchExecutor struct {
	actions *ActionService
	matchID string
}

func (e matchExecutor) Execute(ctx context.Context, playerID string, action risk.Action) (*risk.MatchState, *risk.Outcome, error) {
	return e.actions.Execute(ctx, e.matchID, playerID, action)
}

// RecoverActiveMatches rehydrates the cache for every playing match from the
// store and resumes AI turns. Called on server startup.
func (d *BotDriver) RecoverActiveMatches(ctx context.Context) error {
	matches, err := d.store.ListActiveMatches(ctx)
	if err != nil {
		return asStoreError(err)
	}
	if len(matches) == 0 {
		log.Info().Msg("No active matches to recover")
		return nil
	}

	log.Info().Int("count", len(matches)).Msg("Recovering active matches after restart")
	for _, m := range matches {
		st, err := d.store.LoadState(ctx, m.ID)
		if err != nil {
			log.Error().Err(err).Str("matchId", m.ID).Msg("Failed to load match during recovery")
			continue
		}
		if st == nil {
			continue
		}
		cacheState(ctx, d.cache, st)
		if !st.Finished() && st.Players[st.CurrentPlayerIndex].IsAI {
			d.Schedule(m.ID)
		}
		log.Info().Str("matchId", m.ID).Int("turn", st.TurnNumber).Str("phase", string(st.Phase)).
			Str("currentPlayer", st.CurrentPlayer()).Msg("Recovered match state")
	}
	return nil
}

// checkStalled schedules AI turns that nothing is driving.
func (d *BotDriver) checkStalled(ctx context.Context) {
	matches, err := d.store.ListActiveMatches(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list active matches")
		return
	}
	for _, m := range matches {
		if d.isRunning(m.ID) {
			continue
		}
		if _, player, ok := d.pendingTurn(ctx, m.ID); ok {
			log.Info().Str("matchId", m.ID).Str("playerId", player.ID).Msg("Poller resuming stalled bot turn")
			d.Schedule(m.ID)
		}
	}
}
