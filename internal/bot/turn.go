package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/freeeve/conquest/api/pkg/risk"
)

// Executor commits one action for a player and returns the resulting state.
// Bots go through the same validation as human players.
type Executor interface {
	Execute(ctx context.Context, playerID string, action risk.Action) (*risk.MatchState, *risk.Outcome, error)
}

// PaceFor is the delay a bot waits before each phase so humans can follow
// along. The end turn waits half of it.
func PaceFor(difficulty string) time.Duration {
	switch difficulty {
	case DifficultyHard:
		return 500 * time.Millisecond
	case DifficultyMedium:
		return 1000 * time.Millisecond
	default:
		return 1500 * time.Millisecond
	}
}

// maxPlacements bounds the reinforce loop; a strategy that keeps choosing
// illegal placements must not spin forever.
const maxPlacements = 200

// PlayTurn plays player's turn from whatever phase s is in until the turn
// passes or the match ends. pace of zero disables delays.
func PlayTurn(ctx context.Context, exec Executor, s *risk.MatchState, m *risk.Map, player string, strat Strategy, pace time.Duration) (*risk.MatchState, error) {
	for s.CurrentPlayer() == player && !s.Finished() {
		var err error
		switch s.Phase {
		case risk.PhaseReinforce:
			s, err = playReinforce(ctx, exec, s, m, player, strat, pace)
		case risk.PhaseAttack:
			s, err = playAttack(ctx, exec, s, m, player, strat, pace)
		case risk.PhaseFortify:
			s, err = playFortify(ctx, exec, s, m, player, strat, pace)
		default:
			return s, fmt.Errorf("unknown phase %q", s.Phase)
		}
		if err != nil {
			return s, err
		}
	}
	return s, nil
}

func playReinforce(ctx context.Context, exec Executor, s *risk.MatchState, m *risk.Map, player string, strat Strategy, pace time.Duration) (*risk.MatchState, error) {
	if err := sleep(ctx, pace); err != nil {
		return s, err
	}

	// one trade by choice, further ones only while the hand is over the limit
	for traded := 0; traded < 3; traded++ {
		ids := strat.ChooseTrade(s, player)
		if traded > 0 {
			ids = forcedTrade(s, player)
		}
		if ids == nil {
			break
		}
		next, _, err := exec.Execute(ctx, player, risk.TradeCards{CardIDs: ids})
		if err != nil {
			return s, fmt.Errorf("trade cards: %w", err)
		}
		s = next
	}

	for i := 0; s.ReinforcementsLeft > 0; i++ {
		if i >= maxPlacements {
			return s, fmt.Errorf("reinforce: %d armies still unplaced", s.ReinforcementsLeft)
		}
		r := strat.ChooseReinforcement(s, player, m)
		r.Amount = min(max(r.Amount, 1), s.ReinforcementsLeft)
		next, _, err := exec.Execute(ctx, player, r)
		if err != nil {
			return s, fmt.Errorf("reinforce %s: %w", r.TerritoryID, err)
		}
		s = next
	}

	next, _, err := exec.Execute(ctx, player, risk.AdvancePhase{})
	if err != nil {
		return s, fmt.Errorf("advance to attack: %w", err)
	}
	return next, nil
}

func playAttack(ctx context.Context, exec Executor, s *risk.MatchState, m *risk.Map, player string, strat Strategy, pace time.Duration) (*risk.MatchState, error) {
	if err := sleep(ctx, pace); err != nil {
		return s, err
	}
	for i := 0; i < strat.MaxAttacks(); i++ {
		a, ok := strat.ChooseAttack(s, player, m)
		if !ok {
			break
		}
		next, _, err := exec.Execute(ctx, player, a)
		if err != nil {
			return s, fmt.Errorf("attack %s -> %s: %w", a.From, a.To, err)
		}
		s = next
		if s.Finished() {
			return s, nil
		}
	}
	next, _, err := exec.Execute(ctx, player, risk.AdvancePhase{})
	if err != nil {
		return s, fmt.Errorf("advance to fortify: %w", err)
	}
	return next, nil
}

func playFortify(ctx context.Context, exec Executor, s *risk.MatchState, m *risk.Map, player string, strat Strategy, pace time.Duration) (*risk.MatchState, error) {
	if err := sleep(ctx, pace); err != nil {
		return s, err
	}
	if !s.HasFortifiedThisTurn {
		if f, ok := strat.ChooseFortify(s, player, m); ok {
			next, _, err := exec.Execute(ctx, player, f)
			if err != nil {
				return s, fmt.Errorf("fortify %s -> %s: %w", f.From, f.To, err)
			}
			s = next
		}
	}
	if err := sleep(ctx, pace/2); err != nil {
		return s, err
	}
	next, _, err := exec.Execute(ctx, player, risk.EndTurn{})
	if err != nil {
		return s, fmt.Errorf("end turn: %w", err)
	}
	return next, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// EngineExecutor applies actions directly to an in-memory state. It is the
// executor used by the arena and by tests.
type EngineExecutor struct {
	Engine *risk.Engine
	State  *risk.MatchState
	// OnApply, if set, sees every committed action before State advances.
	OnApply func(before, after *risk.MatchState, actor string, out *risk.Outcome) error
}

func (e *EngineExecutor) Execute(_ context.Context, playerID string, action risk.Action) (*risk.MatchState, *risk.Outcome, error) {
	next, out, err := e.Engine.Apply(e.State, playerID, action)
	if err != nil {
		return nil, nil, err
	}
	if e.OnApply != nil {
		if err := e.OnApply(e.State, next, playerID, out); err != nil {
			return nil, nil, err
		}
	}
	e.State = next
	return next, out, nil
}
