package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/internal/model"
	"github.com/freeeve/conquest/api/internal/repository"
	"github.com/freeeve/conquest/api/pkg/risk"
)

// ArenaConfig configures a single bot-vs-bot match.
type ArenaConfig struct {
	Name         string
	Difficulties []string // one entry per seat, in turn order
	MaxTurns     int      // cap before the match is called a draw
	Seed         uint64   // 0 = random
	DryRun       bool     // skip store writes
}

// ArenaResult describes the outcome of a completed arena match.
type ArenaResult struct {
	MatchID          string            `json:"matchId,omitempty"`
	Winner           string            `json:"winner"` // player id or "" when the turn cap was hit
	WinnerDifficulty string            `json:"winnerDifficulty,omitempty"`
	Turns            int               `json:"turns"`
	Actions          int               `json:"actions"`
	Territories      map[string]int    `json:"territories"`
	Difficulties     map[string]string `json:"difficulties"`
	Eliminated       []string          `json:"eliminated,omitempty"`
}

const defaultMaxTurns = 600

// RunMatch plays a full match between bots through the engine. Pass nil
// repositories (or DryRun) to keep everything in memory.
func RunMatch(ctx context.Context, cfg ArenaConfig, rooms repository.RoomRepository, store repository.MatchStore) (*ArenaResult, error) {
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	if len(cfg.Difficulties) < risk.MinPlayers || len(cfg.Difficulties) > risk.MaxPlayers {
		return nil, fmt.Errorf("arena needs %d to %d seats, got %d", risk.MinPlayers, risk.MaxPlayers, len(cfg.Difficulties))
	}
	persist := !cfg.DryRun && rooms != nil && store != nil

	players := make([]risk.Player, len(cfg.Difficulties))
	strategies := make(map[string]Strategy, len(players))
	result := &ArenaResult{Territories: map[string]int{}, Difficulties: map[string]string{}}
	for i, d := range cfg.Difficulties {
		id := fmt.Sprintf("bot-%d", i+1)
		players[i] = risk.Player{ID: id, IsAI: true, Difficulty: d}
		strategies[id] = StrategyForDifficulty(d)
		result.Difficulties[id] = d
	}

	rng := risk.NewTimeRand()
	if cfg.Seed != 0 {
		rng = risk.NewSeededRand(cfg.Seed)
	}
	m := risk.StandardMap()

	var roomID string
	if persist {
		room, err := createArenaRoom(ctx, rooms, players)
		if err != nil {
			return nil, fmt.Errorf("create arena room: %w", err)
		}
		roomID = room.ID
	}

	state, err := risk.NewMatch(m, rng, "", roomID, players)
	if err != nil {
		return nil, err
	}
	if persist {
		err := store.InTx(ctx, func(tx repository.MatchTx) error {
			id, err := tx.CreateMatch(ctx, state)
			if err != nil {
				return err
			}
			state.MatchID = id
			if err := tx.SetRoomStatus(ctx, roomID, model.RoomPlaying); err != nil {
				return err
			}
			return tx.AppendAction(ctx, model.Action{MatchID: id, PlayerID: players[0].ID, Type: "start", Payload: json.RawMessage(`{"arena":true}`)})
		})
		if err != nil {
			return nil, fmt.Errorf("create arena match: %w", err)
		}
	}
	result.MatchID = state.MatchID

	exec := &EngineExecutor{Engine: risk.NewEngine(m, rng), State: state}
	exec.OnApply = func(before, after *risk.MatchState, actor string, out *risk.Outcome) error {
		result.Actions++
		for _, ev := range out.Events {
			if ev.Kind == risk.EventEliminated {
				result.Eliminated = append(result.Eliminated, ev.Player)
			}
		}
		if !persist {
			return nil
		}
		return store.InTx(ctx, func(tx repository.MatchTx) error {
			if err := tx.SaveChanges(ctx, after, risk.Diff(before, after)); err != nil {
				return err
			}
			payload, err := json.Marshal(out)
			if err != nil {
				return err
			}
			if err := tx.AppendAction(ctx, model.Action{MatchID: after.MatchID, PlayerID: actor, Type: string(out.Type), Payload: payload}); err != nil {
				return err
			}
			if after.Finished() {
				return tx.SetRoomStatus(ctx, roomID, model.RoomFinished)
			}
			return nil
		})
	}

	for !exec.State.Finished() && exec.State.TurnNumber <= cfg.MaxTurns {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		player := exec.State.CurrentPlayer()
		if _, err := PlayTurn(ctx, exec, exec.State, m, player, strategies[player], 0); err != nil {
			return nil, fmt.Errorf("turn %d (%s): %w", exec.State.TurnNumber, player, err)
		}
	}

	final := exec.State
	result.Turns = final.TurnNumber
	result.Winner = final.WinnerID
	result.WinnerDifficulty = result.Difficulties[final.WinnerID]
	for _, p := range players {
		result.Territories[p.ID] = final.TerritoryCount(p.ID)
	}

	if persist && !final.Finished() {
		if err := store.InTx(ctx, func(tx repository.MatchTx) error {
			return tx.SetRoomStatus(ctx, roomID, model.RoomFinished)
		}); err != nil {
			return nil, fmt.Errorf("finish arena room: %w", err)
		}
	}

	if final.Finished() {
		log.Info().Str("name", cfg.Name).Str("matchId", final.MatchID).Str("winner", final.WinnerID).Int("turns", final.TurnNumber).Msg("Arena match won")
	} else {
		log.Info().Str("name", cfg.Name).Str("matchId", final.MatchID).Int("turns", final.TurnNumber).Msg("Arena match ended as draw (turn limit)")
	}
	return result, nil
}

func createArenaRoom(ctx context.Context, rooms repository.RoomRepository, players []risk.Player) (*model.Room, error) {
	room, err := rooms.Create(ctx, players[0].ID, len(players), model.ModeClassic)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if err := rooms.AddPlayer(ctx, room.ID, p.ID, true, p.Difficulty); err != nil {
			return nil, fmt.Errorf("seat %s: %w", p.ID, err)
		}
	}
	return room, nil
}

// ParseSeatConfig parses a seat list such as "hard,easy,easy" or the
// shorthand "hard,2*easy" into one difficulty per seat.
func ParseSeatConfig(s string) ([]string, error) {
	var seats []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		count := 1
		if n, d, ok := strings.Cut(part, "*"); ok {
			c, err := strconv.Atoi(n)
			if err != nil || c < 1 {
				return nil, fmt.Errorf("bad seat count in %q", part)
			}
			count, part = c, d
		}
		if !ValidDifficulty(part) {
			return nil, fmt.Errorf("unknown difficulty %q", part)
		}
		for i := 0; i < count; i++ {
			seats = append(seats, part)
		}
	}
	if len(seats) < risk.MinPlayers || len(seats) > risk.MaxPlayers {
		return nil, fmt.Errorf("need %d to %d seats, got %d", risk.MinPlayers, risk.MaxPlayers, len(seats))
	}
	return seats, nil
}
