package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/internal/repository"
	"github.com/freeeve/conquest/api/pkg/risk"
)

// PlayerSummary is the public view of one seat. Hands are shown as counts.
type PlayerSummary struct {
	ID          string `json:"id"`
	IsAI        bool   `json:"isAi"`
	Difficulty  string `json:"difficulty,omitempty"`
	Territories int    `json:"territories"`
	Armies      int    `json:"armies"`
	Cards       int    `json:"cards"`
	Eliminated  bool   `json:"eliminated"`
}

// MatchView is the public state of a match as returned to every player.
type MatchView struct {
	MatchID              string           `json:"matchId"`
	RoomID               string           `json:"roomId"`
	Phase                risk.Phase       `json:"phase"`
	TurnNumber           int              `json:"turnNumber"`
	CurrentPlayerIndex   int              `json:"currentPlayerIndex"`
	CurrentPlayer        string           `json:"currentPlayer"`
	ReinforcementsLeft   int              `json:"reinforcementsLeft"`
	HasConqueredThisTurn bool             `json:"hasConqueredThisTurn"`
	HasFortifiedThisTurn bool             `json:"hasFortifiedThisTurn"`
	CardTradeCount       int              `json:"cardTradeCount"`
	NextTradeBonus       int              `json:"nextTradeBonus"`
	DeckSize             int              `json:"deckSize"`
	WinnerID             string           `json:"winnerId,omitempty"`
	Players              []PlayerSummary  `json:"players"`
	Territories          []risk.Territory `json:"territories"`
}

// NewMatchView builds the public view of s.
func NewMatchView(s *risk.MatchState) *MatchView {
	v := &MatchView{
		MatchID:              s.MatchID,
		RoomID:               s.RoomID,
		Phase:                s.Phase,
		TurnNumber:           s.TurnNumber,
		CurrentPlayerIndex:   s.CurrentPlayerIndex,
		CurrentPlayer:        s.CurrentPlayer(),
		ReinforcementsLeft:   s.ReinforcementsLeft,
		HasConqueredThisTurn: s.HasConqueredThisTurn,
		HasFortifiedThisTurn: s.HasFortifiedThisTurn,
		CardTradeCount:       s.CardTradeCount,
		NextTradeBonus:       risk.CardBonus(s.CardTradeCount),
		DeckSize:             s.PoolSize(),
		WinnerID:             s.WinnerID,
	}
	for _, p := range s.Players {
		v.Players = append(v.Players, PlayerSummary{
			ID:          p.ID,
			IsAI:        p.IsAI,
			Difficulty:  p.Difficulty,
			Territories: s.TerritoryCount(p.ID),
			Armies:      s.ArmyCount(p.ID),
			Cards:       len(s.CardsOf(p.ID)),
			Eliminated:  !s.IsActive(p.ID),
		})
	}
	for _, t := range s.Territories {
		v.Territories = append(v.Territories, *t)
	}
	sort.Slice(v.Territories, func(i, j int) bool { return v.Territories[i].ID < v.Territories[j].ID })
	return v
}

// loadState returns the latest committed state, preferring the cache and
// refilling it from the store on a miss.
func loadState(ctx context.Context, store repository.MatchStore, cache repository.MatchCache, matchID string) (*risk.MatchState, error) {
	raw, err := cache.GetMatchState(ctx, matchID)
	if err != nil {
		log.Warn().Err(err).Str("matchId", matchID).Msg("Match cache read failed, falling back to store")
	} else if raw != nil {
		var st risk.MatchState
		if err := json.Unmarshal(raw, &st); err == nil {
			return &st, nil
		}
		log.Warn().Str("matchId", matchID).Msg("Discarding unreadable cached match state")
	}

	st, err := store.LoadState(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("%w: load match %s: %w", ErrStoreUnavailable, matchID, err)
	}
	if st == nil {
		return nil, ErrMatchNotFound
	}
	cacheState(ctx, cache, st)
	return st, nil
}

// cacheState publishes a committed snapshot. Cache failures are logged; the
// store remains the source of truth.
func cacheState(ctx context.Context, cache repository.MatchCache, st *risk.MatchState) {
	data, err := json.Marshal(st)
	if err != nil {
		log.Error().Err(err).Str("matchId", st.MatchID).Msg("Failed to marshal match state")
		return
	}
	if err := cache.SetMatchState(ctx, st.MatchID, data); err != nil {
		log.Warn().Err(err).Str("matchId", st.MatchID).Msg("Failed to cache match state")
		return
	}
	if st.Finished() {
		if err := cache.ExpireMatchState(ctx, st.MatchID); err != nil {
			log.Warn().Err(err).Str("matchId", st.MatchID).Msg("Failed to expire finished match state")
		}
	}
}

// asStoreError leaves rejections and cancellations alone and marks any
// other failure as a transient store error.
func asStoreError(err error) error {
	if err == nil {
		return nil
	}
	var re *risk.Error
	if errors.As(err, &re) || errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	for _, sentinel := range rejections {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
