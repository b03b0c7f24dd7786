package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/internal/bot"
	"github.com/freeeve/conquest/api/internal/model"
	"github.com/freeeve/conquest/api/internal/repository"
	"github.com/freeeve/conquest/api/pkg/risk"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotHost           = errors.New("only the host can do this")
	ErrRoomNotWaiting    = errors.New("room is not in waiting status")
	ErrNotEnoughPlayers  = errors.New("need at least 2 players to start")
	ErrRoomFull          = errors.New("room is full")
	ErrAlreadyJoined     = errors.New("already joined this room")
	ErrInvalidRoomSize   = errors.New("max players must be between 2 and 6")
	ErrInvalidMode       = errors.New("unknown room mode")
	ErrInvalidDifficulty = errors.New("unknown bot difficulty")
	ErrNotInMatch        = errors.New("you are not in this match")
	ErrUnknownAction     = risk.ErrUnknownAction
	// ErrMatchFinished matches the engine's rejection of any action after a win.
	ErrMatchFinished = &risk.Error{Kind: risk.KindIllegalPhase, Message: "match is finished"}

	// ErrStoreUnavailable marks a transient failure of the store, cache or
	// lock. Nothing was committed; the caller may retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// rejections are the service errors that describe a refused request rather
// than a failed store.
var rejections = []error{
	ErrMatchNotFound, ErrRoomNotFound, ErrNotHost, ErrRoomNotWaiting,
	ErrNotEnoughPlayers, ErrRoomFull, ErrAlreadyJoined, ErrInvalidRoomSize,
	ErrInvalidMode, ErrInvalidDifficulty, ErrNotInMatch,
}

// MatchService handles room rosters, match start and read-only queries.
type MatchService struct {
	rooms       repository.RoomRepository
	store       repository.MatchStore
	cache       repository.MatchCache
	broadcaster Broadcaster
	worldMap    *risk.Map
	rng         risk.Rand
	bots        *BotDriver // optional: drives AI seats once the match starts
}

// NewMatchService creates a MatchService. rng deals territories and builds
// the deck; nil uses a clock-seeded source.
func NewMatchService(
	rooms repository.RoomRepository,
	store repository.MatchStore,
	cache repository.MatchCache,
	broadcaster Broadcaster,
	rng risk.Rand,
) *MatchService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	if rng == nil {
		rng = risk.NewTimeRand()
	}
	return &MatchService{
		rooms:       rooms,
		store:       store,
		cache:       cache,
		broadcaster: broadcaster,
		worldMap:    risk.StandardMap(),
		rng:         rng,
	}
}

// SetBotDriver configures the driver notified when an AI seat is to move.
func (s *MatchService) SetBotDriver(d *BotDriver) {
	s.bots = d
}

// CreateRoom creates a waiting room and seats the host in it.
func (s *MatchService) CreateRoom(ctx context.Context, hostID string, maxPlayers int, mode string) (*model.Room, error) {
	if maxPlayers == 0 {
		maxPlayers = risk.MaxPlayers
	}
	if maxPlayers < risk.MinPlayers || maxPlayers > risk.MaxPlayers {
		return nil, ErrInvalidRoomSize
	}
	switch mode {
	case "":
		mode = model.ModeClassic
	case model.ModeClassic, model.ModeObjectives:
	default:
		return nil, ErrInvalidMode
	}

	room, err := s.rooms.Create(ctx, hostID, maxPlayers, mode)
	if err != nil {
		return nil, asStoreError(err)
	}
	if err := s.rooms.AddPlayer(ctx, room.ID, hostID, false, ""); err != nil {
		return nil, asStoreError(err)
	}
	log.Info().Str("roomId", room.ID).Str("hostId", hostID).Int("maxPlayers", maxPlayers).Msg("Room created")
	return s.GetRoom(ctx, room.ID)
}

// GetRoom returns a room with its roster.
func (s *MatchService) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, asStoreError(err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// JoinRoom seats a human player in a waiting room.
func (s *MatchService) JoinRoom(ctx context.Context, roomID, playerID string) (*model.Room, error) {
	room, err := s.joinableRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for _, p := range room.Players {
		if p.PlayerID == playerID {
			return nil, ErrAlreadyJoined
		}
	}
	if err := s.rooms.AddPlayer(ctx, roomID, playerID, false, ""); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyJoined
		}
		return nil, asStoreError(err)
	}
	return s.GetRoom(ctx, roomID)
}

// AddBot seats an AI player. Only the host may add bots.
func (s *MatchService) AddBot(ctx context.Context, roomID, playerID, difficulty string) (*model.Room, error) {
	if difficulty == "" {
		difficulty = bot.DifficultyEasy
	}
	if !bot.ValidDifficulty(difficulty) {
		return nil, ErrInvalidDifficulty
	}
	room, err := s.joinableRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HostID != playerID {
		return nil, ErrNotHost
	}

	taken := make(map[string]bool, len(room.Players))
	for _, p := range room.Players {
		taken[p.PlayerID] = true
	}
	botID := ""
	for i := 1; botID == "" || taken[botID]; i++ {
		botID = fmt.Sprintf("bot-%d", i)
	}
	if err := s.rooms.AddPlayer(ctx, roomID, botID, true, difficulty); err != nil {
		return nil, asStoreError(err)
	}
	return s.GetRoom(ctx, roomID)
}

func (s *MatchService) joinableRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != model.RoomWaiting {
		return nil, ErrRoomNotWaiting
	}
	if len(room.Players) >= room.MaxPlayers {
		return nil, ErrRoomFull
	}
	return room, nil
}

// StartMatch deals the board for a waiting room and moves it to playing.
// Seat order becomes turn order.
func (s *MatchService) StartMatch(ctx context.Context, roomID, playerID string) (*MatchView, error) {
	var st *risk.MatchState
	err := s.store.InTx(ctx, func(tx repository.MatchTx) error {
		room, err := tx.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if room == nil {
			return ErrRoomNotFound
		}
		if room.HostID != playerID {
			return ErrNotHost
		}
		if room.Status != model.RoomWaiting {
			return ErrRoomNotWaiting
		}
		if len(room.Players) < risk.MinPlayers {
			return ErrNotEnoughPlayers
		}
		if len(room.Players) > risk.MaxPlayers {
			return ErrRoomFull
		}

		players := make([]risk.Player, len(room.Players))
		ids := make([]string, len(room.Players))
		for i, p := range room.Players {
			players[i] = risk.Player{ID: p.PlayerID, IsAI: p.IsBot, Difficulty: p.BotDifficulty}
			ids[i] = p.PlayerID
		}
		st, err = risk.NewMatch(s.worldMap, s.rng, "", room.ID, players)
		if err != nil {
			return fmt.Errorf("deal match: %w", err)
		}

		id, err := tx.CreateMatch(ctx, st)
		if errors.Is(err, repository.ErrConflict) {
			return ErrRoomNotWaiting
		}
		if err != nil {
			return err
		}
		st.MatchID = id
		if err := tx.SetRoomStatus(ctx, room.ID, model.RoomPlaying); err != nil {
			return err
		}
		payload, err := json.Marshal(map[string]any{"players": ids, "mode": room.Mode})
		if err != nil {
			return err
		}
		return tx.AppendAction(ctx, model.Action{MatchID: id, PlayerID: playerID, Type: "start", Payload: payload})
	})
	if err != nil {
		return nil, asStoreError(err)
	}

	cacheState(ctx, s.cache, st)
	log.Info().Str("matchId", st.MatchID).Str("roomId", roomID).Int("players", len(st.Players)).
		Str("firstPlayer", st.CurrentPlayer()).Msg("Match started")

	view := NewMatchView(st)
	s.broadcaster.BroadcastMatchEvent(st.MatchID, EventMatchStarted, view)
	if s.bots != nil && st.Players[st.CurrentPlayerIndex].IsAI {
		s.bots.Schedule(st.MatchID)
	}
	return view, nil
}

// GetMatchState returns the public view of a match.
func (s *MatchService) GetMatchState(ctx context.Context, matchID string) (*MatchView, error) {
	st, err := loadState(ctx, s.store, s.cache, matchID)
	if err != nil {
		return nil, err
	}
	return NewMatchView(st), nil
}

// GetPlayerCards returns the caller's own hand.
func (s *MatchService) GetPlayerCards(ctx context.Context, matchID, playerID string) ([]risk.Card, error) {
	st, err := loadState(ctx, s.store, s.cache, matchID)
	if err != nil {
		return nil, err
	}
	if st.PlayerIndex(playerID) < 0 {
		return nil, ErrNotInMatch
	}
	hand := st.CardsOf(playerID)
	if hand == nil {
		hand = []risk.Card{}
	}
	return hand, nil
}

// ListActions returns the action log of a match, oldest first.
func (s *MatchService) ListActions(ctx context.Context, matchID string) ([]model.Action, error) {
	m, err := s.store.FindMatch(ctx, matchID)
	if err != nil {
		return nil, asStoreError(err)
	}
	if m == nil {
		return nil, ErrMatchNotFound
	}
	actions, err := s.store.ListActions(ctx, matchID)
	if err != nil {
		return nil, asStoreError(err)
	}
	return actions, nil
}
