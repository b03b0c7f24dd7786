// Package memory is an in-process implementation of the repository
// interfaces. Transactions are serialised by one store-wide mutex and
// staged writes are only published on commit.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freeeve/conquest/api/internal/model"
	"github.com/freeeve/conquest/api/internal/repository"
	"github.com/freeeve/conquest/api/pkg/risk"
)

// Store keeps rooms, matches and action logs in memory.
type Store struct {
	mu      sync.Mutex // guards everything below
	txMu    sync.Mutex // held for the duration of InTx
	rooms   map[string]*model.Room
	matches map[string]*matchRecord
	byRoom  map[string]string
	actions map[string][]model.Action
	nextID  int64
}

type matchRecord struct {
	state     *risk.MatchState
	createdAt time.Time
	updatedAt time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		rooms:   make(map[string]*model.Room),
		matches: make(map[string]*matchRecord),
		byRoom:  make(map[string]string),
		actions: make(map[string][]model.Action),
	}
}

func (s *Store) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

// Create implements repository.RoomRepository.
func (s *Store) Create(_ context.Context, hostID string, maxPlayers int, mode string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &model.Room{
		ID:         s.newID("room"),
		HostID:     hostID,
		Status:     model.RoomWaiting,
		Mode:       mode,
		MaxPlayers: maxPlayers,
		CreatedAt:  time.Now(),
	}
	s.rooms[r.ID] = r
	return copyRoom(r), nil
}

// FindByID implements repository.RoomRepository.
func (s *Store) FindByID(_ context.Context, id string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	return copyRoom(r), nil
}

// AddPlayer implements repository.RoomRepository.
func (s *Store) AddPlayer(_ context.Context, roomID, playerID string, isBot bool, difficulty string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return fmt.Errorf("add room player: room %s not found", roomID)
	}
	for _, p := range r.Players {
		if p.PlayerID == playerID {
			return fmt.Errorf("add room player: %w", repository.ErrConflict)
		}
	}
	r.Players = append(r.Players, model.RoomPlayer{
		RoomID:        roomID,
		PlayerID:      playerID,
		Seat:          len(r.Players),
		IsBot:         isBot,
		BotDifficulty: difficulty,
		JoinedAt:      time.Now(),
	})
	return nil
}

// InTx implements repository.MatchStore.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.MatchTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{store: s, states: map[string]*risk.MatchState{}, roomStatus: map[string]string{}}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// LoadState implements repository.MatchStore.
func (s *Store) LoadState(_ context.Context, matchID string) (*risk.MatchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.matches[matchID]
	if !ok {
		return nil, nil
	}
	return rec.state.Clone(), nil
}

// FindMatch implements repository.MatchStore.
func (s *Store) FindMatch(_ context.Context, matchID string) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.matches[matchID]
	if !ok {
		return nil, nil
	}
	m := toModel(rec)
	return &m, nil
}

// ListActions implements repository.MatchStore.
func (s *Store) ListActions(_ context.Context, matchID string) ([]model.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Action(nil), s.actions[matchID]...), nil
}

// ListActiveMatches implements repository.MatchStore.
func (s *Store) ListActiveMatches(_ context.Context) ([]model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Match
	for _, rec := range s.matches {
		room := s.rooms[rec.state.RoomID]
		if rec.state.WinnerID != "" || room == nil || room.Status != model.RoomPlaying {
			continue
		}
		out = append(out, toModel(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memTx struct {
	store      *Store
	states     map[string]*risk.MatchState
	created    map[string]bool
	roomStatus map[string]string
	actions    []model.Action
}

func (t *memTx) LockRoom(_ context.Context, roomID string) (*model.Room, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	cp := copyRoom(r)
	if st, ok := t.roomStatus[roomID]; ok {
		cp.Status = st
	}
	return cp, nil
}

func (t *memTx) LockState(_ context.Context, matchID string) (*risk.MatchState, error) {
	if st, ok := t.states[matchID]; ok {
		return st.Clone(), nil
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.matches[matchID]
	if !ok {
		return nil, nil
	}
	return rec.state.Clone(), nil
}

func (t *memTx) CreateMatch(_ context.Context, st *risk.MatchState) (string, error) {
	s := t.store
	s.mu.Lock()
	if _, dup := s.byRoom[st.RoomID]; dup {
		s.mu.Unlock()
		return "", fmt.Errorf("create match: %w", repository.ErrConflict)
	}
	id := s.newID("match")
	s.mu.Unlock()

	cp := st.Clone()
	cp.MatchID = id
	t.states[id] = cp
	if t.created == nil {
		t.created = map[string]bool{}
	}
	t.created[id] = true
	return id, nil
}

func (t *memTx) SaveChanges(_ context.Context, after *risk.MatchState, ch risk.Changes) error {
	if ch.Empty() {
		return nil
	}
	t.states[after.MatchID] = after.Clone()
	return nil
}

func (t *memTx) AppendAction(_ context.Context, a model.Action) error {
	if len(a.Payload) == 0 {
		a.Payload = json.RawMessage(`{}`)
	}
	t.actions = append(t.actions, a)
	return nil
}

func (t *memTx) SetRoomStatus(_ context.Context, roomID, status string) error {
	t.roomStatus[roomID] = status
	return nil
}

func (t *memTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, st := range t.states {
		rec, ok := s.matches[id]
		if !ok {
			rec = &matchRecord{createdAt: now}
			s.matches[id] = rec
			s.byRoom[st.RoomID] = id
			if r := s.rooms[st.RoomID]; r != nil {
				r.MatchID = id
			}
		}
		rec.state = st
		rec.updatedAt = now
	}
	for roomID, status := range t.roomStatus {
		if r := s.rooms[roomID]; r != nil {
			r.Status = status
			if status == model.RoomFinished {
				r.FinishedAt = &now
			}
		}
	}
	for _, a := range t.actions {
		s.nextID++
		a.ID = s.nextID
		a.CreatedAt = now
		s.actions[a.MatchID] = append(s.actions[a.MatchID], a)
	}
}

func copyRoom(r *model.Room) *model.Room {
	cp := *r
	cp.Players = append([]model.RoomPlayer(nil), r.Players...)
	return &cp
}

func toModel(rec *matchRecord) model.Match {
	st := rec.state
	return model.Match{
		ID:                   st.MatchID,
		RoomID:               st.RoomID,
		CurrentPlayerIndex:   st.CurrentPlayerIndex,
		Phase:                string(st.Phase),
		TurnNumber:           st.TurnNumber,
		ReinforcementsLeft:   st.ReinforcementsLeft,
		HasConqueredThisTurn: st.HasConqueredThisTurn,
		HasFortifiedThisTurn: st.HasFortifiedThisTurn,
		CardTradeCount:       st.CardTradeCount,
		WinnerID:             st.WinnerID,
		CreatedAt:            rec.createdAt,
		UpdatedAt:            rec.updatedAt,
	}
}
