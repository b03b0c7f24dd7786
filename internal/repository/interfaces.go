package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/freeeve/conquest/api/internal/model"
	"github.com/freeeve/conquest/api/pkg/risk"
)

var (
	// ErrLockHeld is returned by MatchLocker when another holder owns the lock.
	ErrLockHeld = errors.New("match lock held")
	// ErrConflict is returned when a write collides with an existing row.
	ErrConflict = errors.New("conflicting write")
)

// RoomRepository defines room roster operations.
type RoomRepository interface {
	Create(ctx context.Context, hostID string, maxPlayers int, mode string) (*model.Room, error)
	FindByID(ctx context.Context, id string) (*model.Room, error)
	AddPlayer(ctx context.Context, roomID, playerID string, isBot bool, difficulty string) error
}

// MatchStore persists match state. Every mutation happens inside InTx so a
// failed action commits nothing.
type MatchStore interface {
	InTx(ctx context.Context, fn func(tx MatchTx) error) error
	LoadState(ctx context.Context, matchID string) (*risk.MatchState, error)
	FindMatch(ctx context.Context, matchID string) (*model.Match, error)
	ListActions(ctx context.Context, matchID string) ([]model.Action, error)
	ListActiveMatches(ctx context.Context) ([]model.Match, error)
}

// MatchTx is a transaction handle. It must not be used after InTx returns.
type MatchTx interface {
	// LockRoom reads a room with its players and holds it until commit.
	LockRoom(ctx context.Context, roomID string) (*model.Room, error)
	// LockState reads the full state of a match and holds it until commit.
	// It returns nil, nil if the match does not exist.
	LockState(ctx context.Context, matchID string) (*risk.MatchState, error)
	// CreateMatch inserts the match, its territories and its deck, and
	// returns the assigned id.
	CreateMatch(ctx context.Context, s *risk.MatchState) (string, error)
	// SaveChanges writes the records listed in ch, taken from after.
	SaveChanges(ctx context.Context, after *risk.MatchState, ch risk.Changes) error
	AppendAction(ctx context.Context, a model.Action) error
	SetRoomStatus(ctx context.Context, roomID, status string) error
}

// MatchCache holds the latest committed snapshot of each live match (Redis).
type MatchCache interface {
	SetMatchState(ctx context.Context, matchID string, state json.RawMessage) error
	GetMatchState(ctx context.Context, matchID string) (json.RawMessage, error)
	ExpireMatchState(ctx context.Context, matchID string) error
}

// MatchLocker serialises mutations of one match across processes.
type MatchLocker interface {
	Lock(ctx context.Context, matchID string, ttl time.Duration) (unlock func(), err error)
}
