package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/conquest/api/internal/model"
)

// RoomRepo handles room and room_player database operations.
type RoomRepo struct {
	db *sql.DB
}

// NewRoomRepo creates a RoomRepo.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// Create inserts a new room in "waiting" status.
func (r *RoomRepo) Create(ctx context.Context, hostID string, maxPlayers int, mode string) (*model.Room, error) {
	var room model.Room
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO rooms (host_id, max_players, mode)
		 VALUES ($1, $2, $3)
		 RETURNING id, host_id, status, mode, max_players, created_at`,
		hostID, maxPlayers, mode,
	).Scan(&room.ID, &room.HostID, &room.Status, &room.Mode, &room.MaxPlayers, &room.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return &room, nil
}

// FindByID returns a room with its players, or nil if it does not exist.
func (r *RoomRepo) FindByID(ctx context.Context, id string) (*model.Room, error) {
	return findRoom(ctx, r.db, id, false)
}

// AddPlayer seats a player in the next free seat.
func (r *RoomRepo) AddPlayer(ctx context.Context, roomID, playerID string, isBot bool, difficulty string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO room_players (room_id, player_id, seat, is_bot, bot_difficulty)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(seat) + 1, 0) FROM room_players WHERE room_id = $1), $3, $4)`,
		roomID, playerID, isBot, difficulty)
	if err != nil {
		return mapErr("add room player", err)
	}
	return nil
}

func findRoom(ctx context.Context, q queryer, id string, forUpdate bool) (*model.Room, error) {
	query := `SELECT r.id, r.host_id, r.status, r.mode, r.max_players, r.created_at, r.finished_at,
	                 COALESCE((SELECT m.id::text FROM matches m WHERE m.room_id = r.id), '')
	          FROM rooms r WHERE r.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF r`
	}
	var room model.Room
	err := q.QueryRowContext(ctx, query, id).Scan(
		&room.ID, &room.HostID, &room.Status, &room.Mode, &room.MaxPlayers,
		&room.CreatedAt, &room.FinishedAt, &room.MatchID)
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find room: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT room_id, player_id, seat, is_bot, bot_difficulty, joined_at
		 FROM room_players WHERE room_id = $1 ORDER BY seat`, id)
	if err != nil {
		return nil, fmt.Errorf("list room players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p model.RoomPlayer
		if err := rows.Scan(&p.RoomID, &p.PlayerID, &p.Seat, &p.IsBot, &p.BotDifficulty, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan room player: %w", err)
		}
		room.Players = append(room.Players, p)
	}
	return &room, rows.Err()
}
