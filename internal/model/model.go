package model

import (
	"encoding/json"
	"time"
)

// Room statuses.
const (
	RoomWaiting  = "waiting"
	RoomPlaying  = "playing"
	RoomFinished = "finished"
)

// Room modes. Objectives is accepted but populates nothing.
const (
	ModeClassic    = "classic"
	ModeObjectives = "objectives"
)

// Room is a lobby that becomes a match once the host starts it.
type Room struct {
	ID         string       `json:"id"`
	HostID     string       `json:"host_id"`
	Status     string       `json:"status"` // waiting, playing, finished
	Mode       string       `json:"mode"`
	MaxPlayers int          `json:"max_players"`
	MatchID    string       `json:"match_id,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Players    []RoomPlayer `json:"players,omitempty"`
}

// RoomPlayer is one seat in a room. Seat order is turn order.
type RoomPlayer struct {
	RoomID        string    `json:"room_id"`
	PlayerID      string    `json:"player_id"`
	Seat          int       `json:"seat"`
	IsBot         bool      `json:"is_bot"`
	BotDifficulty string    `json:"bot_difficulty,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
}

// Match is the persisted header of a match; territories and cards are
// stored as separate rows.
type Match struct {
	ID                   string    `json:"id"`
	RoomID               string    `json:"room_id"`
	CurrentPlayerIndex   int       `json:"current_player_index"`
	Phase                string    `json:"phase"`
	TurnNumber           int       `json:"turn_number"`
	ReinforcementsLeft   int       `json:"reinforcements_left"`
	HasConqueredThisTurn bool      `json:"has_conquered_this_turn"`
	HasFortifiedThisTurn bool      `json:"has_fortified_this_turn"`
	CardTradeCount       int       `json:"card_trade_count"`
	WinnerID             string    `json:"winner_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Action is an append-only log entry for a committed action.
type Action struct {
	ID        int64           `json:"id"`
	MatchID   string          `json:"match_id"`
	PlayerID  string          `json:"player_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
