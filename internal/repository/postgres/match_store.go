package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/freeeve/conquest/api/internal/model"
	"github.com/freeeve/conquest/api/internal/repository"
	"github.com/freeeve/conquest/api/pkg/risk"
)

// MatchStore persists matches, territories, cards and the action log.
type MatchStore struct {
	db *sql.DB
}

// NewMatchStore creates a MatchStore.
func NewMatchStore(db *sql.DB) *MatchStore {
	return &MatchStore{db: db}
}

// InTx runs fn inside a database transaction and commits if fn succeeds.
func (s *MatchStore) InTx(ctx context.Context, fn func(tx repository.MatchTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&matchTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadState reads a consistent snapshot of a match without locking it.
func (s *MatchStore) LoadState(ctx context.Context, matchID string) (*risk.MatchState, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()
	return loadState(ctx, tx, matchID, false)
}

// FindMatch returns the match header, or nil if it does not exist.
func (s *MatchStore) FindMatch(ctx context.Context, matchID string) (*model.Match, error) {
	m, err := scanMatch(s.db.QueryRowContext(ctx, matchColumns+` WHERE id = $1`, matchID))
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	return m, nil
}

// ListActions returns the action log of a match, oldest first.
func (s *MatchStore) ListActions(ctx context.Context, matchID string) ([]model.Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, match_id, player_id, action_type, payload, created_at
		 FROM match_actions WHERE match_id = $1 ORDER BY id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []model.Action
	for rows.Next() {
		var a model.Action
		if err := rows.Scan(&a.ID, &a.MatchID, &a.PlayerID, &a.Type, &a.Payload, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// ListActiveMatches returns matches whose room is still playing.
func (s *MatchStore) ListActiveMatches(ctx context.Context) ([]model.Match, error) {
	rows, err := s.db.QueryContext(ctx,
		matchColumns+` WHERE winner_id IS NULL
		 AND room_id IN (SELECT id FROM rooms WHERE status = 'playing')
		 ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

const matchColumns = `SELECT id, room_id, current_player_index, phase, turn_number, reinforcements_left,
	has_conquered_this_turn, has_fortified_this_turn, card_trade_count, winner_id, created_at, updated_at
	FROM matches`

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (*model.Match, error) {
	var m model.Match
	var winner sql.NullString
	err := row.Scan(&m.ID, &m.RoomID, &m.CurrentPlayerIndex, &m.Phase, &m.TurnNumber, &m.ReinforcementsLeft,
		&m.HasConqueredThisTurn, &m.HasFortifiedThisTurn, &m.CardTradeCount, &winner, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.WinnerID = winner.String
	return &m, nil
}

func loadState(ctx context.Context, q queryer, matchID string, forUpdate bool) (*risk.MatchState, error) {
	query := matchColumns + ` WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	m, err := scanMatch(q.QueryRowContext(ctx, query, matchID))
	if isMissing(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load match: %w", err)
	}

	s := &risk.MatchState{
		MatchID:              m.ID,
		RoomID:               m.RoomID,
		CurrentPlayerIndex:   m.CurrentPlayerIndex,
		Phase:                risk.Phase(m.Phase),
		TurnNumber:           m.TurnNumber,
		ReinforcementsLeft:   m.ReinforcementsLeft,
		HasConqueredThisTurn: m.HasConqueredThisTurn,
		HasFortifiedThisTurn: m.HasFortifiedThisTurn,
		CardTradeCount:       m.CardTradeCount,
		WinnerID:             m.WinnerID,
		Territories:          make(map[string]*risk.Territory),
	}

	rows, err := q.QueryContext(ctx,
		`SELECT player_id, is_bot, bot_difficulty FROM room_players WHERE room_id = $1 ORDER BY seat`, m.RoomID)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	err = eachRow(rows, func() error {
		var p risk.Player
		if err := rows.Scan(&p.ID, &p.IsAI, &p.Difficulty); err != nil {
			return err
		}
		s.Players = append(s.Players, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}

	rows, err = q.QueryContext(ctx,
		`SELECT territory_id, owner_id, armies FROM match_territories WHERE match_id = $1`, matchID)
	if err != nil {
		return nil, fmt.Errorf("load territories: %w", err)
	}
	err = eachRow(rows, func() error {
		var t risk.Territory
		var owner sql.NullString
		if err := rows.Scan(&t.ID, &owner, &t.Armies); err != nil {
			return err
		}
		t.Owner = owner.String
		s.Territories[t.ID] = &t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load territories: %w", err)
	}

	rows, err = q.QueryContext(ctx,
		`SELECT card_id, territory_id, symbol, player_id FROM match_cards WHERE match_id = $1 ORDER BY position`, matchID)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	err = eachRow(rows, func() error {
		var c risk.Card
		var territory, owner sql.NullString
		var symbol string
		if err := rows.Scan(&c.ID, &territory, &symbol, &owner); err != nil {
			return err
		}
		c.TerritoryID = territory.String
		c.Symbol = risk.Symbol(symbol)
		c.Owner = owner.String
		s.Cards = append(s.Cards, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	return s, nil
}

type matchTx struct {
	tx *sql.Tx
}

func (t *matchTx) LockRoom(ctx context.Context, roomID string) (*model.Room, error) {
	return findRoom(ctx, t.tx, roomID, true)
}

func (t *matchTx) LockState(ctx context.Context, matchID string) (*risk.MatchState, error) {
	return loadState(ctx, t.tx, matchID, true)
}

func (t *matchTx) CreateMatch(ctx context.Context, s *risk.MatchState) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO matches (room_id, current_player_index, phase, turn_number, reinforcements_left, card_trade_count)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		s.RoomID, s.CurrentPlayerIndex, string(s.Phase), s.TurnNumber, s.ReinforcementsLeft, s.CardTradeCount,
	).Scan(&id)
	if err != nil {
		return "", mapErr("create match", err)
	}

	var ids, owners []string
	var armies []int64
	for tid, terr := range s.Territories {
		ids = append(ids, tid)
		owners = append(owners, terr.Owner)
		armies = append(armies, int64(terr.Armies))
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO match_territories (match_id, territory_id, owner_id, armies)
		 SELECT $1, x.territory_id, NULLIF(x.owner_id, ''), x.armies
		 FROM unnest($2::text[], $3::text[], $4::int[]) AS x(territory_id, owner_id, armies)`,
		id, pq.Array(ids), pq.Array(owners), pq.Array(armies))
	if err != nil {
		return "", fmt.Errorf("insert territories: %w", err)
	}

	cardIDs := make([]string, len(s.Cards))
	territories := make([]string, len(s.Cards))
	symbols := make([]string, len(s.Cards))
	holders := make([]string, len(s.Cards))
	positions := make([]int64, len(s.Cards))
	for i, c := range s.Cards {
		cardIDs[i] = c.ID
		territories[i] = c.TerritoryID
		symbols[i] = string(c.Symbol)
		holders[i] = c.Owner
		positions[i] = int64(i)
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO match_cards (match_id, card_id, territory_id, symbol, player_id, position)
		 SELECT $1, x.card_id, NULLIF(x.territory_id, ''), x.symbol, NULLIF(x.player_id, ''), x.position
		 FROM unnest($2::text[], $3::text[], $4::text[], $5::text[], $6::int[])
		      AS x(card_id, territory_id, symbol, player_id, position)`,
		id, pq.Array(cardIDs), pq.Array(territories), pq.Array(symbols), pq.Array(holders), pq.Array(positions))
	if err != nil {
		return "", fmt.Errorf("insert cards: %w", err)
	}
	return id, nil
}

func (t *matchTx) SaveChanges(ctx context.Context, after *risk.MatchState, ch risk.Changes) error {
	if ch.Match {
		_, err := t.tx.ExecContext(ctx,
			`UPDATE matches SET current_player_index = $2, phase = $3, turn_number = $4, reinforcements_left = $5,
			        has_conquered_this_turn = $6, has_fortified_this_turn = $7, card_trade_count = $8,
			        winner_id = NULLIF($9, ''), updated_at = now()
			 WHERE id = $1`,
			after.MatchID, after.CurrentPlayerIndex, string(after.Phase), after.TurnNumber, after.ReinforcementsLeft,
			after.HasConqueredThisTurn, after.HasFortifiedThisTurn, after.CardTradeCount, after.WinnerID)
		if err != nil {
			return fmt.Errorf("update match: %w", err)
		}
	}
	for _, terr := range ch.Territories {
		_, err := t.tx.ExecContext(ctx,
			`UPDATE match_territories SET owner_id = $3, armies = $4 WHERE match_id = $1 AND territory_id = $2`,
			after.MatchID, terr.ID, terr.Owner, terr.Armies)
		if err != nil {
			return fmt.Errorf("update territory %s: %w", terr.ID, err)
		}
	}
	for _, c := range ch.Cards {
		_, err := t.tx.ExecContext(ctx,
			`UPDATE match_cards SET player_id = NULLIF($3, '') WHERE match_id = $1 AND card_id = $2`,
			after.MatchID, c.ID, c.Owner)
		if err != nil {
			return fmt.Errorf("update card %s: %w", c.ID, err)
		}
	}
	return nil
}

func (t *matchTx) AppendAction(ctx context.Context, a model.Action) error {
	payload := a.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO match_actions (match_id, player_id, action_type, payload) VALUES ($1, $2, $3, $4)`,
		a.MatchID, a.PlayerID, a.Type, []byte(payload))
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	return nil
}

func (t *matchTx) SetRoomStatus(ctx context.Context, roomID, status string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE rooms SET status = $2,
		        finished_at = CASE WHEN $2 = 'finished' THEN now() ELSE finished_at END
		 WHERE id = $1`, roomID, status)
	if err != nil {
		return fmt.Errorf("set room status: %w", err)
	}
	return nil
}
