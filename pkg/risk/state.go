package risk

import "sort"

// Phase is a stage of a player's turn.
type Phase string

const (
	PhaseReinforce Phase = "reinforce"
	PhaseAttack    Phase = "attack"
	PhaseFortify   Phase = "fortify"
)

// Player is one seat in a match, in turn order.
type Player struct {
	ID         string `json:"id"`
	IsAI       bool   `json:"isAi"`
	Difficulty string `json:"difficulty,omitempty"`
}

// Territory is the per-match ownership record of a map territory.
type Territory struct {
	ID     string `json:"id"`
	Owner  string `json:"owner"`
	Armies int    `json:"armies"`
}

// Card is one card of the deck. An empty Owner means the card is in the pool.
type Card struct {
	ID          string `json:"id"`
	Owner       string `json:"owner,omitempty"`
	TerritoryID string `json:"territoryId,omitempty"`
	Symbol      Symbol `json:"symbol"`
}

// MatchState is the complete mutable state of one match. The engine never
// modifies a MatchState in place; Apply returns a new one.
type MatchState struct {
	MatchID              string                `json:"matchId"`
	RoomID               string                `json:"roomId"`
	Players              []Player              `json:"players"`
	CurrentPlayerIndex   int                   `json:"currentPlayerIndex"`
	Phase                Phase                 `json:"phase"`
	TurnNumber           int                   `json:"turnNumber"`
	ReinforcementsLeft   int                   `json:"reinforcementsLeft"`
	HasConqueredThisTurn bool                  `json:"hasConqueredThisTurn"`
	HasFortifiedThisTurn bool                  `json:"hasFortifiedThisTurn"`
	CardTradeCount       int                   `json:"cardTradeCount"`
	WinnerID             string                `json:"winnerId,omitempty"`
	Territories          map[string]*Territory `json:"territories"`
	Cards                []Card                `json:"cards"`
}

// Clone returns a deep copy.
func (s *MatchState) Clone() *MatchState {
	c := *s
	c.Players = append([]Player(nil), s.Players...)
	c.Cards = append([]Card(nil), s.Cards...)
	c.Territories = make(map[string]*Territory, len(s.Territories))
	for id, t := range s.Territories {
		tc := *t
		c.Territories[id] = &tc
	}
	return &c
}

// CurrentPlayer returns the id of the player whose turn it is.
func (s *MatchState) CurrentPlayer() string {
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return ""
	}
	return s.Players[s.CurrentPlayerIndex].ID
}

// PlayerIndex returns the seat of id, or -1.
func (s *MatchState) PlayerIndex(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// TerritoriesOf returns the sorted ids of territories owned by player.
func (s *MatchState) TerritoriesOf(player string) []string {
	var out []string
	for id, t := range s.Territories {
		if t.Owner == player {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (s *MatchState) TerritoryCount(player string) int {
	n := 0
	for _, t := range s.Territories {
		if t.Owner == player {
			n++
		}
	}
	return n
}

func (s *MatchState) ArmyCount(player string) int {
	n := 0
	for _, t := range s.Territories {
		if t.Owner == player {
			n += t.Armies
		}
	}
	return n
}

// TotalArmies sums armies over the whole board.
func (s *MatchState) TotalArmies() int {
	n := 0
	for _, t := range s.Territories {
		n += t.Armies
	}
	return n
}

// CardsOf returns the hand of player in deck order.
func (s *MatchState) CardsOf(player string) []Card {
	var out []Card
	for _, c := range s.Cards {
		if c.Owner == player {
			out = append(out, c)
		}
	}
	return out
}

// PoolSize is the number of undrawn cards.
func (s *MatchState) PoolSize() int {
	n := 0
	for _, c := range s.Cards {
		if c.Owner == "" {
			n++
		}
	}
	return n
}

// IsActive reports whether player still owns at least one territory.
func (s *MatchState) IsActive(player string) bool {
	for _, t := range s.Territories {
		if t.Owner == player {
			return true
		}
	}
	return false
}

// Finished reports whether a winner has been declared.
func (s *MatchState) Finished() bool {
	return s.WinnerID != ""
}

func (s *MatchState) cardIndex(id string) int {
	for i, c := range s.Cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Changes lists the records that differ between two states of one match.
type Changes struct {
	Match       bool
	Territories []Territory
	Cards       []Card
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return !c.Match && len(c.Territories) == 0 && len(c.Cards) == 0
}

// Diff compares before and after so a store can patch only modified records.
func Diff(before, after *MatchState) Changes {
	var ch Changes
	ch.Match = before.CurrentPlayerIndex != after.CurrentPlayerIndex ||
		before.Phase != after.Phase ||
		before.TurnNumber != after.TurnNumber ||
		before.ReinforcementsLeft != after.ReinforcementsLeft ||
		before.HasConqueredThisTurn != after.HasConqueredThisTurn ||
		before.HasFortifiedThisTurn != after.HasFortifiedThisTurn ||
		before.CardTradeCount != after.CardTradeCount ||
		before.WinnerID != after.WinnerID

	ids := make([]string, 0, len(after.Territories))
	for id := range after.Territories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		a := after.Territories[id]
		b, ok := before.Territories[id]
		if !ok || *a != *b {
			ch.Territories = append(ch.Territories, *a)
		}
	}

	old := make(map[string]Card, len(before.Cards))
	for _, c := range before.Cards {
		old[c.ID] = c
	}
	for _, c := range after.Cards {
		if prev, ok := old[c.ID]; !ok || prev != c {
			ch.Cards = append(ch.Cards, c)
		}
	}
	return ch
}
