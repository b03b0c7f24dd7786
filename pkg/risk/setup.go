package risk

import "fmt"

const (
	MinPlayers = 2
	MaxPlayers = 6
)

var initialArmies = map[int]int{2: 40, 3: 35, 4: 30, 5: 25, 6: 20}

const defaultInitialArmies = 30

// InitialArmies is the starting army total per player for a match of n.
func InitialArmies(n int) int {
	if v, ok := initialArmies[n]; ok {
		return v
	}
	return defaultInitialArmies
}

// NewMatch deals a fresh match: territories are shuffled and dealt round
// robin with one army each, remaining starting armies are placed one at a
// time on random owned territories, and the deck is built with symbols in
// shuffled order plus two jokers. Player 0 starts in the reinforce phase.
func NewMatch(m *Map, rng Rand, matchID, roomID string, players []Player) (*MatchState, error) {
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		return nil, fmt.Errorf("need %d to %d players, got %d", MinPlayers, MaxPlayers, len(players))
	}
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if p.ID == "" || seen[p.ID] {
			return nil, fmt.Errorf("invalid or duplicate player id %q", p.ID)
		}
		seen[p.ID] = true
	}

	ids := m.TerritoryIDs()
	shuffle(rng, len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	s := &MatchState{
		MatchID:     matchID,
		RoomID:      roomID,
		Players:     append([]Player(nil), players...),
		Phase:       PhaseReinforce,
		TurnNumber:  1,
		Territories: make(map[string]*Territory, len(ids)),
	}
	owned := make([][]string, len(players))
	for i, id := range ids {
		p := i % len(players)
		s.Territories[id] = &Territory{ID: id, Owner: players[p].ID, Armies: 1}
		owned[p] = append(owned[p], id)
	}

	extra := InitialArmies(len(players)) - len(ids)/len(players)
	for p := range players {
		for k := 0; k < extra; k++ {
			id := owned[p][rng.Intn(len(owned[p]))]
			s.Territories[id].Armies++
		}
	}

	s.Cards = buildDeck(rng, m.TerritoryIDs())
	s.ReinforcementsLeft = CalculateReinforcements(m, s.TerritoriesOf(players[0].ID))
	return s, nil
}

func buildDeck(rng Rand, territoryIDs []string) []Card {
	shuffle(rng, len(territoryIDs), func(i, j int) {
		territoryIDs[i], territoryIDs[j] = territoryIDs[j], territoryIDs[i]
	})
	deck := make([]Card, 0, len(territoryIDs)+2)
	for i, id := range territoryIDs {
		deck = append(deck, Card{ID: id, TerritoryID: id, Symbol: basicSymbols[i%len(basicSymbols)]})
	}
	deck = append(deck,
		Card{ID: "joker1", Symbol: Joker},
		Card{ID: "joker2", Symbol: Joker},
	)
	return deck
}
