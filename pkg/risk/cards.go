package risk

// Symbol is the picture on a card.
type Symbol string

const (
	Soldier Symbol = "soldier"
	Cavalry Symbol = "cavalry"
	Cannon  Symbol = "cannon"
	Joker   Symbol = "joker"
)

// TradeSize is the number of cards exchanged in one trade.
const TradeSize = 3

// ForcedTradeHandSize is the hand size at which a player must trade.
const ForcedTradeHandSize = 5

// territoryCardBonus is granted per traded card depicting a territory the
// trader owns.
const territoryCardBonus = 2

var bonusSchedule = [...]int{4, 6, 8, 10, 12, 15}

var basicSymbols = [...]Symbol{Soldier, Cavalry, Cannon}

// Valid reports whether s is one of the four card symbols.
func (s Symbol) Valid() bool {
	switch s {
	case Soldier, Cavalry, Cannon, Joker:
		return true
	}
	return false
}

// IsValidCombination reports whether three symbols form a tradeable set:
// three of a kind, one of each, or any completion of those using jokers.
// Three jokers are not a set.
func IsValidCombination(symbols []Symbol) bool {
	if len(symbols) != TradeSize {
		return false
	}
	jokers := 0
	distinct := make(map[Symbol]int, 3)
	for _, s := range symbols {
		switch s {
		case Joker:
			jokers++
		case Soldier, Cavalry, Cannon:
			distinct[s]++
		default:
			return false
		}
	}
	switch len(distinct) {
	case 1:
		// n of a kind plus (3-n) jokers
		return true
	case 2:
		// two different symbols: only a joker can complete one of each
		return jokers == 1
	case 3:
		return true
	}
	return false
}

// CardBonus returns the armies granted for the trade numbered tradeCount
// (zero based, counted across the whole match).
func CardBonus(tradeCount int) int {
	if tradeCount < 0 {
		return 0
	}
	if tradeCount < len(bonusSchedule) {
		return bonusSchedule[tradeCount]
	}
	return bonusSchedule[len(bonusSchedule)-1] + (tradeCount-len(bonusSchedule)+1)*5
}

// TerritoryBonus returns +2 for every non-joker card whose territory is owned
// by player in s.
func TerritoryBonus(s *MatchState, player string, cards []Card) int {
	bonus := 0
	for _, c := range cards {
		if c.Symbol == Joker || c.TerritoryID == "" {
			continue
		}
		if t, ok := s.Territories[c.TerritoryID]; ok && t.Owner == player {
			bonus += territoryCardBonus
		}
	}
	return bonus
}

// FindTradeSet picks a valid set from hand, preferring three of a kind, then
// one of each, then sets completed with jokers. It returns nil when no set
// exists.
func FindTradeSet(hand []Card) []Card {
	if len(hand) < TradeSize {
		return nil
	}
	bySymbol := make(map[Symbol][]Card, 4)
	for _, c := range hand {
		bySymbol[c.Symbol] = append(bySymbol[c.Symbol], c)
	}
	for _, s := range basicSymbols {
		if cs := bySymbol[s]; len(cs) >= 3 {
			return []Card{cs[0], cs[1], cs[2]}
		}
	}
	if len(bySymbol[Soldier]) > 0 && len(bySymbol[Cavalry]) > 0 && len(bySymbol[Cannon]) > 0 {
		return []Card{bySymbol[Soldier][0], bySymbol[Cavalry][0], bySymbol[Cannon][0]}
	}
	jokers := bySymbol[Joker]
	if len(jokers) == 0 {
		return nil
	}
	var present []Symbol
	for _, s := range basicSymbols {
		if len(bySymbol[s]) > 0 {
			present = append(present, s)
		}
	}
	if len(present) >= 2 {
		return []Card{bySymbol[present[0]][0], bySymbol[present[1]][0], jokers[0]}
	}
	for _, s := range basicSymbols {
		if cs := bySymbol[s]; len(cs) >= 2 {
			return []Card{cs[0], cs[1], jokers[0]}
		}
	}
	if len(present) == 1 && len(jokers) >= 2 {
		return []Card{bySymbol[present[0]][0], jokers[0], jokers[1]}
	}
	return nil
}

func symbolsOf(cards []Card) []Symbol {
	out := make([]Symbol, len(cards))
	for i, c := range cards {
		out[i] = c.Symbol
	}
	return out
}
