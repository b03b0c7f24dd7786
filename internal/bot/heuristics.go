package bot

import (
	"github.com/freeeve/conquest/api/pkg/risk"
)

// forcedTrade returns a set when the hand is at the forced trade size.
func forcedTrade(s *risk.MatchState, player string) []string {
	hand := s.CardsOf(player)
	if len(hand) < risk.ForcedTradeHandSize {
		return nil
	}
	return cardIDs(risk.FindTradeSet(hand))
}

// opportunisticTrade returns the first valid set in any hand of three or more.
func opportunisticTrade(s *risk.MatchState, player string) []string {
	return cardIDs(risk.FindTradeSet(s.CardsOf(player)))
}

func cardIDs(cards []risk.Card) []string {
	if len(cards) == 0 {
		return nil
	}
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

// enemyNeighbors lists the adjacent territories owned by someone else.
func enemyNeighbors(s *risk.MatchState, m *risk.Map, id, player string) []*risk.Territory {
	var out []*risk.Territory
	for _, n := range m.Neighbors(id) {
		if t := s.Territories[n]; t != nil && t.Owner != player {
			out = append(out, t)
		}
	}
	return out
}

// frontier returns the player's territories bordering at least one enemy,
// in sorted id order.
func frontier(s *risk.MatchState, m *risk.Map, player string) []string {
	var out []string
	for _, id := range s.TerritoriesOf(player) {
		if len(enemyNeighbors(s, m, id, player)) > 0 {
			out = append(out, id)
		}
	}
	return out
}

// weakestEnemyArmies is the smallest army count among enemy neighbours.
func weakestEnemyArmies(s *risk.MatchState, m *risk.Map, id, player string) int {
	weakest := -1
	for _, t := range enemyNeighbors(s, m, id, player) {
		if weakest < 0 || t.Armies < weakest {
			weakest = t.Armies
		}
	}
	return weakest
}

// batchSize is the placement size used by frontier-focused strategies.
func batchSize(remaining int) int {
	return (remaining + 2) / 3
}

// frontierPlacement places ceil(remaining/3) on the frontier territory that
// pick selects, or on the first owned territory when nothing borders an enemy.
func frontierPlacement(s *risk.MatchState, m *risk.Map, player string, pick func(ids []string) string) risk.Reinforce {
	amount := batchSize(s.ReinforcementsLeft)
	if f := frontier(s, m, player); len(f) > 0 {
		return risk.Reinforce{TerritoryID: pick(f), Amount: amount}
	}
	owned := s.TerritoriesOf(player)
	if len(owned) == 0 {
		return risk.Reinforce{}
	}
	return risk.Reinforce{TerritoryID: owned[0], Amount: amount}
}

// bestAttack scores every (owned, adjacent enemy) pair by armyAdvantage plus
// a bonus of 2 when the attacker holds more than three armies, and returns
// the highest scoring pair whose advantage is at least minAdvantage.
func bestAttack(s *risk.MatchState, m *risk.Map, player string, minAdvantage int) (risk.Attack, bool) {
	var best risk.Attack
	bestScore := 0
	found := false
	for _, id := range s.TerritoriesOf(player) {
		from := s.Territories[id]
		if from.Armies < 2 {
			continue
		}
		for _, to := range enemyNeighbors(s, m, id, player) {
			adv := from.Armies - to.Armies
			if adv < minAdvantage {
				continue
			}
			score := adv
			if from.Armies > 3 {
				score += 2
			}
			if !found || score > bestScore {
				best = risk.Attack{From: id, To: to.ID, Dice: risk.MaxAttackDiceFor(from.Armies)}
				bestScore = score
				found = true
			}
		}
	}
	return best, found
}

// interiorFortify moves all but one army from the largest interior stack
// (no enemy neighbours, more than one army) to an adjacent frontier territory.
func interiorFortify(s *risk.MatchState, m *risk.Map, player string) (risk.Fortify, bool) {
	var source *risk.Territory
	for _, id := range s.TerritoriesOf(player) {
		t := s.Territories[id]
		if t.Armies <= 1 || len(enemyNeighbors(s, m, id, player)) > 0 {
			continue
		}
		if source == nil || t.Armies > source.Armies {
			source = t
		}
	}
	if source == nil {
		return risk.Fortify{}, false
	}
	for _, n := range m.Neighbors(source.ID) {
		t := s.Territories[n]
		if t == nil || t.Owner != player {
			continue
		}
		if len(enemyNeighbors(s, m, n, player)) > 0 {
			return risk.Fortify{From: source.ID, To: n, Amount: source.Armies - 1}, true
		}
	}
	return risk.Fortify{}, false
}
