package risk

const minReinforcements = 3

// CalculateReinforcements returns the armies granted at the start of a turn
// to a player holding owned: max(3, n/3) plus the bonus of every continent
// held in full.
func CalculateReinforcements(m *Map, owned []string) int {
	if len(owned) == 0 {
		return 0
	}
	held := make(map[string]bool, len(owned))
	for _, id := range owned {
		held[id] = true
	}
	total := max(minReinforcements, len(held)/3)
	for _, cid := range m.continentIDs {
		if holdsAll(held, m.Continents[cid].Territories) {
			total += m.Continents[cid].Bonus
		}
	}
	return total
}

func holdsAll(held map[string]bool, ids []string) bool {
	for _, id := range ids {
		if !held[id] {
			return false
		}
	}
	return true
}
