package bot

import (
	"github.com/freeeve/conquest/api/pkg/risk"
)

// MediumStrategy shores up its weakest border territory, attacks whenever
// it has the larger stack and moves idle interior armies to the front.
type MediumStrategy struct{}

func (MediumStrategy) Name() string { return DifficultyMedium }

func (MediumStrategy) ChooseTrade(s *risk.MatchState, player string) []string {
	return opportunisticTrade(s, player)
}

func (MediumStrategy) ChooseReinforcement(s *risk.MatchState, player string, m *risk.Map) risk.Reinforce {
	return frontierPlacement(s, m, player, func(ids []string) string {
		best := ids[0]
		for _, id := range ids[1:] {
			if s.Territories[id].Armies < s.Territories[best].Armies {
				best = id
			}
		}
		return best
	})
}

func (MediumStrategy) ChooseAttack(s *risk.MatchState, player string, m *risk.Map) (risk.Attack, bool) {
	return bestAttack(s, m, player, 1)
}

func (MediumStrategy) MaxAttacks() int { return 5 }

func (MediumStrategy) ChooseFortify(s *risk.MatchState, player string, m *risk.Map) (risk.Fortify, bool) {
	return interiorFortify(s, m, player)
}
