package bot

import (
	"github.com/freeeve/conquest/api/pkg/risk"
)

// HardStrategy stacks reinforcements opposite the weakest enemy, takes any
// attack that is not a disadvantage and attacks up to ten times a turn.
type HardStrategy struct{}

func (HardStrategy) Name() string { return DifficultyHard }

func (HardStrategy) ChooseTrade(s *risk.MatchState, player string) []string {
	return opportunisticTrade(s, player)
}

func (HardStrategy) ChooseReinforcement(s *risk.MatchState, player string, m *risk.Map) risk.Reinforce {
	return frontierPlacement(s, m, player, func(ids []string) string {
		best, bestWeak := ids[0], weakestEnemyArmies(s, m, ids[0], player)
		for _, id := range ids[1:] {
			if w := weakestEnemyArmies(s, m, id, player); w < bestWeak {
				best, bestWeak = id, w
			}
		}
		return best
	})
}

func (HardStrategy) ChooseAttack(s *risk.MatchState, player string, m *risk.Map) (risk.Attack, bool) {
	return bestAttack(s, m, player, 0)
}

func (HardStrategy) MaxAttacks() int { return 10 }

func (HardStrategy) ChooseFortify(s *risk.MatchState, player string, m *risk.Map) (risk.Fortify, bool) {
	return interiorFortify(s, m, player)
}
