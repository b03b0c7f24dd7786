package bot

import (
	"github.com/freeeve/conquest/api/pkg/risk"
)

// EasyStrategy places single armies at random, only attacks with a clear
// advantage, trades only when forced and never fortifies.
type EasyStrategy struct{}

func (EasyStrategy) Name() string { return DifficultyEasy }

func (EasyStrategy) ChooseTrade(s *risk.MatchState, player string) []string {
	return forcedTrade(s, player)
}

func (EasyStrategy) ChooseReinforcement(s *risk.MatchState, player string, _ *risk.Map) risk.Reinforce {
	owned := s.TerritoriesOf(player)
	if len(owned) == 0 {
		return risk.Reinforce{}
	}
	return risk.Reinforce{TerritoryID: owned[botIntn(len(owned))], Amount: 1}
}

func (EasyStrategy) ChooseAttack(s *risk.MatchState, player string, m *risk.Map) (risk.Attack, bool) {
	return bestAttack(s, m, player, 3)
}

func (EasyStrategy) MaxAttacks() int { return 2 }

func (EasyStrategy) ChooseFortify(*risk.MatchState, string, *risk.Map) (risk.Fortify, bool) {
	return risk.Fortify{}, false
}
