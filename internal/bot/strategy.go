package bot

import (
	"github.com/freeeve/conquest/api/pkg/risk"
)

// Strategy decides a bot player's moves one action at a time. Every method
// reads the current state and must not modify it.
type Strategy interface {
	Name() string
	// ChooseTrade returns the card ids to trade, or nil to skip trading.
	ChooseTrade(s *risk.MatchState, player string) []string
	// ChooseReinforcement picks the next placement while reinforcements remain.
	ChooseReinforcement(s *risk.MatchState, player string, m *risk.Map) risk.Reinforce
	// ChooseAttack returns the best qualifying attack, if any.
	ChooseAttack(s *risk.MatchState, player string, m *risk.Map) (risk.Attack, bool)
	// MaxAttacks caps the attack attempts per turn.
	MaxAttacks() int
	// ChooseFortify returns the end-of-turn move, if any.
	ChooseFortify(s *risk.MatchState, player string, m *risk.Map) (risk.Fortify, bool)
}

// Difficulty levels accepted by StrategyForDifficulty.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// ValidDifficulty reports whether d names a known bot level.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// StrategyForDifficulty returns the appropriate strategy for a bot difficulty level.
func StrategyForDifficulty(difficulty string) Strategy {
	switch difficulty {
	case DifficultyMedium:
		return &MediumStrategy{}
	case DifficultyHard:
		return &HardStrategy{}
	default:
		return &EasyStrategy{}
	}
}
