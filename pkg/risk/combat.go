package risk

import "sort"

const (
	MaxAttackDice = 3
	MaxDefendDice = 2
)

// CombatResult is the outcome of one dice exchange.
type CombatResult struct {
	AttackRolls    []int `json:"attackRolls"`
	DefendRolls    []int `json:"defendRolls"`
	AttackerLosses int   `json:"attackerLosses"`
	DefenderLosses int   `json:"defenderLosses"`
}

// ResolveCombat rolls attackDice and defendDice six-sided dice and compares
// them. Callers must have clamped the counts to the armies available.
func ResolveCombat(rng Rand, attackDice, defendDice int) CombatResult {
	atk := rollDice(rng, attackDice)
	def := rollDice(rng, defendDice)
	return CompareRolls(atk, def)
}

// CompareRolls sorts both sides descending and compares them pairwise.
// Ties go to the defender; unpaired dice are ignored.
func CompareRolls(attackRolls, defendRolls []int) CombatResult {
	atk := sortedDesc(attackRolls)
	def := sortedDesc(defendRolls)
	res := CombatResult{AttackRolls: atk, DefendRolls: def}
	n := min(len(atk), len(def))
	for i := 0; i < n; i++ {
		if atk[i] > def[i] {
			res.DefenderLosses++
		} else {
			res.AttackerLosses++
		}
	}
	return res
}

func rollDice(rng Rand, n int) []int {
	rolls := make([]int, n)
	for i := range rolls {
		rolls[i] = rng.Intn(6) + 1
	}
	return rolls
}

func sortedDesc(rolls []int) []int {
	out := make([]int, len(rolls))
	copy(out, rolls)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// DefendDice is the number of dice a territory holding armies defends with.
func DefendDice(armies int) int {
	return min(MaxDefendDice, armies)
}

// MaxAttackDiceFor is the largest legal attack from a territory holding armies.
func MaxAttackDiceFor(armies int) int {
	return max(0, min(MaxAttackDice, armies-1))
}
