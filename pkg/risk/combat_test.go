package risk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareRolls(t *testing.T) {
	tests := []struct {
		name           string
		atk, def       []int
		wantAtk, wantD int
	}{
		{"attacker sweeps", []int{6, 6, 6}, []int{1, 1}, 0, 2},
		{"tie favours defender", []int{3}, []int{3}, 1, 0},
		{"split", []int{6, 2, 1}, []int{5, 4}, 1, 1},
		{"unsorted input", []int{1, 2, 6}, []int{4, 5}, 1, 1},
		{"extra attacker dice ignored", []int{2, 6, 6}, []int{6}, 1, 0},
		{"defender two dice vs one", []int{5}, []int{4, 6}, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CompareRolls(tt.atk, tt.def)
			require.Equal(t, tt.wantAtk, res.AttackerLosses)
			require.Equal(t, tt.wantD, res.DefenderLosses)
			require.Equal(t, min(len(tt.atk), len(tt.def)), res.AttackerLosses+res.DefenderLosses)
		})
	}
}

func TestResolveCombatScripted(t *testing.T) {
	res := ResolveCombat(Dice(6, 6, 6, 1, 1), 3, 2)
	require.Equal(t, []int{6, 6, 6}, res.AttackRolls)
	require.Equal(t, []int{1, 1}, res.DefendRolls)
	require.Equal(t, 0, res.AttackerLosses)
	require.Equal(t, 2, res.DefenderLosses)

	res = ResolveCombat(Dice(3, 3), 1, 1)
	require.Equal(t, 1, res.AttackerLosses)
	require.Equal(t, 0, res.DefenderLosses)
}

func TestResolveCombatLossesBounded(t *testing.T) {
	rng := NewSeededRand(7)
	for i := 0; i < 500; i++ {
		a := 1 + i%3
		d := 1 + i%2
		res := ResolveCombat(rng, a, d)
		require.Len(t, res.AttackRolls, a)
		require.Len(t, res.DefendRolls, d)
		require.Equal(t, min(a, d), res.AttackerLosses+res.DefenderLosses)
		for _, r := range append(res.AttackRolls, res.DefendRolls...) {
			require.GreaterOrEqual(t, r, 1)
			require.LessOrEqual(t, r, 6)
		}
	}
}

func TestDiceLimits(t *testing.T) {
	require.Equal(t, 0, MaxAttackDiceFor(1))
	require.Equal(t, 1, MaxAttackDiceFor(2))
	require.Equal(t, 3, MaxAttackDiceFor(10))
	require.Equal(t, 1, DefendDice(1))
	require.Equal(t, 2, DefendDice(7))
}

func TestSeededRandReplays(t *testing.T) {
	a, b := NewSeededRand(42), NewSeededRand(42)
	for i := 0; i < 50; i++ {
		require.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}
