package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freeeve/conquest/api/internal/model"
	"github.com/freeeve/conquest/api/internal/repository/memory"
)

func TestRunMatchDryRun(t *testing.T) {
	cfg := ArenaConfig{
		Name:         "test-dry-run",
		Difficulties: []string{DifficultyHard, DifficultyEasy, DifficultyMedium},
		MaxTurns:     300,
		Seed:         42,
		DryRun:       true,
	}

	result, err := RunMatch(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	require.Positive(t, result.Turns)
	require.Positive(t, result.Actions)

	total := 0
	for _, n := range result.Territories {
		total += n
	}
	require.Equal(t, 42, total)
	if result.Winner != "" {
		require.Equal(t, 42, result.Territories[result.Winner])
		require.Equal(t, result.Difficulties[result.Winner], result.WinnerDifficulty)
		require.Len(t, result.Eliminated, 2)
	}
	t.Logf("Result: winner=%q (%s) turns=%d actions=%d", result.Winner, result.WinnerDifficulty, result.Turns, result.Actions)
}

func TestRunMatchPersistsToStore(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	cfg := ArenaConfig{
		Name:         "test-persist",
		Difficulties: []string{DifficultyHard, DifficultyHard},
		MaxTurns:     120,
		Seed:         7,
	}

	result, err := RunMatch(ctx, cfg, store, store)
	require.NoError(t, err)
	require.NotEmpty(t, result.MatchID)

	actions, err := store.ListActions(ctx, result.MatchID)
	require.NoError(t, err)
	require.Len(t, actions, result.Actions+1)
	require.Equal(t, "start", actions[0].Type)

	st, err := store.LoadState(ctx, result.MatchID)
	require.NoError(t, err)
	require.Equal(t, result.Winner, st.WinnerID)

	match, err := store.FindMatch(ctx, result.MatchID)
	require.NoError(t, err)
	room, err := store.FindByID(ctx, match.RoomID)
	require.NoError(t, err)
	require.Equal(t, model.RoomFinished, room.Status)
}

func TestRunMatchRejectsBadSeatCount(t *testing.T) {
	_, err := RunMatch(context.Background(), ArenaConfig{Difficulties: []string{"easy"}, DryRun: true}, nil, nil)
	require.Error(t, err)
}

func TestParseSeatConfig(t *testing.T) {
	seats, err := ParseSeatConfig("hard, 2*easy")
	require.NoError(t, err)
	require.Equal(t, []string{"hard", "easy", "easy"}, seats)

	_, err = ParseSeatConfig("hard")
	require.Error(t, err)
	_, err = ParseSeatConfig("7*easy")
	require.Error(t, err)
	_, err = ParseSeatConfig("hard,wizard")
	require.Error(t, err)
	_, err = ParseSeatConfig("x*easy,hard")
	require.Error(t, err)
}
