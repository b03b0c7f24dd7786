package service

import (
	"context"
	"testing"
	"time"

	"github.com/freeeve/conquest/api/pkg/risk"
)

func TestBotDriverPlaysWhenTurnPassesToBot(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	driver := NewBotDriver(e.actions, e.store, e.cache, 0, false)
	e.actions.SetBotDriver(driver)
	e.matches.SetBotDriver(driver)

	view := e.startMatch(t, "alice", "bot:hard")
	for _, a := range []risk.Action{risk.AdvancePhase{}, risk.AdvancePhase{}, risk.EndTurn{}} {
		if _, _, err := e.actions.Execute(ctx, view.MatchID, "alice", a); err != nil {
			t.Fatalf("Execute %s: %v", a.Type(), err)
		}
	}
	driver.Wait()

	got, err := e.matches.GetMatchState(ctx, view.MatchID)
	if err != nil {
		t.Fatalf("GetMatchState: %v", err)
	}
	if got.CurrentPlayer != "alice" || got.TurnNumber != 3 {
		t.Errorf("expected the bot to hand back to alice on turn 3, got %s on turn %d", got.CurrentPlayer, got.TurnNumber)
	}

	actions, _ := e.store.ListActions(ctx, view.MatchID)
	botActions := 0
	for _, a := range actions {
		if a.PlayerID == "bot-1" {
			botActions++
		}
	}
	if botActions < 3 {
		t.Errorf("expected the bot to reinforce, advance and end its turn, got %d actions", botActions)
	}
	if actions[len(actions)-1].Type != string(risk.ActionEndTurn) {
		t.Errorf("expected the log to end with the bot's endTurn, got %s", actions[len(actions)-1].Type)
	}
}

func TestBotDriverLeavesHumanTurnsAlone(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	view := e.startMatch(t, "alice", "bot:easy")

	driver := NewBotDriver(e.actions, e.store, e.cache, 0, false)
	if err := driver.RecoverActiveMatches(ctx); err != nil {
		t.Fatalf("RecoverActiveMatches: %v", err)
	}
	driver.checkStalled(ctx)
	driver.Wait()

	actions, _ := e.store.ListActions(ctx, view.MatchID)
	if len(actions) != 1 {
		t.Errorf("expected no bot actions on a human turn, got %d log entries", len(actions))
	}
}

func TestRecoverActiveMatchesResumesBotTurn(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	view := e.startMatch(t, "alice", "bot:medium")

	// no driver is attached, so the turn stalls on the bot
	if _, _, err := e.actions.Execute(ctx, view.MatchID, "alice", risk.EndTurn{}); err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	e.cache.ExpireMatchState(ctx, view.MatchID)

	driver := NewBotDriver(e.actions, e.store, e.cache, 0, false)
	if err := driver.RecoverActiveMatches(ctx); err != nil {
		t.Fatalf("RecoverActiveMatches: %v", err)
	}
	driver.Wait()

	got, _ := e.matches.GetMatchState(ctx, view.MatchID)
	if got.CurrentPlayer != "alice" || got.TurnNumber != 3 {
		t.Errorf("expected recovery to finish the bot turn, got %s on turn %d", got.CurrentPlayer, got.TurnNumber)
	}
}

func TestPollerResumesStalledBotTurn(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	view := e.startMatch(t, "alice", "bot:easy", "bot:hard")

	if _, _, err := e.actions.Execute(ctx, view.MatchID, "alice", risk.EndTurn{}); err != nil {
		t.Fatalf("EndTurn: %v", err)
	}

	driver := NewBotDriver(e.actions, e.store, e.cache, 0, false)
	driver.checkStalled(ctx)
	driver.Wait()

	got, _ := e.matches.GetMatchState(ctx, view.MatchID)
	if got.CurrentPlayer != "alice" || got.TurnNumber != 4 {
		t.Errorf("expected both bots to play, got %s on turn %d", got.CurrentPlayer, got.TurnNumber)
	}
}

func TestStartPollsUntilCancelled(t *testing.T) {
	e := newTestEnv(t)
	view := e.startMatch(t, "alice", "bot:easy")
	if _, _, err := e.actions.Execute(context.Background(), view.MatchID, "alice", risk.EndTurn{}); err != nil {
		t.Fatalf("EndTurn: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	driver := NewBotDriver(e.actions, e.store, e.cache, 10*time.Millisecond, false)
	driver.Start(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, _ := e.matches.GetMatchState(context.Background(), view.MatchID)
		if got.CurrentPlayer == "alice" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("poller never played the stalled bot turn")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	driver.Wait()
}
