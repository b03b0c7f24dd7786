package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/freeeve/conquest/api/internal/repository"
	"github.com/freeeve/conquest/api/internal/repository/memory"
	"github.com/freeeve/conquest/api/pkg/risk"
)

type recordedEvent struct {
	matchID   string
	eventType string
	data      any
}

type recordingBroadcaster struct {
	mu      sync.Mutex
	events  []recordedEvent
	private map[string][]recordedEvent // playerID -> events
}

func (b *recordingBroadcaster) NotifyPlayer(matchID, playerID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.private == nil {
		b.private = make(map[string][]recordedEvent)
	}
	b.private[playerID] = append(b.private[playerID], recordedEvent{matchID: matchID, eventType: eventType, data: data})
}

func (b *recordingBroadcaster) BroadcastMatchEvent(matchID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{matchID: matchID, eventType: eventType, data: data})
}

func (b *recordingBroadcaster) count(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

// failingStore refuses every transaction, as a store that lost its connection would.
type failingStore struct {
	*memory.Store
	err error
}

func (f *failingStore) InTx(context.Context, func(repository.MatchTx) error) error {
	return f.err
}

func (f *failingStore) LoadState(context.Context, string) (*risk.MatchState, error) {
	return nil, f.err
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string, time.Duration) (func(), error) {
	return nil, errors.New("dial tcp: connection refused")
}

type testEnv struct {
	store   *memory.Store
	cache   *memory.Cache
	bc      *recordingBroadcaster
	matches *MatchService
	actions *ActionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		store: memory.NewStore(),
		cache: memory.NewCache(),
		bc:    &recordingBroadcaster{},
	}
	engine := risk.NewEngine(risk.StandardMap(), risk.NewSeededRand(1))
	e.matches = NewMatchService(e.store, e.store, e.cache, e.bc, risk.NewSeededRand(2))
	e.actions = NewActionService(e.store, e.cache, memory.NewLocker(), engine, e.bc, time.Second)
	return e
}

// startMatch opens a room hosted by the first player, seats the others
// (ids starting with "bot:" are added as bots of that difficulty) and starts it.
func (e *testEnv) startMatch(t *testing.T, players ...string) *MatchView {
	t.Helper()
	ctx := context.Background()
	room, err := e.matches.CreateRoom(ctx, players[0], 0, "")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	for _, p := range players[1:] {
		if difficulty, ok := strings.CutPrefix(p, "bot:"); ok {
			_, err = e.matches.AddBot(ctx, room.ID, players[0], difficulty)
		} else {
			_, err = e.matches.JoinRoom(ctx, room.ID, p)
		}
		if err != nil {
			t.Fatalf("seat %s: %v", p, err)
		}
	}
	view, err := e.matches.StartMatch(ctx, room.ID, players[0])
	if err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	return view
}

func ownedBy(v *MatchView, player string) []string {
	var out []string
	for _, t := range v.Territories {
		if t.Owner == player {
			out = append(out, t.ID)
		}
	}
	return out
}
