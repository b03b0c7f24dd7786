package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Cache is an in-process repository.MatchCache.
type Cache struct {
	mu     sync.RWMutex
	states map[string]json.RawMessage
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{states: make(map[string]json.RawMessage)}
}

func (c *Cache) SetMatchState(_ context.Context, matchID string, state json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[matchID] = append(json.RawMessage(nil), state...)
	return nil
}

func (c *Cache) GetMatchState(_ context.Context, matchID string) (json.RawMessage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.states[matchID], nil
}

func (c *Cache) ExpireMatchState(_ context.Context, matchID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, matchID)
	return nil
}

// Locker is an in-process repository.MatchLocker with one slot per match.
type Locker struct {
	slots sync.Map // matchID -> chan struct{}
}

// NewLocker returns a Locker.
func NewLocker() *Locker {
	return &Locker{}
}

// Lock waits for the match slot or until ctx is done. ttl is ignored: a
// process-local holder cannot outlive the process.
func (l *Locker) Lock(ctx context.Context, matchID string, _ time.Duration) (func(), error) {
	v, _ := l.slots.LoadOrStore(matchID, make(chan struct{}, 1))
	slot := v.(chan struct{})
	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
