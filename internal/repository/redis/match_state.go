package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshots of finished matches are kept for a day so late readers still
// hit the cache; live ones never expire.
const finishedStateTTL = 24 * time.Hour

// SetMatchState stores the latest committed snapshot of a match.
func (c *Client) SetMatchState(ctx context.Context, matchID string, state json.RawMessage) error {
	return c.rdb.Set(ctx, stateKey(matchID), []byte(state), 0).Err()
}

// GetMatchState returns the cached snapshot, or nil if none is cached.
func (c *Client) GetMatchState(ctx context.Context, matchID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get match state: %w", err)
	}
	return json.RawMessage(data), nil
}

// ExpireMatchState schedules removal of the snapshot of a finished match.
func (c *Client) ExpireMatchState(ctx context.Context, matchID string) error {
	return c.rdb.Expire(ctx, stateKey(matchID), finishedStateTTL).Err()
}
