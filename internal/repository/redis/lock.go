package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/api/internal/repository"
)

const lockRetryInterval = 25 * time.Millisecond

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// TryLock makes one attempt to take the match lock. It returns
// repository.ErrLockHeld if someone else holds it.
func (c *Client) TryLock(ctx context.Context, matchID string, ttl time.Duration) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	ok, err := c.rdb.SetNX(ctx, lockKey(matchID), token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire match lock: %w", err)
	}
	if !ok {
		return nil, repository.ErrLockHeld
	}
	return func() {
		// release must run even if the request context is already done
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, c.rdb, []string{lockKey(matchID)}, token).Err(); err != nil {
			log.Warn().Err(err).Str("matchId", matchID).Msg("Failed to release match lock")
		}
	}, nil
}

// Lock blocks until the match lock is acquired or ctx is done.
func (c *Client) Lock(ctx context.Context, matchID string, ttl time.Duration) (func(), error) {
	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()
	for {
		unlock, err := c.TryLock(ctx, matchID, ttl)
		if err == nil {
			return unlock, nil
		}
		if err != repository.ErrLockHeld {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for match lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
