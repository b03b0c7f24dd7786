// Package redis holds the live side of a match: the latest committed
// snapshot and the lock that serialises writers across server instances.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

// Client implements repository.MatchCache and repository.MatchLocker.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to redisURL and fails fast if the server does not
// answer within dialTimeout.
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	c := newClient(redis.NewClient(opts))

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return c, nil
}

func newClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Every key for a match lives under match:<id>: so one SCAN finds them all.
func stateKey(matchID string) string { return "match:" + matchID + ":state" }
func lockKey(matchID string) string  { return "match:" + matchID + ":lock" }
