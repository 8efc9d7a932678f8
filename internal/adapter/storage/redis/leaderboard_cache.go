package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"game-reward-service/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// LeaderboardCache implements ports.LeaderboardCache with one Redis hash,
// one field per requested limit, so a single DEL drops every cached page.
// A generation counter is bumped on every invalidation; Set only writes a
// page read under the current generation.
type LeaderboardCache struct {
	client *goredis.Client
	key    string
	genKey string
	now    func() time.Time
}

// NewLeaderboardCache creates a new Redis-backed leaderboard cache.
func NewLeaderboardCache(client *goredis.Client) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		key:    "leaderboard:top",
		genKey: "leaderboard:gen",
		now:    time.Now,
	}
}

type cachedPage struct {
	ExpiresAt int64                 `json:"expires_at"` // Unix millis
	Records   []domain.PointsRecord `json:"records"`
}

// Get returns the cached page for limit. A missing or expired entry is a miss.
func (c *LeaderboardCache) Get(ctx context.Context, limit int) ([]domain.PointsRecord, bool, error) {
	raw, err := c.client.HGet(ctx, c.key, strconv.Itoa(limit)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis leaderboard get: %w", err)
	}

	var page cachedPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false, fmt.Errorf("redis leaderboard decode: %w", err)
	}
	// The hash TTL is refreshed by every Set, so each field carries its own deadline.
	if c.now().UnixMilli() >= page.ExpiresAt {
		return nil, false, nil
	}
	return page.Records, true, nil
}

// Generation returns the current invalidation generation. Callers read it
// before querying storage and hand it back to Set.
func (c *LeaderboardCache) Generation(ctx context.Context) (int64, error) {
	gen, err := readGeneration(ctx, c.client, c.genKey)
	if err != nil {
		return 0, fmt.Errorf("redis leaderboard generation: %w", err)
	}
	return gen, nil
}

// Set stores the page for limit for ttl, unless the cache was invalidated
// since gen was read. A skipped write is not an error.
func (c *LeaderboardCache) Set(ctx context.Context, limit int, gen int64, records []domain.PointsRecord, ttl time.Duration) error {
	raw, err := json.Marshal(cachedPage{
		ExpiresAt: c.now().Add(ttl).UnixMilli(),
		Records:   records,
	})
	if err != nil {
		return fmt.Errorf("redis leaderboard encode: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *goredis.Tx) error {
		cur, err := readGeneration(ctx, tx, c.genKey)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, c.key, strconv.Itoa(limit), raw)
			pipe.Expire(ctx, c.key, ttl)
			return nil
		})
		return err
	}, c.genKey)
	if errors.Is(err, errStaleGeneration) || errors.Is(err, goredis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis leaderboard set: %w", err)
	}
	return nil
}

// Invalidate bumps the generation and drops every cached page.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis leaderboard invalidate: %w", err)
	}
	return nil
}

var errStaleGeneration = errors.New("leaderboard generation changed")

func readGeneration(ctx context.Context, c goredis.Cmdable, key string) (int64, error) {
	gen, err := c.Get(ctx, key).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}
