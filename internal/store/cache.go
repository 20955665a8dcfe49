package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsKeyPrefix = "coup:stats:"

// StatsCache is a read-through Redis cache for lifetime stats. A nil
// *StatsCache is valid and caches nothing.
type StatsCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewStatsCache(rdb redis.UniversalClient, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl}
}

func statsKey(playerID string) string { return statsKeyPrefix + playerID }

// Get reports ok=false on a miss.
func (c *StatsCache) Get(ctx context.Context, playerID string) (Stats, bool, error) {
	if c == nil {
		return Stats{}, false, nil
	}
	raw, err := c.rdb.Get(ctx, statsKey(playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Stats{}, false, nil
	}
	if err != nil {
		return Stats{}, false, fmt.Errorf("reading cached stats: %w", err)
	}
	var st Stats
	if err := json.Unmarshal(raw, &st); err != nil {
		return Stats{}, false, fmt.Errorf("decoding cached stats: %w", err)
	}
	return st, true, nil
}

func (c *StatsCache) Set(ctx context.Context, st Stats) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, statsKey(st.PlayerID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching stats: %w", err)
	}
	return nil
}

// Invalidate drops the cached stats of every listed player.
func (c *StatsCache) Invalidate(ctx context.Context, playerIDs ...string) error {
	if c == nil || len(playerIDs) == 0 {
		return nil
	}
	keys := make([]string, len(playerIDs))
	for i, id := range playerIDs {
		keys[i] = statsKey(id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidating stats: %w", err)
	}
	return nil
}
