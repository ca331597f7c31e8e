package compliance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Recorder is the write side of the daily attempt counter. The gate only
// reads; the session service records an attempt after a session is created,
// so concurrent initiates cannot sneak past the cap by racing the read.
type Recorder interface {
	Record(ctx context.Context, leadID string) error
}

// RedisCounter keeps one counter key per lead per local day, expiring just
// after midnight so there is nothing to sweep.

type RedisCounter struct {
	rdb   *redis.Client
	clock func() time.Time
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb, clock: time.Now}
}

func dailyKey(leadID string, t time.Time) string {
	return fmt.Sprintf("compliance:attempts:%s:%s", leadID, t.Format("2006-01-02"))
}

func (c *RedisCounter) Today(ctx context.Context, leadID string) (int, error) {
	if c.rdb == nil {
		return 0, errors.New("compliance: redis client is nil")
	}
	n, err := c.rdb.Get(ctx, dailyKey(leadID, c.clock())).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (c *RedisCounter) Record(ctx context.Context, leadID string) error {
	if c.rdb == nil {
		return errors.New("compliance: redis client is nil")
	}
	now := c.clock()
	key := dailyKey(leadID, now)

	if err := c.rdb.Incr(ctx, key).Err(); err != nil {
		return err
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	// Small slack past midnight so a clock skew between nodes cannot drop
	// a live counter early.
	return c.rdb.ExpireAt(ctx, key, midnight.Add(5*time.Minute)).Err()
}

// MemoryCounter backs tests and local runs.

type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int
	clock  func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int), clock: time.Now}
}

func (c *MemoryCounter) Today(ctx context.Context, leadID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[dailyKey(leadID, c.clock())], nil
}

func (c *MemoryCounter) Record(ctx context.Context, leadID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[dailyKey(leadID, c.clock())]++
	return nil
}
