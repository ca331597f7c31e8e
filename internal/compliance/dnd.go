package compliance

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisDND checks numbers against a Redis set maintained by the compliance
// team's ingestion tooling (out of scope here).

const dndSetKey = "compliance:dnd"

type RedisDND struct {
	rdb *redis.Client
}

func NewRedisDND(rdb *redis.Client) *RedisDND {
	return &RedisDND{rdb: rdb}
}

func (d *RedisDND) Contains(ctx context.Context, phone string) (bool, error) {
	if d.rdb == nil {
		return false, errors.New("compliance: redis client is nil")
	}
	if phone == "" {
		return false, nil
	}
	return d.rdb.SIsMember(ctx, dndSetKey, phone).Result()
}

// MemoryDND backs tests and local runs.

type MemoryDND struct {
	mu      sync.RWMutex
	numbers map[string]bool
}

func NewMemoryDND(numbers ...string) *MemoryDND {
	m := &MemoryDND{numbers: make(map[string]bool, len(numbers))}
	for _, n := range numbers {
		m.numbers[n] = true
	}
	return m
}

func (d *MemoryDND) Add(phone string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.numbers[phone] = true
}

func (d *MemoryDND) Contains(ctx context.Context, phone string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.numbers[phone], nil
}
