package agents

import (
	"context"
	"errors"
	"sync"
	"time"

	"telecall-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Reserver is the agent double-booking guard: selection and reservation must
// form one critical section per agent, so two concurrent routing decisions
// cannot both take the same idle agent. TryReserve is the atomic
// check-and-set; the TTL bounds leaked reservations on process crash.

type Reserver interface {
	TryReserve(ctx context.Context, agentID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, agentID string) error
}

// RedisReserver holds reservations as a concurrency cap of 1 per agent.

type RedisReserver struct {
	rdb *redis.Client
}

func NewRedisReserver(rdb *redis.Client) *RedisReserver {
	return &RedisReserver{rdb: rdb}
}

func reservationKey(agentID string) string {
	return "agents:reserved:" + agentID
}

func (r *RedisReserver) TryReserve(ctx context.Context, agentID string, ttl time.Duration) (bool, error) {
	if agentID == "" {
		return false, errors.New("agents: agent id required")
	}
	return utils.AcquireConcurrencyCap(ctx, r.rdb, reservationKey(agentID), 1, ttl)
}

func (r *RedisReserver) Release(ctx context.Context, agentID string) error {
	if agentID == "" {
		return errors.New("agents: agent id required")
	}
	return utils.ReleaseConcurrencyCap(ctx, r.rdb, reservationKey(agentID))
}

// MemoryReserver backs tests and local runs.

type MemoryReserver struct {
	mu       sync.Mutex
	reserved map[string]time.Time
	clock    func() time.Time
}

func NewMemoryReserver() *MemoryReserver {
	return &MemoryReserver{reserved: make(map[string]time.Time), clock: time.Now}
}

func (r *MemoryReserver) TryReserve(ctx context.Context, agentID string, ttl time.Duration) (bool, error) {
	if agentID == "" {
		return false, errors.New("agents: agent id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock()
	if until, ok := r.reserved[agentID]; ok && until.After(now) {
		return false, nil
	}
	r.reserved[agentID] = now.Add(ttl)
	return true, nil
}

func (r *MemoryReserver) Release(ctx context.Context, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, agentID)
	return nil
}
