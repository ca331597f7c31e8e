package agents

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("agents: not found")

type Repository interface {
	Get(ctx context.Context, id string) (Agent, error)
	List(ctx context.Context) ([]Agent, error)
	Put(ctx context.Context, a Agent) error

	// MarkAssigned stamps last_assigned_at after a successful reservation.
	MarkAssigned(ctx context.Context, id string, at time.Time) error
}

type MemoryRepo struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{agents: make(map[string]Agent)}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return Agent{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out, nil
}

func (r *MemoryRepo) Put(ctx context.Context, a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = a
	return nil
}

func (r *MemoryRepo) MarkAssigned(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return ErrNotFound
	}
	a.LastAssignedAt = at
	r.agents[id] = a
	return nil
}
