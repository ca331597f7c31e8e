package leads

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("leads: not found")

// Repository is the narrow persistence contract this subsystem needs.
// Lead CRUD beyond these methods belongs to the wider CRM, not here.

type Repository interface {
	Get(ctx context.Context, id string) (Lead, error)
	Put(ctx context.Context, l Lead) error

	// RecordAttempt bumps call_attempts and stamps last_interaction.
	// Called by the session service when a call reaches a terminal state.
	RecordAttempt(ctx context.Context, id string, at time.Time) error
}

// MemoryRepo backs tests and local runs.

type MemoryRepo struct {
	mu    sync.RWMutex
	leads map[string]Lead
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{leads: make(map[string]Lead)}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) Put(ctx context.Context, l Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[l.ID] = l
	return nil
}

func (r *MemoryRepo) RecordAttempt(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return ErrNotFound
	}
	l.CallAttempts++
	l.LastInteraction = at
	l.UpdatedAt = at
	r.leads[id] = l
	return nil
}
