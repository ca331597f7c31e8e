package webhooks

import (
	"context"
	"sync"
	"time"
)

// LogRepository stores callback records. Append creates the row; Resolve is
// the only permitted mutation and only sets the terminal processing status.

type LogRepository interface {
	Append(ctx context.Context, l Log) error
	Resolve(ctx context.Context, id string, status ProcessingStatus, errorDetail string, at time.Time) error
	Get(ctx context.Context, id string) (Log, error)
}

type MemoryLogRepo struct {
	mu   sync.Mutex
	logs map[string]Log
	ids  []string
}

func NewMemoryLogRepo() *MemoryLogRepo {
	return &MemoryLogRepo{logs: make(map[string]Log)}
}

func (r *MemoryLogRepo) Append(ctx context.Context, l Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[l.ID] = l
	r.ids = append(r.ids, l.ID)
	return nil
}

func (r *MemoryLogRepo) Resolve(ctx context.Context, id string, status ProcessingStatus, errorDetail string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok {
		return ErrLogNotFound
	}
	l.Status = status
	l.ErrorDetail = errorDetail
	l.ProcessedAt = &at
	r.logs[id] = l
	return nil
}

func (r *MemoryLogRepo) Get(ctx context.Context, id string) (Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok {
		return Log{}, ErrLogNotFound
	}
	return l, nil
}

// All returns logs in arrival order; test helper.
func (r *MemoryLogRepo) All() []Log {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Log, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.logs[id])
	}
	return out
}
