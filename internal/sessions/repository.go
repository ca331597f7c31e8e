package sessions

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository is the persistence contract for session rows.
//
// WithLeadLock serializes every check-and-write against one lead's
// sessions: Initiate's check-and-create, End's terminal write and webhook
// transitions all run entirely inside it, so concurrent callers re-read
// instead of racing a read-then-write.

type Repository interface {
	WithLeadLock(ctx context.Context, leadID string, fn func(ctx context.Context) error) error

	Create(ctx context.Context, s CallSession) error
	Get(ctx context.Context, id string) (CallSession, error)
	GetByExternalID(ctx context.Context, externalID string) (CallSession, error)
	Update(ctx context.Context, s CallSession) error

	// ActiveForLead returns the lead's non-terminal session, nil if none.
	ActiveForLead(ctx context.Context, leadID string) (*CallSession, error)

	ListByLeadSince(ctx context.Context, leadID string, since time.Time) ([]CallSession, error)
	ListByAgentSince(ctx context.Context, agentID string, since time.Time) ([]CallSession, error)
}

// MemoryRepo backs tests and local runs. Per-lead mutexes mirror the
// advisory-lock discipline of the Postgres repository.

type MemoryRepo struct {
	mu        sync.RWMutex
	sessions  map[string]CallSession
	byExtID   map[string]string
	leadLocks map[string]*sync.Mutex
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		sessions:  make(map[string]CallSession),
		byExtID:   make(map[string]string),
		leadLocks: make(map[string]*sync.Mutex),
	}
}

func (r *MemoryRepo) leadLock(leadID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leadLocks[leadID]
	if !ok {
		l = &sync.Mutex{}
		r.leadLocks[leadID] = l
	}
	return l
}

func (r *MemoryRepo) WithLeadLock(ctx context.Context, leadID string, fn func(ctx context.Context) error) error {
	l := r.leadLock(leadID)
	l.Lock()
	defer l.Unlock()
	return fn(ctx)
}

func (r *MemoryRepo) Create(ctx context.Context, s CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	if s.ExternalCallID != "" {
		r.byExtID[s.ExternalCallID] = s.ID
	}
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return CallSession{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) GetByExternalID(ctx context.Context, externalID string) (CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byExtID[externalID]
	if !ok {
		return CallSession{}, ErrNotFound
	}
	return r.sessions[id], nil
}

func (r *MemoryRepo) Update(ctx context.Context, s CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	r.sessions[s.ID] = s
	if s.ExternalCallID != "" {
		r.byExtID[s.ExternalCallID] = s.ID
	}
	return nil
}

func (r *MemoryRepo) ActiveForLead(ctx context.Context, leadID string) (*CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.LeadID == leadID && !s.Status.Terminal() {
			out := s
			return &out, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepo) ListByLeadSince(ctx context.Context, leadID string, since time.Time) ([]CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []CallSession
	for _, s := range r.sessions {
		if s.LeadID == leadID && !s.CreatedAt.Before(since) {
			out = append(out, s)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (r *MemoryRepo) ListByAgentSince(ctx context.Context, agentID string, since time.Time) ([]CallSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []CallSession
	for _, s := range r.sessions {
		if s.AgentID == agentID && !s.CreatedAt.Before(since) {
			out = append(out, s)
		}
	}
	sortByCreated(out)
	return out, nil
}

func sortByCreated(list []CallSession) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
