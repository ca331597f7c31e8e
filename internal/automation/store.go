package automation

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrRecordNotFound = errors.New("automation: record not found")

// Store persists trigger records for the external dispatcher. It doubles as
// the followup source for agent workload: pending records assigned to an
// agent count toward that agent's load.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Claim(ctx context.Context, id string, at time.Time) (Record, error)
	ListPending(ctx context.Context, leadID string) ([]Record, error)
	PendingForAgent(ctx context.Context, agentID string) (int, error)
}

type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]Record
	ids  []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

func (s *MemoryStore) Save(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[rec.ID]; !ok {
		s.ids = append(s.ids, rec.ID)
	}
	s.recs[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Claim(ctx context.Context, id string, at time.Time) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	if rec.Status != RecordPending {
		return Record{}, ErrRecordNotFound
	}
	rec.Status = RecordClaimed
	s.recs[id] = rec
	return rec, nil
}

func (s *MemoryStore) ListPending(ctx context.Context, leadID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, id := range s.ids {
		rec := s.recs[id]
		if rec.LeadID == leadID && rec.Status == RecordPending {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) PendingForAgent(ctx context.Context, agentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.recs {
		if rec.AgentID == agentID && rec.Status == RecordPending {
			n++
		}
	}
	return n, nil
}
