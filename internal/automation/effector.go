package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"telecall-platform/internal/leads"
)

// UnknownWorkflowError marks a manual trigger request naming a workflow
// outside the supported set.
type UnknownWorkflowError struct {
	Type TriggerType
}

func (e *UnknownWorkflowError) Error() string {
	return fmt.Sprintf("automation: unknown workflow type %q", e.Type)
}

// StoreEffector persists a pending trigger record for each decision. The
// external dispatcher claims records once DueAt passes; nothing in-process
// schedules them.
type StoreEffector struct {
	store Store
	clock func() time.Time
	newID func() string
}

func NewStoreEffector(store Store) *StoreEffector {
	return &StoreEffector{
		store: store,
		clock: time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

func (ef *StoreEffector) Apply(ctx context.Context, lead leads.Lead, trig Trigger) error {
	now := ef.clock()
	return ef.store.Save(ctx, Record{
		ID:        ef.newID(),
		LeadID:    lead.ID,
		AgentID:   lead.AssignedAgentID,
		Type:      trig.Type,
		Priority:  trig.Priority,
		Reason:    trig.Reason,
		Status:    RecordPending,
		DueAt:     now.Add(trig.Delay),
		CreatedAt: now,
	})
}
