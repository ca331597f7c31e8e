package automation

import (
	"context"
	"time"

	"telecall-platform/internal/sessions"
)

// SessionHistory adapts the session repository to the rule engine's view.
type SessionHistory struct {
	repo sessions.Repository
}

func NewSessionHistory(repo sessions.Repository) *SessionHistory {
	return &SessionHistory{repo: repo}
}

func (h *SessionHistory) RecentByLead(ctx context.Context, leadID string, since time.Time) ([]sessions.CallSession, error) {
	return h.repo.ListByLeadSince(ctx, leadID, since)
}

// LastCompleted returns the most recent completed session, or nil when the
// lead has none.
func (h *SessionHistory) LastCompleted(ctx context.Context, leadID string) (*sessions.CallSession, error) {
	all, err := h.repo.ListByLeadSince(ctx, leadID, time.Time{})
	if err != nil {
		return nil, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Status == sessions.StatusCompleted {
			s := all[i]
			return &s, nil
		}
	}
	return nil, nil
}
