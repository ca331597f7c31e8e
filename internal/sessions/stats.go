package sessions

import (
	"context"
	"time"

	"telecall-platform/internal/agents"
)

// StatsAdapter exposes session-derived counters to the agent directory
// without letting it read session rows directly.
//
// Conversions are completed sessions whose disposition is "converted".
// Pending followups come from the automation trigger store when one is wired.

type FollowupSource interface {
	PendingForAgent(ctx context.Context, agentID string) (int, error)
}

type StatsAdapter struct {
	repo      Repository
	followups FollowupSource

	Now func() time.Time
}

func NewStatsAdapter(repo Repository, followups FollowupSource) *StatsAdapter {
	return &StatsAdapter{repo: repo, followups: followups, Now: time.Now}
}

func (a *StatsAdapter) BusySince(ctx context.Context, agentID string, since time.Time) (bool, error) {
	list, err := a.repo.ListByAgentSince(ctx, agentID, since)
	if err != nil {
		return false, err
	}
	for _, s := range list {
		if !s.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (a *StatsAdapter) Stats(ctx context.Context, agentID string, window time.Duration) (agents.Stats, error) {
	now := a.Now()
	list, err := a.repo.ListByAgentSince(ctx, agentID, now.Add(-window))
	if err != nil {
		return agents.Stats{}, err
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var st agents.Stats
	var totalDur int
	for _, s := range list {
		if !s.Status.Terminal() {
			st.ActiveSessions++
			continue
		}
		if s.Status == StatusCompleted {
			st.CompletedInWindow++
			totalDur += s.DurationSeconds
			if s.Disposition == "converted" {
				st.Conversions++
			}
			if s.CompletedAt != nil && !s.CompletedAt.Before(midnight) {
				st.CompletedToday++
			}
		}
	}
	if st.CompletedInWindow > 0 {
		st.AvgDurationSec = float64(totalDur) / float64(st.CompletedInWindow)
	}

	if a.followups != nil {
		n, err := a.followups.PendingForAgent(ctx, agentID)
		if err != nil {
			return agents.Stats{}, err
		}
		st.PendingFollowups = n
	}
	return st, nil
}
