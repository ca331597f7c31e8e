package agents

import (
	"context"
	"errors"
	"time"

	"telecall-platform/internal/routing"
)

// Directory is the read accessor over agent availability, workload and
// trailing performance. It owns the scoring formulas; session data arrives
// through the StatsSource boundary so this package stays free of session
// internals.

const (
	// DefaultFreshnessWindow bounds how far back an open session still
	// marks an agent busy. Older open sessions are presumed abandoned.
	DefaultFreshnessWindow = time.Hour

	// idealCallSeconds anchors duration normalization in the performance
	// formula: calls averaging 180s score 1.0 on the duration component.
	idealCallSeconds = 180.0
)

// StatsSource supplies per-agent session-derived counters.
type StatsSource interface {
	// Stats aggregates activity for the window ending now. CompletedToday
	// counts since local midnight regardless of the window.
	Stats(ctx context.Context, agentID string, window time.Duration) (Stats, error)

	// BusySince reports whether the agent has a non-terminal session
	// created at or after the given instant.
	BusySince(ctx context.Context, agentID string, since time.Time) (bool, error)
}

type Directory struct {
	repo  Repository
	stats StatsSource

	FreshnessWindow time.Duration
	Now             func() time.Time
}

func NewDirectory(repo Repository, stats StatsSource) *Directory {
	return &Directory{
		repo:            repo,
		stats:           stats,
		FreshnessWindow: DefaultFreshnessWindow,
		Now:             time.Now,
	}
}

// ListAvailable returns active agents with no fresh open session.
func (d *Directory) ListAvailable(ctx context.Context) ([]Agent, error) {
	if d.repo == nil || d.stats == nil {
		return nil, errors.New("agents: directory not configured")
	}
	all, err := d.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	since := d.Now().Add(-d.FreshnessWindow)
	out := make([]Agent, 0, len(all))
	for _, a := range all {
		if !a.Active {
			continue
		}
		busy, err := d.stats.BusySince(ctx, a.ID, since)
		if err != nil {
			return nil, err
		}
		if busy {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Workload is activeSessions + 0.1*completedToday + pendingFollowups.
func (d *Directory) Workload(ctx context.Context, agentID string) (float64, error) {
	st, err := d.stats.Stats(ctx, agentID, 24*time.Hour)
	if err != nil {
		return 0, err
	}
	return workloadScore(st), nil
}

// Performance blends conversion rate with duration quality over the window.
// Agents with no completed calls in the window default to 0.5 so new hires
// are neither favored nor buried.
func (d *Directory) Performance(ctx context.Context, agentID string, windowDays int) (float64, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	st, err := d.stats.Stats(ctx, agentID, time.Duration(windowDays)*24*time.Hour)
	if err != nil {
		return 0, err
	}
	return performanceScore(st), nil
}

// Snapshot builds the routing candidate set from currently available agents.
func (d *Directory) Snapshot(ctx context.Context, windowDays int) ([]routing.Candidate, error) {
	avail, err := d.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if windowDays <= 0 {
		windowDays = 30
	}

	now := d.Now()
	out := make([]routing.Candidate, 0, len(avail))
	for _, a := range avail {
		st, err := d.stats.Stats(ctx, a.ID, time.Duration(windowDays)*24*time.Hour)
		if err != nil {
			return nil, err
		}
		out = append(out, routing.Candidate{
			AgentID:        a.ID,
			Region:         a.Region,
			Skills:         a.Skills,
			Workload:       workloadScore(st),
			Performance:    performanceScore(st),
			TenureMonths:   a.TenureMonths(now),
			LastAssignedAt: a.LastAssignedAt,
		})
	}
	return out, nil
}

func workloadScore(st Stats) float64 {
	return float64(st.ActiveSessions) + 0.1*float64(st.CompletedToday) + float64(st.PendingFollowups)
}

func performanceScore(st Stats) float64 {
	if st.CompletedInWindow == 0 {
		return 0.5
	}
	conversion := float64(st.Conversions) / float64(st.CompletedInWindow)
	durQuality := st.AvgDurationSec / idealCallSeconds
	if durQuality > 1.0 {
		durQuality = 1.0
	}
	return 0.7*conversion + 0.3*durQuality
}
