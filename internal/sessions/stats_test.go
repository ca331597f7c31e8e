package sessions

import (
	"context"
	"testing"
	"time"
)

func seedSession(t *testing.T, repo *MemoryRepo, s CallSession) {
	t.Helper()
	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestStatsAdapter_AggregatesAgentActivity(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	today := now.Add(-2 * time.Hour)
	yesterday := now.Add(-30 * time.Hour)

	seedSession(t, repo, CallSession{ID: "s1", AgentID: "a1", Status: StatusRinging, CreatedAt: today})
	seedSession(t, repo, CallSession{
		ID: "s2", AgentID: "a1", Status: StatusCompleted, Disposition: "converted",
		DurationSeconds: 120, CreatedAt: today, CompletedAt: &today,
	})
	seedSession(t, repo, CallSession{
		ID: "s3", AgentID: "a1", Status: StatusCompleted,
		DurationSeconds: 240, CreatedAt: yesterday, CompletedAt: &yesterday,
	})
	seedSession(t, repo, CallSession{ID: "s4", AgentID: "a1", Status: StatusNoAnswer, CreatedAt: today})
	seedSession(t, repo, CallSession{ID: "other", AgentID: "a2", Status: StatusCompleted, CreatedAt: today})

	a := NewStatsAdapter(repo, nil)
	a.Now = func() time.Time { return now }

	st, err := a.Stats(context.Background(), "a1", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if st.ActiveSessions != 1 {
		t.Fatalf("expected 1 active, got %d", st.ActiveSessions)
	}
	if st.CompletedInWindow != 2 || st.CompletedToday != 1 {
		t.Fatalf("expected 2 completed in window, 1 today; got %d/%d", st.CompletedInWindow, st.CompletedToday)
	}
	if st.Conversions != 1 {
		t.Fatalf("expected 1 conversion, got %d", st.Conversions)
	}
	if st.AvgDurationSec != 180 {
		t.Fatalf("expected avg 180, got %v", st.AvgDurationSec)
	}
}

func TestStatsAdapter_BusySince(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Now()

	seedSession(t, repo, CallSession{ID: "s1", AgentID: "a1", Status: StatusAnswered, CreatedAt: now.Add(-10 * time.Minute)})
	seedSession(t, repo, CallSession{ID: "s2", AgentID: "a2", Status: StatusAnswered, CreatedAt: now.Add(-2 * time.Hour)})

	a := NewStatsAdapter(repo, nil)

	busy, err := a.BusySince(context.Background(), "a1", now.Add(-time.Hour))
	if err != nil || !busy {
		t.Fatalf("expected a1 busy, got %v err=%v", busy, err)
	}

	// a2's open session is older than the freshness window.
	busy, _ = a.BusySince(context.Background(), "a2", now.Add(-time.Hour))
	if busy {
		t.Fatalf("expected a2 not busy")
	}
}
