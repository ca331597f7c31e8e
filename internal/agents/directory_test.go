package agents

import (
	"context"
	"testing"
	"time"
)

type stubStats struct {
	stats map[string]Stats
	busy  map[string]bool
}

func (s stubStats) Stats(ctx context.Context, agentID string, window time.Duration) (Stats, error) {
	return s.stats[agentID], nil
}

func (s stubStats) BusySince(ctx context.Context, agentID string, since time.Time) (bool, error) {
	return s.busy[agentID], nil
}

func TestListAvailable_ExcludesInactiveAndBusy(t *testing.T) {
	repo := NewMemoryRepo()
	_ = repo.Put(context.Background(), Agent{ID: "a1", Active: true})
	_ = repo.Put(context.Background(), Agent{ID: "a2", Active: false})
	_ = repo.Put(context.Background(), Agent{ID: "a3", Active: true})

	d := NewDirectory(repo, stubStats{busy: map[string]bool{"a3": true}})

	avail, err := d.ListAvailable(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(avail) != 1 || avail[0].ID != "a1" {
		t.Fatalf("expected only a1 available, got %v", avail)
	}
}

func TestWorkload_Formula(t *testing.T) {
	src := stubStats{stats: map[string]Stats{
		"a1": {ActiveSessions: 2, CompletedToday: 5, PendingFollowups: 1},
	}}
	d := NewDirectory(NewMemoryRepo(), src)

	got, err := d.Workload(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := 2 + 0.1*5 + 1.0
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPerformance_BlendsConversionAndDuration(t *testing.T) {
	src := stubStats{stats: map[string]Stats{
		"converter": {CompletedInWindow: 10, Conversions: 5, AvgDurationSec: 90},
		"marathon":  {CompletedInWindow: 10, Conversions: 0, AvgDurationSec: 900},
		"rookie":    {},
	}}
	d := NewDirectory(NewMemoryRepo(), src)

	got, _ := d.Performance(context.Background(), "converter", 30)
	want := 0.7*0.5 + 0.3*(90.0/180.0)
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// Duration component caps at 1.0.
	got, _ = d.Performance(context.Background(), "marathon", 30)
	if got != 0.3 {
		t.Fatalf("expected capped 0.3, got %v", got)
	}

	// No completed calls in window: neutral default.
	got, _ = d.Performance(context.Background(), "rookie", 30)
	if got != 0.5 {
		t.Fatalf("expected 0.5 default, got %v", got)
	}
}

func TestSnapshot_CarriesScoresAndTenure(t *testing.T) {
	repo := NewMemoryRepo()
	hired := time.Now().AddDate(0, -14, 0)
	_ = repo.Put(context.Background(), Agent{
		ID: "a1", Active: true, Region: "Mumbai",
		Skills: map[string]int{"closing": 4}, HiredAt: hired,
	})

	src := stubStats{stats: map[string]Stats{
		"a1": {ActiveSessions: 1, CompletedInWindow: 4, Conversions: 2, AvgDurationSec: 180},
	}}
	d := NewDirectory(repo, src)

	cands, err := d.Snapshot(context.Background(), 30)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	c := cands[0]
	if c.Region != "Mumbai" || c.Skills["closing"] != 4 {
		t.Fatalf("snapshot lost agent attributes: %+v", c)
	}
	if c.Workload != 1.0 {
		t.Fatalf("expected workload 1.0, got %v", c.Workload)
	}
	if c.Performance != 0.7*0.5+0.3*1.0 {
		t.Fatalf("unexpected performance %v", c.Performance)
	}
	if c.TenureMonths != 14 {
		t.Fatalf("expected 14 months tenure, got %d", c.TenureMonths)
	}
}

func TestMemoryReserver_SingleWinner(t *testing.T) {
	r := NewMemoryReserver()

	ok, err := r.TryReserve(context.Background(), "a1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first reservation to win, ok=%v err=%v", ok, err)
	}
	ok, _ = r.TryReserve(context.Background(), "a1", time.Minute)
	if ok {
		t.Fatalf("expected second reservation to lose")
	}

	if err := r.Release(context.Background(), "a1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ok, _ = r.TryReserve(context.Background(), "a1", time.Minute)
	if !ok {
		t.Fatalf("expected reservation after release")
	}
}
