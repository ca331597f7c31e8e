package routing

import (
	"math/rand"
	"testing"
	"time"

	"telecall-platform/internal/leads"
)

func fixedClock(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, 6, 2, hour, 30, 0, 0, time.UTC)
	}
}

func newTestEngine(hour int) *Engine {
	return NewEngine(rand.New(rand.NewSource(1)), fixedClock(hour))
}

func candidateIDs(cands []Candidate) map[string]bool {
	out := make(map[string]bool, len(cands))
	for _, c := range cands {
		out[c.AgentID] = true
	}
	return out
}

func TestSelectAgent_EmptyCandidates(t *testing.T) {
	e := newTestEngine(10)
	if _, ok := e.SelectAgent(leads.Lead{ID: "l1"}, StrategySkillBased, nil); ok {
		t.Fatalf("expected no selection from empty candidate set")
	}
}

func TestSelectAgent_UnknownStrategyFallsBackToSkillBased(t *testing.T) {
	e := newTestEngine(10)
	cands := []Candidate{
		{AgentID: "a1", Skills: map[string]int{"closing": 5, "relationship": 5}},
		{AgentID: "a2", Skills: map[string]int{"communication": 1}},
	}
	got, ok := e.SelectAgent(leads.Lead{ID: "l1", Source: "referral"}, Strategy("definitely_not_real"), cands)
	if !ok {
		t.Fatalf("expected selection")
	}
	if got.AgentID != "a1" {
		t.Fatalf("expected skill_based fallback to pick a1, got %s", got.AgentID)
	}
}

func TestRoundRobin_CyclesAfterMostRecentAssignment(t *testing.T) {
	e := newTestEngine(10)
	now := time.Now()
	cands := []Candidate{
		{AgentID: "a3"},
		{AgentID: "a1", LastAssignedAt: now},
		{AgentID: "a2"},
	}
	got, ok := e.SelectAgent(leads.Lead{}, StrategyRoundRobin, cands)
	if !ok || got.AgentID != "a2" {
		t.Fatalf("expected a2 (next after a1 in id order), got %v ok=%v", got.AgentID, ok)
	}

	// Most recent is the last in id order: wrap to the first.
	cands = []Candidate{
		{AgentID: "a1"},
		{AgentID: "a2"},
		{AgentID: "a3", LastAssignedAt: now},
	}
	got, _ = e.SelectAgent(leads.Lead{}, StrategyRoundRobin, cands)
	if got.AgentID != "a1" {
		t.Fatalf("expected wrap to a1, got %s", got.AgentID)
	}

	// Nobody assigned yet: first in id order.
	cands = []Candidate{{AgentID: "b"}, {AgentID: "a"}}
	got, _ = e.SelectAgent(leads.Lead{}, StrategyRoundRobin, cands)
	if got.AgentID != "a" {
		t.Fatalf("expected a, got %s", got.AgentID)
	}
}

func TestSkillBased_HighestScoreWinsTieOnWorkload(t *testing.T) {
	e := newTestEngine(10)
	lead := leads.Lead{ID: "l1", Source: "cold_list", Priority: leads.PriorityLow}

	cands := []Candidate{
		{AgentID: "a1", Skills: map[string]int{"prospecting": 2}, Workload: 3},
		{AgentID: "a2", Skills: map[string]int{"prospecting": 4}, Workload: 5},
	}
	got, _ := e.SelectAgent(lead, StrategySkillBased, cands)
	if got.AgentID != "a2" {
		t.Fatalf("expected a2 on score, got %s", got.AgentID)
	}

	// Equal scores: lower workload breaks the tie.
	cands = []Candidate{
		{AgentID: "a1", Skills: map[string]int{"prospecting": 2}, Workload: 3},
		{AgentID: "a2", Skills: map[string]int{"prospecting": 2}, Workload: 1},
	}
	got, _ = e.SelectAgent(lead, StrategySkillBased, cands)
	if got.AgentID != "a2" {
		t.Fatalf("expected a2 on workload tiebreak, got %s", got.AgentID)
	}
}

func TestWorkloadBased_PicksMinimum(t *testing.T) {
	e := newTestEngine(10)
	cands := []Candidate{
		{AgentID: "a1", Workload: 2.5},
		{AgentID: "a2", Workload: 0.3},
		{AgentID: "a3", Workload: 1.0},
	}
	got, _ := e.SelectAgent(leads.Lead{}, StrategyWorkloadBased, cands)
	if got.AgentID != "a2" {
		t.Fatalf("expected a2, got %s", got.AgentID)
	}
}

func TestPerformanceBased_PicksMaximum(t *testing.T) {
	e := newTestEngine(10)
	cands := []Candidate{
		{AgentID: "a1", Performance: 0.4},
		{AgentID: "a2", Performance: 0.9},
	}
	got, _ := e.SelectAgent(leads.Lead{}, StrategyPerformanceBased, cands)
	if got.AgentID != "a2" {
		t.Fatalf("expected a2, got %s", got.AgentID)
	}
}

func TestGeographic_PrefersRegionThenFallsBack(t *testing.T) {
	e := newTestEngine(10)
	cands := []Candidate{
		{AgentID: "a1", Region: "Mumbai"},
		{AgentID: "a2", Region: "Delhi"},
	}

	got, ok := e.SelectAgent(leads.Lead{City: "mumbai"}, StrategyGeographic, cands)
	if !ok || got.AgentID != "a1" {
		t.Fatalf("expected case-insensitive region match a1, got %v", got.AgentID)
	}

	// No match: any candidate from the full set is acceptable.
	got, ok = e.SelectAgent(leads.Lead{City: "Pune"}, StrategyGeographic, cands)
	if !ok {
		t.Fatalf("expected fallback selection")
	}
	if !candidateIDs(cands)[got.AgentID] {
		t.Fatalf("selected agent %s not in candidate set", got.AgentID)
	}
}

func TestTimeBased_BusinessHoursPreferTenure(t *testing.T) {
	cands := []Candidate{
		{AgentID: "a1", TenureMonths: 2},
		{AgentID: "a2", TenureMonths: 18},
	}

	e := newTestEngine(10) // inside business hours
	got, _ := e.SelectAgent(leads.Lead{}, StrategyTimeBased, cands)
	if got.AgentID != "a2" {
		t.Fatalf("expected tenured a2 during business hours, got %s", got.AgentID)
	}

	e = newTestEngine(22) // outside business hours
	got, ok := e.SelectAgent(leads.Lead{}, StrategyTimeBased, cands)
	if !ok || !candidateIDs(cands)[got.AgentID] {
		t.Fatalf("expected any candidate off-hours, got %v ok=%v", got.AgentID, ok)
	}
}

func TestPriorityBased_RestrictsByPerformance(t *testing.T) {
	e := newTestEngine(10)
	cands := []Candidate{
		{AgentID: "a", Performance: 0.9},
		{AgentID: "b", Performance: 0.5},
	}

	got, ok := e.SelectAgent(leads.Lead{Priority: leads.PriorityHigh}, StrategyPriorityBased, cands)
	if !ok || got.AgentID != "a" {
		t.Fatalf("high priority must pick the >0.8 performer, got %v", got.AgentID)
	}

	// Nobody clears the bar: none, not an error.
	low := []Candidate{{AgentID: "b", Performance: 0.5}}
	if _, ok := e.SelectAgent(leads.Lead{Priority: leads.PriorityHigh}, StrategyPriorityBased, low); ok {
		t.Fatalf("expected no selection when no candidate qualifies")
	}

	// Low priority has no restriction.
	got, ok = e.SelectAgent(leads.Lead{Priority: leads.PriorityLow}, StrategyPriorityBased, low)
	if !ok || got.AgentID != "b" {
		t.Fatalf("expected b for low priority, got %v", got.AgentID)
	}
}

func TestSelectAgent_OnlyReturnsSuppliedCandidates(t *testing.T) {
	e := newTestEngine(10)
	cands := []Candidate{
		{AgentID: "a1", Region: "Delhi", Performance: 0.7, Skills: map[string]int{"closing": 3}},
		{AgentID: "a2", Region: "Mumbai", Performance: 0.9, Skills: map[string]int{"closing": 1}},
	}
	strategies := []Strategy{
		StrategyRoundRobin, StrategySkillBased, StrategyWorkloadBased,
		StrategyPerformanceBased, StrategyGeographic, StrategyTimeBased,
		StrategyPriorityBased,
	}
	ids := candidateIDs(cands)
	for _, s := range strategies {
		got, ok := e.SelectAgent(leads.Lead{Priority: leads.PriorityLow, City: "Mumbai"}, s, cands)
		if ok && !ids[got.AgentID] {
			t.Fatalf("strategy %s returned agent outside candidate set: %s", s, got.AgentID)
		}
	}
}

func TestDistributeBalanced_CountsDifferByAtMostOne(t *testing.T) {
	e := newTestEngine(10)
	var batch []leads.Lead
	for i := 0; i < 10; i++ {
		batch = append(batch, leads.Lead{ID: string(rune('A' + i))})
	}
	cands := []Candidate{{AgentID: "a1"}, {AgentID: "a2"}, {AgentID: "a3"}}

	got := e.DistributeCalls(batch, DistributeBalanced, cands)
	if len(got) != 10 {
		t.Fatalf("expected 10 assignments, got %d", len(got))
	}

	counts := map[string]int{}
	for _, a := range got {
		counts[a.AgentID]++
	}
	min, max := 10, 0
	for _, c := range cands {
		n := counts[c.AgentID]
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	if max-min > 1 {
		t.Fatalf("expected max-min <= 1, got counts %v", counts)
	}
}

func TestDistributePriority_HighLeadsGoToTopPerformers(t *testing.T) {
	e := newTestEngine(10)
	batch := []leads.Lead{
		{ID: "l-low", Priority: leads.PriorityLow},
		{ID: "l-high", Priority: leads.PriorityHigh},
		{ID: "l-med", Priority: leads.PriorityMedium},
	}
	cands := []Candidate{
		{AgentID: "weak", Performance: 0.2},
		{AgentID: "star", Performance: 0.95},
	}

	got := e.DistributeCalls(batch, DistributePriority, cands)
	if len(got) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(got))
	}
	if got[0].LeadID != "l-high" || got[0].AgentID != "star" {
		t.Fatalf("expected high-priority lead on top performer, got %+v", got[0])
	}
}

func TestRequiredSkills_UnknownSourceUsesDefault(t *testing.T) {
	req := requiredSkills(leads.Lead{Source: "carrier_pigeon", Priority: leads.PriorityLow})
	if req["communication"] != 1 {
		t.Fatalf("expected default communication requirement, got %v", req)
	}

	req = requiredSkills(leads.Lead{Source: "referral", Priority: leads.PriorityHigh})
	if req["closing"] != 4 { // 2 from source + 2 from high priority
		t.Fatalf("expected stacked closing weight 4, got %v", req["closing"])
	}
}
