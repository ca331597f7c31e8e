package dispatch

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"telecall-platform/internal/agents"
	"telecall-platform/internal/audit"
	"telecall-platform/internal/compliance"
	"telecall-platform/internal/events"
	"telecall-platform/internal/leads"
	"telecall-platform/internal/routing"
	"telecall-platform/internal/sessions"
	"telecall-platform/internal/telephony"
)

type zeroStats struct{}

func (zeroStats) Stats(ctx context.Context, agentID string, window time.Duration) (agents.Stats, error) {
	return agents.Stats{}, nil
}

func (zeroStats) BusySince(ctx context.Context, agentID string, since time.Time) (bool, error) {
	return false, nil
}

type fixture struct {
	dispatcher *Dispatcher
	leadRepo   *leads.MemoryRepo
	agentRepo  *agents.MemoryRepo
	reserver   *agents.MemoryReserver
	dialer     *telephony.NoopDialer
}

func newFixture(t *testing.T, agentIDs ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	agentRepo := agents.NewMemoryRepo()
	for i, id := range agentIDs {
		if err := agentRepo.Put(ctx, agents.Agent{
			ID:      id,
			Name:    "Agent " + id,
			Active:  true,
			Region:  "pune",
			Skills:  map[string]int{"communication": 3 + i},
			HiredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		}); err != nil {
			t.Fatalf("Put agent: %v", err)
		}
	}

	leadRepo := leads.NewMemoryRepo()
	directory := agents.NewDirectory(agentRepo, zeroStats{})
	engine := routing.NewEngine(rand.New(rand.NewSource(1)), time.Now)
	reserver := agents.NewMemoryReserver()
	dialer := &telephony.NoopDialer{}
	gate := compliance.NewGate(compliance.NewMemoryDND(), compliance.NewMemoryCounter())
	svc := sessions.NewService(sessions.NewMemoryRepo(), gate, compliance.NewMemoryCounter(),
		dialer, leadRepo, audit.NewService(audit.NewMemoryRepo()), events.NewBus(nil))

	return &fixture{
		dispatcher: NewDispatcher(directory, engine, reserver, svc, leadRepo, agentRepo, nil),
		leadRepo:   leadRepo,
		agentRepo:  agentRepo,
		reserver:   reserver,
		dialer:     dialer,
	}
}

func (f *fixture) addLead(t *testing.T, id string) leads.Lead {
	t.Helper()
	l := leads.Lead{
		ID:      id,
		Phone:   "+9198765" + id,
		Name:    "Lead " + id,
		Status:  leads.StatusNew,
		Consent: leads.ConsentGranted,
		City:    "pune",
	}
	if err := f.leadRepo.Put(context.Background(), l); err != nil {
		t.Fatalf("Put lead: %v", err)
	}
	return l
}

func TestDispatchRoutesAndInitiates(t *testing.T) {
	f := newFixture(t, "a1", "a2")
	f.addLead(t, "l1")

	res, err := f.dispatcher.Dispatch(context.Background(), "l1", routing.StrategySkillBased)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.AgentID != "a1" && res.AgentID != "a2" {
		t.Fatalf("agent = %q", res.AgentID)
	}
	if res.Session.Status != sessions.StatusInitiated {
		t.Fatalf("status = %s", res.Session.Status)
	}
	if !strings.HasPrefix(res.Session.ExternalCallID, "noop-") {
		t.Fatalf("external id = %q", res.Session.ExternalCallID)
	}
	if res.Session.Metadata.Strategy != string(routing.StrategySkillBased) {
		t.Fatalf("metadata = %+v", res.Session.Metadata)
	}

	a, err := f.agentRepo.Get(context.Background(), res.AgentID)
	if err != nil {
		t.Fatalf("Get agent: %v", err)
	}
	if a.LastAssignedAt.IsZero() {
		t.Fatal("LastAssignedAt not stamped")
	}
}

func TestDispatchSkipsReservedAgent(t *testing.T) {
	f := newFixture(t, "a1", "a2")
	f.addLead(t, "l1")

	// a2 has the higher skill level, so skill_based would pick it; take it
	// out of play first.
	ok, err := f.reserver.TryReserve(context.Background(), "a2", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryReserve: %v %v", ok, err)
	}

	res, err := f.dispatcher.Dispatch(context.Background(), "l1", routing.StrategySkillBased)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.AgentID != "a1" {
		t.Fatalf("agent = %q, want a1", res.AgentID)
	}
}

func TestDispatchNoAgents(t *testing.T) {
	f := newFixture(t, "a1")
	f.addLead(t, "l1")

	if ok, _ := f.reserver.TryReserve(context.Background(), "a1", time.Minute); !ok {
		t.Fatal("TryReserve failed")
	}

	_, err := f.dispatcher.Dispatch(context.Background(), "l1", routing.StrategyWorkloadBased)
	if !errors.Is(err, ErrNoAgents) {
		t.Fatalf("err = %v, want ErrNoAgents", err)
	}
}

func TestDispatchReleasesReservationOnBlockedInitiate(t *testing.T) {
	f := newFixture(t, "a1")
	l := f.addLead(t, "l1")
	l.Consent = leads.ConsentRevoked
	if err := f.leadRepo.Put(context.Background(), l); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, err := f.dispatcher.Dispatch(context.Background(), "l1", routing.StrategyRoundRobin)
	if _, ok := compliance.AsViolation(err); !ok {
		t.Fatalf("err = %v, want compliance violation", err)
	}

	// The failed dispatch must not leave a1 reserved.
	ok, err := f.reserver.TryReserve(context.Background(), "a1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("agent still reserved after failed dispatch: %v %v", ok, err)
	}
}

func TestDistributeBalanced(t *testing.T) {
	f := newFixture(t, "a1", "a2")
	ids := []string{"l1", "l2", "l3", "l4"}
	for _, id := range ids {
		f.addLead(t, id)
	}

	results, err := f.dispatcher.Distribute(context.Background(), ids, routing.DistributeBalanced)
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}

	counts := map[string]int{}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("lead %s: %v", r.LeadID, r.Err)
		}
		counts[r.AgentID]++
	}
	if counts["a1"] != 2 || counts["a2"] != 2 {
		t.Fatalf("counts = %v", counts)
	}
	if len(f.dialer.Placed()) != 4 {
		t.Fatalf("placed = %d", len(f.dialer.Placed()))
	}
}

func TestDistributeMissingLeadIsolated(t *testing.T) {
	f := newFixture(t, "a1")
	f.addLead(t, "l1")

	results, err := f.dispatcher.Distribute(context.Background(), []string{"ghost", "l1"}, routing.DistributeBalanced)
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if !errors.Is(results[0].Err, leads.ErrNotFound) {
		t.Fatalf("ghost err = %v", results[0].Err)
	}
	if results[1].Err != nil {
		t.Fatalf("l1 err = %v", results[1].Err)
	}
}
