package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"telecall-platform/internal/agents"
	"telecall-platform/internal/leads"
	"telecall-platform/internal/routing"
	"telecall-platform/internal/sessions"
)

// ErrNoAgents means no candidate qualified under the requested strategy, or
// every qualifying candidate lost its reservation race.
var ErrNoAgents = errors.New("dispatch: no agents available")

const (
	DefaultReservationTTL = 2 * time.Minute
	DefaultWindowDays     = 30
)

// Dispatcher glues selection to reservation. The routing engine is pure and
// never mutates workload; the dispatcher owns the critical section around
// each pick, so two concurrent routing decisions cannot land on the same
// idle agent.
type Dispatcher struct {
	directory *agents.Directory
	engine    *routing.Engine
	reserver  agents.Reserver
	sessions  *sessions.Service
	leadRepo  leads.Repository
	agentRepo agents.Repository
	log       *slog.Logger

	ReservationTTL time.Duration
	WindowDays     int

	clock func() time.Time
}

func NewDispatcher(directory *agents.Directory, engine *routing.Engine, reserver agents.Reserver, svc *sessions.Service, leadRepo leads.Repository, agentRepo agents.Repository, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		directory:      directory,
		engine:         engine,
		reserver:       reserver,
		sessions:       svc,
		leadRepo:       leadRepo,
		agentRepo:      agentRepo,
		log:            log,
		ReservationTTL: DefaultReservationTTL,
		WindowDays:     DefaultWindowDays,
		clock:          time.Now,
	}
}

// Result is one routed call: the chosen agent and the created session.
type Result struct {
	AgentID string               `json:"agent_id"`
	Session sessions.CallSession `json:"session"`
}

// Dispatch routes a lead under the named strategy and initiates the call.
// Candidates that lose the reservation race are dropped from the snapshot
// and selection reruns until someone is reserved or the pool is exhausted.
func (d *Dispatcher) Dispatch(ctx context.Context, leadID string, strategy routing.Strategy) (Result, error) {
	lead, err := d.leadRepo.Get(ctx, leadID)
	if err != nil {
		return Result{}, err
	}

	cands, err := d.directory.Snapshot(ctx, d.WindowDays)
	if err != nil {
		return Result{}, fmt.Errorf("dispatch: snapshot: %w", err)
	}

	agentID, err := d.reserve(ctx, lead, strategy, cands)
	if err != nil {
		return Result{}, err
	}

	if err := d.agentRepo.MarkAssigned(ctx, agentID, d.clock()); err != nil {
		d.log.Warn("mark assigned failed", "agent_id", agentID, "error", err)
	}

	session, err := d.sessions.Initiate(ctx, lead, agentID, sessions.CallTypeOutbound, sessions.Metadata{
		Strategy:      string(strategy),
		RoutingReason: "strategy " + string(strategy),
	})
	if err != nil {
		if rerr := d.reserver.Release(ctx, agentID); rerr != nil {
			d.log.Warn("reservation release failed", "agent_id", agentID, "error", rerr)
		}
		return Result{AgentID: agentID, Session: session}, err
	}
	return Result{AgentID: agentID, Session: session}, nil
}

// reserve runs select-then-reserve until a reservation sticks. Losing a race
// only removes that one candidate; the strategy re-picks over the rest.
func (d *Dispatcher) reserve(ctx context.Context, lead leads.Lead, strategy routing.Strategy, cands []routing.Candidate) (string, error) {
	for len(cands) > 0 {
		pick, ok := d.engine.SelectAgent(lead, strategy, cands)
		if !ok {
			return "", ErrNoAgents
		}

		reserved, err := d.reserver.TryReserve(ctx, pick.AgentID, d.ReservationTTL)
		if err != nil {
			return "", fmt.Errorf("dispatch: reserve %s: %w", pick.AgentID, err)
		}
		if reserved {
			return pick.AgentID, nil
		}

		cands = without(cands, pick.AgentID)
	}
	return "", ErrNoAgents
}

// BatchResult carries one lead's outcome from a distribution run.
type BatchResult struct {
	LeadID  string               `json:"lead_id"`
	AgentID string               `json:"agent_id,omitempty"`
	Session sessions.CallSession `json:"session,omitempty"`
	Err     error                `json:"-"`
}

// Distribute assigns a batch of leads across available agents and initiates
// each call. Every lead gets its own result entry; a failed initiate does
// not abort the batch.
func (d *Dispatcher) Distribute(ctx context.Context, leadIDs []string, mode string) ([]BatchResult, error) {
	batch := make([]leads.Lead, 0, len(leadIDs))
	results := make([]BatchResult, 0, len(leadIDs))
	for _, id := range leadIDs {
		lead, err := d.leadRepo.Get(ctx, id)
		if err != nil {
			results = append(results, BatchResult{LeadID: id, Err: err})
			continue
		}
		batch = append(batch, lead)
	}
	if len(batch) == 0 {
		return results, nil
	}

	cands, err := d.directory.Snapshot(ctx, d.WindowDays)
	if err != nil {
		return nil, fmt.Errorf("dispatch: snapshot: %w", err)
	}
	if len(cands) == 0 {
		return nil, ErrNoAgents
	}

	byID := make(map[string]leads.Lead, len(batch))
	for _, l := range batch {
		byID[l.ID] = l
	}

	for _, asg := range d.engine.DistributeCalls(batch, mode, cands) {
		lead := byID[asg.LeadID]
		res := BatchResult{LeadID: asg.LeadID, AgentID: asg.AgentID}

		if err := d.agentRepo.MarkAssigned(ctx, asg.AgentID, d.clock()); err != nil {
			d.log.Warn("mark assigned failed", "agent_id", asg.AgentID, "error", err)
		}
		session, err := d.sessions.Initiate(ctx, lead, asg.AgentID, sessions.CallTypeOutbound, sessions.Metadata{
			Strategy:      mode,
			RoutingReason: "batch distribution",
		})
		res.Session = session
		res.Err = err
		results = append(results, res)
	}
	return results, nil
}

func without(cands []routing.Candidate, agentID string) []routing.Candidate {
	out := make([]routing.Candidate, 0, len(cands)-1)
	for _, c := range cands {
		if c.AgentID != agentID {
			out = append(out, c)
		}
	}
	return out
}
