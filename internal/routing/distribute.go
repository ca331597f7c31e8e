package routing

import (
	"sort"

	"telecall-platform/internal/leads"
)

// Distribution modes for bulk assignment.
const (
	DistributeBalanced = "balanced"
	DistributePriority = "priority"
)

// DistributeCalls assigns a batch of leads across the candidate set.
//
// balanced: leads are dealt across the ordered candidate list so per-agent
// counts differ by at most 1.
//
// priority: leads are sorted by priority descending; high-priority leads go
// to the best performers first, the rest are dealt round-robin.
//
// Like SelectAgent this is pure: the returned assignments are proposals the
// caller still has to reserve and persist.
func (e *Engine) DistributeCalls(batch []leads.Lead, mode string, cands []Candidate) []Assignment {
	if len(batch) == 0 || len(cands) == 0 {
		return nil
	}

	switch mode {
	case DistributePriority:
		return e.distributePriority(batch, cands)
	default:
		return e.distributeBalanced(batch, cands)
	}
}

func (e *Engine) distributeBalanced(batch []leads.Lead, cands []Candidate) []Assignment {
	ordered := sortedByID(cands)
	out := make([]Assignment, 0, len(batch))
	for i, l := range batch {
		out = append(out, Assignment{LeadID: l.ID, AgentID: ordered[i%len(ordered)].AgentID})
	}
	return out
}

func (e *Engine) distributePriority(batch []leads.Lead, cands []Candidate) []Assignment {
	sortedLeads := make([]leads.Lead, len(batch))
	copy(sortedLeads, batch)
	sort.SliceStable(sortedLeads, func(i, j int) bool {
		return sortedLeads[i].Priority.Rank() > sortedLeads[j].Priority.Rank()
	})

	byPerf := make([]Candidate, len(cands))
	copy(byPerf, cands)
	sort.SliceStable(byPerf, func(i, j int) bool {
		return byPerf[i].Performance > byPerf[j].Performance
	})

	out := make([]Assignment, 0, len(sortedLeads))
	top := 0
	rr := 0
	for _, l := range sortedLeads {
		if l.Priority == leads.PriorityHigh {
			out = append(out, Assignment{LeadID: l.ID, AgentID: byPerf[top%len(byPerf)].AgentID})
			top++
			continue
		}
		out = append(out, Assignment{LeadID: l.ID, AgentID: byPerf[rr%len(byPerf)].AgentID})
		rr++
	}
	return out
}
