package routing

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"telecall-platform/internal/leads"
)

// Engine selects an agent for a lead under a named strategy.
//
// It is a pure decision function over the supplied candidate snapshot:
// no persistence, no provider calls, no workload mutation. The strategy
// dispatch table is closed — constructed once here and never mutated — so
// there is no process-wide registry to race on. The caller must atomically
// reserve the returned agent before creating a session.
//
// Unknown strategy names fall back to skill_based.

type Strategy string

const (
	StrategyRoundRobin       Strategy = "round_robin"
	StrategySkillBased       Strategy = "skill_based"
	StrategyWorkloadBased    Strategy = "workload_based"
	StrategyPerformanceBased Strategy = "performance_based"
	StrategyGeographic       Strategy = "geographic"
	StrategyTimeBased        Strategy = "time_based"
	StrategyPriorityBased    Strategy = "priority_based"
)

type selectFunc func(e *Engine, lead leads.Lead, cands []Candidate) (Candidate, bool)

type Engine struct {
	table map[Strategy]selectFunc

	RNG *rand.Rand
	Now func() time.Time
}

func NewEngine(rng *rand.Rand, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{RNG: rng, Now: now}
	e.table = map[Strategy]selectFunc{
		StrategyRoundRobin:       (*Engine).selectRoundRobin,
		StrategySkillBased:       (*Engine).selectSkillBased,
		StrategyWorkloadBased:    (*Engine).selectWorkloadBased,
		StrategyPerformanceBased: (*Engine).selectPerformanceBased,
		StrategyGeographic:       (*Engine).selectGeographic,
		StrategyTimeBased:        (*Engine).selectTimeBased,
		StrategyPriorityBased:    (*Engine).selectPriorityBased,
	}
	return e
}

// SelectAgent returns the chosen candidate, or ok=false when no candidate
// qualifies. An empty selection is a normal outcome, not an error.
func (e *Engine) SelectAgent(lead leads.Lead, strategy Strategy, cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	fn, ok := e.table[strategy]
	if !ok {
		fn = (*Engine).selectSkillBased
	}
	return fn(e, lead, cands)
}

// Known reports whether the strategy name is part of the dispatch table.
func (e *Engine) Known(strategy Strategy) bool {
	_, ok := e.table[strategy]
	return ok
}

func (e *Engine) selectRoundRobin(_ leads.Lead, cands []Candidate) (Candidate, bool) {
	ordered := sortedByID(cands)

	// Find the most recent assignment; start from the candidate after it.
	last := -1
	var lastAt time.Time
	for i, c := range ordered {
		if !c.LastAssignedAt.IsZero() && c.LastAssignedAt.After(lastAt) {
			lastAt = c.LastAssignedAt
			last = i
		}
	}
	return ordered[(last+1)%len(ordered)], true
}

func (e *Engine) selectSkillBased(lead leads.Lead, cands []Candidate) (Candidate, bool) {
	required := requiredSkills(lead)
	ordered := sortedByID(cands)

	best := -1
	var bestScore float64
	for i, c := range ordered {
		score := skillScore(required, c.Skills)
		switch {
		case best < 0 || score > bestScore:
			best, bestScore = i, score
		case score == bestScore && c.Workload < ordered[best].Workload:
			// Tie on score: lower workload wins.
			best = i
		}
	}
	if best < 0 {
		return Candidate{}, false
	}
	return ordered[best], true
}

func (e *Engine) selectWorkloadBased(_ leads.Lead, cands []Candidate) (Candidate, bool) {
	ordered := sortedByID(cands)
	best := 0
	for i, c := range ordered {
		if c.Workload < ordered[best].Workload {
			best = i
		}
	}
	return ordered[best], true
}

func (e *Engine) selectPerformanceBased(_ leads.Lead, cands []Candidate) (Candidate, bool) {
	ordered := sortedByID(cands)
	best := 0
	for i, c := range ordered {
		if c.Performance > ordered[best].Performance {
			best = i
		}
	}
	return ordered[best], true
}

func (e *Engine) selectGeographic(lead leads.Lead, cands []Candidate) (Candidate, bool) {
	matched := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if lead.City != "" && strings.EqualFold(c.Region, lead.City) {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		// No regional match: fall back to the full candidate set.
		matched = cands
	}
	return e.pickUniform(matched)
}

func (e *Engine) selectTimeBased(_ leads.Lead, cands []Candidate) (Candidate, bool) {
	if isBusinessHours(e.Now()) {
		tenured := make([]Candidate, 0, len(cands))
		for _, c := range cands {
			if c.TenureMonths > 6 {
				tenured = append(tenured, c)
			}
		}
		if len(tenured) > 0 {
			return e.pickUniform(tenured)
		}
	}
	return e.pickUniform(cands)
}

func (e *Engine) selectPriorityBased(lead leads.Lead, cands []Candidate) (Candidate, bool) {
	var floor float64
	switch lead.Priority {
	case leads.PriorityHigh:
		floor = 0.8
	case leads.PriorityMedium:
		floor = 0.6
	default:
		// Low priority carries no restriction.
		return e.pickUniform(cands)
	}

	eligible := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Performance > floor {
			eligible = append(eligible, c)
		}
	}
	return e.pickUniform(eligible)
}

func (e *Engine) pickUniform(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	if len(cands) == 1 {
		return cands[0], true
	}
	rng := e.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return cands[rng.Intn(len(cands))], true
}

func sortedByID(cands []Candidate) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// isBusinessHours reports whether t falls inside 09:00-17:00 local time.
func isBusinessHours(t time.Time) bool {
	h := t.Hour()
	return h >= 9 && h < 17
}
