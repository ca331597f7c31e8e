package routing

import "telecall-platform/internal/leads"

// Required-skill mapping for skill_based scoring.
//
// The tables are fixed lookups from lead source and priority; they are the
// explicit replacement for dynamic per-lead attribute probing. Sources not
// listed fall back to defaultSkills, so every lead always produces a
// non-empty requirement set.

var sourceSkills = map[string]map[string]float64{
	"website":  {"product_knowledge": 2, "closing": 1},
	"referral": {"relationship": 2, "closing": 2},
	"cold_list": {
		"prospecting":        3,
		"objection_handling": 2,
	},
	"campaign": {"product_knowledge": 1, "negotiation": 2},
}

var prioritySkills = map[leads.Priority]map[string]float64{
	leads.PriorityHigh:   {"closing": 2},
	leads.PriorityMedium: {"negotiation": 1},
}

var defaultSkills = map[string]float64{"communication": 1}

func requiredSkills(lead leads.Lead) map[string]float64 {
	out := make(map[string]float64)
	base, ok := sourceSkills[lead.Source]
	if !ok {
		base = defaultSkills
	}
	for k, w := range base {
		out[k] += w
	}
	for k, w := range prioritySkills[lead.Priority] {
		out[k] += w
	}
	return out
}

// skillScore is sum(weight * agent level) over the required skills.
// Missing agent skills contribute zero.
func skillScore(required map[string]float64, skills map[string]int) float64 {
	var score float64
	for name, weight := range required {
		score += weight * float64(skills[name])
	}
	return score
}
