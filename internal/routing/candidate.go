package routing

import "time"

// Candidate is an immutable snapshot of an agent at selection time.
//
// The engine never reads live agent state: the caller builds the snapshot
// (agents.Directory does the scoring) and must atomically reserve whichever
// candidate is returned before acting on the decision.

type Candidate struct {
	AgentID string `json:"agent_id"`
	Region  string `json:"region,omitempty"`

	// Skills maps skill name to level (1..5).
	Skills map[string]int `json:"skills,omitempty"`

	Workload    float64 `json:"workload"`
	Performance float64 `json:"performance"`

	TenureMonths int `json:"tenure_months"`

	// LastAssignedAt is zero for candidates never assigned; round_robin
	// starts from the candidate after the most recent assignment.
	LastAssignedAt time.Time `json:"last_assigned_at,omitempty"`
}

// Assignment pairs a lead with the agent chosen for it.
type Assignment struct {
	LeadID  string `json:"lead_id"`
	AgentID string `json:"agent_id"`
}
