package leads

import "time"

// Lead is the telecalling view of a CRM lead.
//
// Leads are created by ingestion (out of scope here); this subsystem mutates
// only call_attempts, last_interaction, next_followup and assigned_agent as
// session outcomes land.
//
// Optional attributes referenced by routing score formulas have explicit
// defaults: an empty Source scores against the default skill bucket, an empty
// City disables the geographic preference, and ConsentUnknown blocks dialing
// the same way a missing consent record would.

type Lead struct {
	ID    string `json:"id" db:"id"`
	Phone string `json:"phone" db:"phone"`
	Name  string `json:"name" db:"name"`

	Priority Priority `json:"priority" db:"priority"`
	Status   Status   `json:"status" db:"status"`

	City   string `json:"city,omitempty" db:"city"`
	Source string `json:"source,omitempty" db:"source"`

	Consent Consent `json:"consent_status" db:"consent_status"`

	CallAttempts    int        `json:"call_attempts" db:"call_attempts"`
	LastInteraction time.Time  `json:"last_interaction,omitempty" db:"last_interaction"`
	NextFollowup    *time.Time `json:"next_followup,omitempty" db:"next_followup"`

	// AssignedAgentID is a weak reference; routing may overwrite it.
	AssignedAgentID string `json:"assigned_agent,omitempty" db:"assigned_agent"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting (higher is more urgent).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
	StatusLost      Status = "lost"
)

type Consent string

const (
	ConsentGranted Consent = "granted"
	ConsentRevoked Consent = "revoked"
	ConsentUnknown Consent = "unknown"
)
