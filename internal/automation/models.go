package automation

import "time"

// TriggerType names a follow-up workflow. The set is closed; manual trigger
// requests with anything else are rejected up front.
type TriggerType string

const (
	TypeWelcomeCall    TriggerType = "welcome_call"
	TypeFollowUpCall   TriggerType = "follow_up_call"
	TypeFollowUpSurvey TriggerType = "follow_up_survey"
	TypeReEngagement   TriggerType = "re_engagement"
)

// KnownType reports whether t names a supported workflow.
func KnownType(t TriggerType) bool {
	switch t {
	case TypeWelcomeCall, TypeFollowUpCall, TypeFollowUpSurvey, TypeReEngagement:
		return true
	}
	return false
}

type TriggerPriority string

const (
	PriorityHigh   TriggerPriority = "high"
	PriorityMedium TriggerPriority = "medium"
	PriorityLow    TriggerPriority = "low"
)

// Trigger is a rule decision: what workflow to run, how urgently, and after
// what delay. Reason records which fact fired the rule.
type Trigger struct {
	Type     TriggerType     `json:"type"`
	Priority TriggerPriority `json:"priority"`
	Delay    time.Duration   `json:"delay"`
	Reason   string          `json:"reason"`
}

// Record is a persisted trigger awaiting an external dispatcher. DueAt is
// evaluation time plus the trigger delay; Status moves pending -> claimed
// once the dispatcher picks it up.
type Record struct {
	ID       string          `json:"id" db:"id"`
	LeadID   string          `json:"lead_id" db:"lead_id"`
	AgentID  string          `json:"agent_id,omitempty" db:"agent_id"`
	Type     TriggerType     `json:"type" db:"type"`
	Priority TriggerPriority `json:"priority" db:"priority"`
	Reason   string          `json:"reason" db:"reason"`

	Status    RecordStatus `json:"status" db:"status"`
	DueAt     time.Time    `json:"due_at" db:"due_at"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

type RecordStatus string

const (
	RecordPending RecordStatus = "pending"
	RecordClaimed RecordStatus = "claimed"
)

// ExecutionResult reports one trigger's outcome. Err is nil on success; a
// failing trigger never aborts its siblings.
type ExecutionResult struct {
	Trigger Trigger `json:"trigger"`
	Err     error   `json:"-"`
}

// Failed reports whether the trigger's effector returned an error.
func (r ExecutionResult) Failed() bool { return r.Err != nil }
