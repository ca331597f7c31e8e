package sessions

import "time"

// CallSession tracks one outbound call attempt end to end.
//
// Ownership: this package exclusively owns Status. The webhook processor
// requests transitions via the service; nothing else writes session rows.
//
// Invariants:
// - At most one non-terminal session per lead at any instant.
// - ExternalCallID is set once the provider acknowledges and never changes.

type CallSession struct {
	ID      string `json:"id" db:"id"`
	LeadID  string `json:"lead_id" db:"lead_id"`
	AgentID string `json:"agent_id" db:"agent_id"`

	CallType CallType `json:"call_type" db:"call_type"`
	Status   Status   `json:"status" db:"status"`

	// ExternalCallID is the provider's identifier, unique when present.
	ExternalCallID string `json:"external_call_id,omitempty" db:"external_call_id"`

	DurationSeconds int    `json:"duration" db:"duration"`
	Disposition     string `json:"disposition,omitempty" db:"disposition"`
	Sentiment       string `json:"sentiment,omitempty" db:"sentiment"`
	RecordingURL    string `json:"recording_url,omitempty" db:"recording_url"`

	InitiatedAt time.Time  `json:"initiated_at" db:"initiated_at"`
	AnsweredAt  *time.Time `json:"answered_at,omitempty" db:"answered_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	Metadata Metadata `json:"metadata" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Metadata carries routing-decision context and the manual-end flag.
type Metadata struct {
	Strategy        string `json:"strategy,omitempty"`
	RoutingReason   string `json:"routing_reason,omitempty"`
	BridgeReference string `json:"bridge_reference,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
	ManualEnd       bool   `json:"manual_end,omitempty"`
	AutomationType  string `json:"automation_type,omitempty"`
}

type CallType string

const (
	CallTypeOutbound CallType = "outbound"
	CallTypeFollowUp CallType = "follow_up"
)

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusQueued    Status = "queued"
	StatusRinging   Status = "ringing"
	StatusAnswered  Status = "answered"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusBusy      Status = "busy"
	StatusNoAnswer  Status = "no_answer"
)

// Terminal states are final: any further event is an ignored duplicate.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer:
		return true
	default:
		return false
	}
}

// Active is the pre-terminal window where end() is legal.
func (s Status) Active() bool {
	switch s {
	case StatusInitiated, StatusQueued, StatusRinging, StatusAnswered:
		return true
	default:
		return false
	}
}

// Dispositions recorded by the machine itself.
const (
	DispositionManualEnd         = "manual_end"
	DispositionStaleAbandoned    = "stale_abandoned"
	DispositionFailedAfterAnswer = "failed_after_answer"
	DispositionProviderRejected  = "provider_rejected"
)
