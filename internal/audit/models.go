package audit

import "time"

// Entry is an immutable, append-only audit record written for every
// state-changing operation in the call subsystem.
//
// Invariants:
// - Entries are never updated or deleted.
// - Enough context is captured (target id, prior state, attempted event in
//   Metadata) to reconstruct a session timeline after the fact.
//
// Storage recommendation (Postgres): INSERT-only audit_entries table,
// optionally partitioned by time for retention.

type Entry struct {
	ID string `json:"id" db:"id"`

	// Action is the business operation, e.g. session_initiated,
	// session_transition, webhook_rejected.
	Action Action `json:"action" db:"action"`

	// Actor identifies who caused the change: an agent id, "system" for
	// provider-driven transitions, or "automation".
	Actor string `json:"actor,omitempty" db:"actor"`

	// TargetType/TargetID locate the object acted upon (session, lead...).
	TargetType string `json:"target_type" db:"target_type"`
	TargetID   string `json:"target_id" db:"target_id"`

	// IPAddress captures the originating client when the change came over
	// HTTP; provider callbacks record the webhook source address.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Metadata is optional JSON with full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Action string

const (
	ActionSessionInitiated  Action = "session_initiated"
	ActionSessionTransition Action = "session_transition"
	ActionSessionEnded      Action = "session_ended"
	ActionSessionSuperseded Action = "session_superseded"
	ActionWebhookRejected   Action = "webhook_rejected"
	ActionAutomationTrigger Action = "automation_trigger"
)

const (
	TargetSession = "call_session"
	TargetLead    = "lead"
	TargetWebhook = "webhook"
)
