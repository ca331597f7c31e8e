package webhooks

import "time"

// Log is the append-only record of every inbound provider callback, kept
// whatever the outcome. Rows are created once and only ever gain a terminal
// processing status plus error detail.

type Log struct {
	ID string `json:"id" db:"id"`

	Provider   string `json:"provider" db:"provider"`
	RawPayload string `json:"raw_payload" db:"raw_payload"`
	Signature  string `json:"signature,omitempty" db:"signature"`

	ExternalCallID string `json:"external_call_id,omitempty" db:"external_call_id"`
	EventType      string `json:"event_type,omitempty" db:"event_type"`

	Status      ProcessingStatus `json:"status" db:"status"`
	ErrorDetail string           `json:"error_detail,omitempty" db:"error_detail"`

	ReceivedAt  time.Time  `json:"received_at" db:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

type ProcessingStatus string

const (
	// StatusReceived is the initial state before processing resolves.
	StatusReceived ProcessingStatus = "received"
	// StatusProcessed means the event drove a legal session transition.
	StatusProcessed ProcessingStatus = "processed"
	// StatusIgnored means the event was a duplicate or illegal for the
	// session's current state; acknowledged and dropped.
	StatusIgnored ProcessingStatus = "ignored"
	// StatusFailed covers parse failures and unknown sessions.
	StatusFailed ProcessingStatus = "failed"
	// StatusRejected marks a signature mismatch; a security event.
	StatusRejected ProcessingStatus = "rejected"
)

// payload is the provider callback body. call_id and status are required;
// session_id echoes our locally generated id as a correlation aid and
// recording_url carries an optional recording reference.
type payload struct {
	CallID       string `json:"call_id"`
	CallStatus   string `json:"status"`
	Duration     int    `json:"duration,omitempty"`
	Disposition  string `json:"disposition,omitempty"`
	Sentiment    string `json:"sentiment,omitempty"`
	RecordingURL string `json:"recording_url,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}
