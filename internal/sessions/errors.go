package sessions

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("sessions: not found")
	ErrNotActive = errors.New("sessions: session is not active")
)

// ConflictError is returned when a fresh non-terminal session already exists
// for the lead; the caller is expected to reuse the referenced session.
type ConflictError struct {
	Existing CallSession
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("sessions: active session %s exists for lead %s", e.Existing.ID, e.Existing.LeadID)
}

// AsConflict unwraps a conflict from an error chain.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// UnknownSessionError marks a webhook event whose external call id matches
// no session. The ingestion layer acknowledges these with 200 and discards.
type UnknownSessionError struct {
	ExternalCallID string
}

func (e *UnknownSessionError) Error() string {
	return fmt.Sprintf("sessions: no session for external call id %q", e.ExternalCallID)
}

// IllegalTransitionError marks an event that is not legal for the session's
// current state. It is an idempotent no-op by contract: logged as an ignored
// duplicate, never surfaced as a failure to the provider.
type IllegalTransitionError struct {
	SessionID string
	From      Status
	Event     Event
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("sessions: event %q illegal in state %q (session %s)", e.Event, e.From, e.SessionID)
}
