package telephony

import (
	"context"
	"errors"
	"fmt"
)

// Dialer is the provider-agnostic boundary for outbound call control.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - This subsystem handles call state only, never media: PlaceCall asks the
//   provider to establish the bridge and returns its identifiers; everything
//   after that arrives as webhook events.

type Dialer interface {
	Name() string
	HealthCheck(ctx context.Context) error

	PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error)

	// Hangup tears down a live call. The terminal state still arrives via
	// webhook; callers must not assume the call ended synchronously.
	Hangup(ctx context.Context, externalCallID string) error
}

type PlaceCallRequest struct {
	// SessionID is the locally generated session id, echoed back by the
	// provider in callbacks as the correlation field.
	SessionID string `json:"session_id"`

	To   string `json:"to"`
	From string `json:"from"`

	// CallbackURL receives status callbacks for this call.
	CallbackURL string `json:"callback_url,omitempty"`
}

type PlaceCallResult struct {
	// ExternalCallID is the provider's unique identifier for this call.
	ExternalCallID string `json:"external_call_id"`

	// BridgeReference names the audio bridge when the provider exposes one.
	BridgeReference string `json:"bridge_reference,omitempty"`
}

// ProviderError wraps an external adapter failure with the reason preserved
// verbatim, so sessions marked failed keep the provider's own wording.
type ProviderError struct {
	Provider string
	Op       string
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("telephony: %s %s failed: %s", e.Provider, e.Op, e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AsProviderError unwraps a provider failure from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
