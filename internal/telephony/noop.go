package telephony

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// NoopDialer acknowledges every call without touching a provider. It backs
// local runs and tests; the returned external id is unique per call so the
// webhook path behaves exactly as with a real provider.

type NoopDialer struct {
	mu     sync.Mutex
	placed []PlaceCallRequest

	// FailWith, when set, makes PlaceCall reject with this reason.
	FailWith string
}

func NewNoopDialer() *NoopDialer { return &NoopDialer{} }

func (d *NoopDialer) Name() string { return "noop" }

func (d *NoopDialer) HealthCheck(ctx context.Context) error { return nil }

func (d *NoopDialer) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailWith != "" {
		return PlaceCallResult{}, &ProviderError{Provider: "noop", Op: "place_call", Reason: d.FailWith}
	}
	d.placed = append(d.placed, req)
	id := "noop-" + uuid.NewString()
	return PlaceCallResult{ExternalCallID: id, BridgeReference: id}, nil
}

func (d *NoopDialer) Hangup(ctx context.Context, externalCallID string) error {
	if externalCallID == "" {
		return &ProviderError{Provider: "noop", Op: "hangup", Reason: "external call id required"}
	}
	return nil
}

// Placed returns the requests seen so far; test helper.
func (d *NoopDialer) Placed() []PlaceCallRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]PlaceCallRequest, len(d.placed))
	copy(out, d.placed)
	return out
}
