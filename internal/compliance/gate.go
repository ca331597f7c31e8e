package compliance

import (
	"context"
	"errors"
	"fmt"

	"telecall-platform/internal/leads"
)

// Gate runs the pre-dial eligibility checks, in order: DND registry,
// consent, per-lead daily cap. It is read-only and returns the first
// failing reason only; recording an attempt against the daily counter is
// the session service's job, after a session is actually created.

const DefaultDailyCap = 10

type Reason string

const (
	ReasonDNDBlocked     Reason = "dnd_blocked"
	ReasonConsentMissing Reason = "consent_missing"
	ReasonConsentRevoked Reason = "consent_revoked"
	ReasonDailyCap       Reason = "daily_cap_reached"
)

// Violation is the typed gate failure surfaced verbatim to callers.
type Violation struct {
	Reason Reason
}

func (v *Violation) Error() string {
	return fmt.Sprintf("compliance: %s", v.Reason)
}

// RateLimited distinguishes the 429-class violation from the 403 class.
func (v *Violation) RateLimited() bool {
	return v.Reason == ReasonDailyCap
}

// AsViolation unwraps a gate violation from an error chain.
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// DNDRegistry answers whether a phone number must not be dialed.
type DNDRegistry interface {
	Contains(ctx context.Context, phone string) (bool, error)
}

// AttemptCounter reports how many sessions were initiated for a lead today.
type AttemptCounter interface {
	Today(ctx context.Context, leadID string) (int, error)
}

type Gate struct {
	dnd      DNDRegistry
	attempts AttemptCounter

	DailyCap int
}

func NewGate(dnd DNDRegistry, attempts AttemptCounter) *Gate {
	return &Gate{dnd: dnd, attempts: attempts, DailyCap: DefaultDailyCap}
}

// CheckEligibility returns nil when the lead may be dialed, or a *Violation
// with the first failing reason. Infrastructure failures come back as plain
// errors, never as violations.
func (g *Gate) CheckEligibility(ctx context.Context, lead leads.Lead) error {
	if g.dnd == nil || g.attempts == nil {
		return errors.New("compliance: gate not configured")
	}

	blocked, err := g.dnd.Contains(ctx, lead.Phone)
	if err != nil {
		return err
	}
	if blocked {
		return &Violation{Reason: ReasonDNDBlocked}
	}

	switch lead.Consent {
	case leads.ConsentGranted:
	case leads.ConsentRevoked:
		return &Violation{Reason: ReasonConsentRevoked}
	default:
		return &Violation{Reason: ReasonConsentMissing}
	}

	limit := g.DailyCap
	if limit <= 0 {
		limit = DefaultDailyCap
	}
	n, err := g.attempts.Today(ctx, lead.ID)
	if err != nil {
		return err
	}
	if n >= limit {
		return &Violation{Reason: ReasonDailyCap}
	}
	return nil
}
