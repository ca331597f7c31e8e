package compliance

import (
	"context"
	"testing"

	"telecall-platform/internal/leads"
)

func grantedLead() leads.Lead {
	return leads.Lead{ID: "l1", Phone: "+15550001111", Consent: leads.ConsentGranted}
}

func TestCheckEligibility_DNDFirst(t *testing.T) {
	dnd := NewMemoryDND("+15550001111")
	g := NewGate(dnd, NewMemoryCounter())

	// Even with revoked consent the DND reason wins: first failing check only.
	lead := grantedLead()
	lead.Consent = leads.ConsentRevoked

	err := g.CheckEligibility(context.Background(), lead)
	v, ok := AsViolation(err)
	if !ok || v.Reason != ReasonDNDBlocked {
		t.Fatalf("expected dnd_blocked, got %v", err)
	}
	if v.RateLimited() {
		t.Fatalf("dnd block is not a rate limit")
	}
}

func TestCheckEligibility_Consent(t *testing.T) {
	g := NewGate(NewMemoryDND(), NewMemoryCounter())

	lead := grantedLead()
	lead.Consent = leads.ConsentRevoked
	if v, ok := AsViolation(g.CheckEligibility(context.Background(), lead)); !ok || v.Reason != ReasonConsentRevoked {
		t.Fatalf("expected consent_revoked, got %v", v)
	}

	lead.Consent = leads.ConsentUnknown
	if v, ok := AsViolation(g.CheckEligibility(context.Background(), lead)); !ok || v.Reason != ReasonConsentMissing {
		t.Fatalf("expected consent_missing, got %v", v)
	}
}

func TestCheckEligibility_DailyCap(t *testing.T) {
	counter := NewMemoryCounter()
	g := NewGate(NewMemoryDND(), counter)
	g.DailyCap = 10

	lead := grantedLead()
	for i := 0; i < 10; i++ {
		if err := g.CheckEligibility(context.Background(), lead); err != nil {
			t.Fatalf("attempt %d unexpectedly blocked: %v", i, err)
		}
		if err := counter.Record(context.Background(), lead.ID); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}

	err := g.CheckEligibility(context.Background(), lead)
	v, ok := AsViolation(err)
	if !ok || v.Reason != ReasonDailyCap {
		t.Fatalf("expected daily_cap_reached after 10 attempts, got %v", err)
	}
	if !v.RateLimited() {
		t.Fatalf("daily cap must map to the rate-limited class")
	}
}

func TestCheckEligibility_PassIsNil(t *testing.T) {
	g := NewGate(NewMemoryDND(), NewMemoryCounter())
	if err := g.CheckEligibility(context.Background(), grantedLead()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
