package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresActionAndTarget(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Entry{Action: ActionSessionTransition}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Entry{TargetType: TargetSession, TargetID: "s1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEntries(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	ctx := WithClientIP(context.Background(), "1.2.3.4")
	if err := svc.RecordTransition(ctx, "s1", "agent-7", `{"from":"ringing","event":"answered"}`); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Entries()
	if len(evs) != 1 {
		t.Fatalf("expected 1 entry")
	}
	if evs[0].IPAddress != "1.2.3.4" {
		t.Fatalf("expected ip captured from context")
	}
	if evs[0].Action != ActionSessionTransition || evs[0].TargetID != "s1" {
		t.Fatalf("unexpected entry %+v", evs[0])
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned")
	}
}

func TestService_RecordSecurityEvent(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.RecordSecurityEvent(context.Background(), "wh-1", `{"reason":"bad_signature"}`); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	evs := repo.Entries()
	if len(evs) != 1 || evs[0].Action != ActionWebhookRejected {
		t.Fatalf("expected webhook_rejected entry, got %+v", evs)
	}
}
