package webhooks

import (
	"context"
	"strings"
	"testing"
	"time"

	"telecall-platform/internal/audit"
	"telecall-platform/internal/sessions"
)

type stubMachine struct {
	err      error
	applied  []string
	statuses []sessions.Event
	payloads []sessions.EventPayload
}

func (m *stubMachine) ApplyWebhookEvent(ctx context.Context, externalCallID string, ev sessions.Event, payload sessions.EventPayload) (sessions.CallSession, error) {
	m.applied = append(m.applied, externalCallID)
	m.statuses = append(m.statuses, ev)
	m.payloads = append(m.payloads, payload)
	if m.err != nil {
		return sessions.CallSession{}, m.err
	}
	return sessions.CallSession{ExternalCallID: externalCallID}, nil
}

func newTestProcessor(machine SessionMachine) (*Processor, *MemoryLogRepo, *audit.MemoryRepo) {
	logs := NewMemoryLogRepo()
	auditRepo := audit.NewMemoryRepo()
	p := NewProcessor("topsecret", "twilio", logs, machine, audit.NewService(auditRepo), nil)
	return p, logs, auditRepo
}

func sign(body string) string {
	return ComputeSignature("topsecret", []byte(body))
}

func TestReceiveProcessesLegalEvent(t *testing.T) {
	machine := &stubMachine{}
	p, logs, _ := newTestProcessor(machine)

	body := `{"call_id":"CA-77","status":"answered"}`
	res, err := p.Receive(context.Background(), []byte(body), sign(body))
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if res.Status != StatusProcessed {
		t.Fatalf("status = %s, want processed", res.Status)
	}
	if len(machine.applied) != 1 || machine.applied[0] != "CA-77" {
		t.Fatalf("applied = %v", machine.applied)
	}

	all := logs.All()
	if len(all) != 1 {
		t.Fatalf("logs = %d, want 1", len(all))
	}
	l := all[0]
	if l.Status != StatusProcessed || l.ExternalCallID != "CA-77" || l.EventType != "answered" {
		t.Fatalf("log = %+v", l)
	}
	if l.ProcessedAt == nil {
		t.Fatal("ProcessedAt not set")
	}
}

func TestReceivePassesTerminalPayload(t *testing.T) {
	machine := &stubMachine{}
	p, _, _ := newTestProcessor(machine)

	body := `{"call_id":"CA-77","status":"completed","duration":240,"disposition":"converted","sentiment":"positive","recording_url":"https://rec/1"}`
	if _, err := p.Receive(context.Background(), []byte(body), sign(body)); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	pl := machine.payloads[0]
	if pl.DurationSeconds != 240 || pl.Disposition != "converted" || pl.Sentiment != "positive" || pl.RecordingURL != "https://rec/1" {
		t.Fatalf("payload = %+v", pl)
	}
}

func TestReceiveRejectsBadSignature(t *testing.T) {
	machine := &stubMachine{}
	p, logs, auditRepo := newTestProcessor(machine)

	body := `{"call_id":"CA-77","status":"answered"}`
	res, err := p.Receive(context.Background(), []byte(body), "deadbeef")
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !res.Rejected {
		t.Fatal("expected rejection")
	}
	if len(machine.applied) != 0 {
		t.Fatal("rejected payload reached the session machine")
	}

	all := logs.All()
	if len(all) != 1 || all[0].Status != StatusRejected {
		t.Fatalf("logs = %+v", all)
	}
	if all[0].ExternalCallID != "" {
		t.Fatal("rejected payload must not be parsed")
	}

	entries := auditRepo.Entries()
	if len(entries) != 1 || entries[0].Action != audit.ActionWebhookRejected {
		t.Fatalf("audit entries = %+v", entries)
	}
}

func TestReceiveRejectsMissingSignature(t *testing.T) {
	p, _, _ := newTestProcessor(&stubMachine{})
	body := `{"call_id":"CA-77","status":"answered"}`
	res, err := p.Receive(context.Background(), []byte(body), "")
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !res.Rejected {
		t.Fatal("empty signature must be rejected")
	}
}

func TestReceiveFailsMalformedPayload(t *testing.T) {
	machine := &stubMachine{}
	p, logs, _ := newTestProcessor(machine)

	for _, body := range []string{`{not json`, `{"status":"answered"}`, `{"call_id":"CA-77"}`} {
		res, err := p.Receive(context.Background(), []byte(body), sign(body))
		if err != nil {
			t.Fatalf("Receive(%s): %v", body, err)
		}
		if !res.Malformed {
			t.Fatalf("Receive(%s): expected malformed result", body)
		}
	}
	if len(machine.applied) != 0 {
		t.Fatal("malformed payload reached the session machine")
	}
	for _, l := range logs.All() {
		if l.Status != StatusFailed {
			t.Fatalf("log = %+v, want failed", l)
		}
	}
}

func TestReceiveAcksUnknownSession(t *testing.T) {
	machine := &stubMachine{err: &sessions.UnknownSessionError{ExternalCallID: "ABC123"}}
	p, logs, _ := newTestProcessor(machine)

	body := `{"call_id":"ABC123","status":"answered"}`
	res, err := p.Receive(context.Background(), []byte(body), sign(body))
	if err != nil {
		t.Fatalf("unknown session must be acknowledged, got %v", err)
	}
	if res.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	l := logs.All()[0]
	if l.Status != StatusFailed || l.ErrorDetail != "session_not_found" {
		t.Fatalf("log = %+v", l)
	}
}

func TestReceiveIgnoresIllegalTransition(t *testing.T) {
	machine := &stubMachine{err: &sessions.IllegalTransitionError{
		SessionID: "s1", From: sessions.StatusCompleted, Event: sessions.EventAnswered,
	}}
	p, logs, _ := newTestProcessor(machine)

	body := `{"call_id":"CA-77","status":"answered"}`
	res, err := p.Receive(context.Background(), []byte(body), sign(body))
	if err != nil {
		t.Fatalf("illegal transition must be acknowledged, got %v", err)
	}
	if res.Status != StatusIgnored {
		t.Fatalf("status = %s, want ignored", res.Status)
	}
	if logs.All()[0].Status != StatusIgnored {
		t.Fatalf("log = %+v", logs.All()[0])
	}
}

func TestReceiveIgnoresUnrecognizedEvent(t *testing.T) {
	machine := &stubMachine{}
	p, logs, _ := newTestProcessor(machine)

	body := `{"call_id":"CA-77","status":"shouting"}`
	res, err := p.Receive(context.Background(), []byte(body), sign(body))
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if res.Status != StatusIgnored {
		t.Fatalf("status = %s, want ignored", res.Status)
	}
	if len(machine.applied) != 0 {
		t.Fatal("unrecognized event reached the session machine")
	}
	if !strings.Contains(logs.All()[0].ErrorDetail, "shouting") {
		t.Fatalf("detail = %q", logs.All()[0].ErrorDetail)
	}
}

func TestMemoryLogRepoResolveUnknown(t *testing.T) {
	r := NewMemoryLogRepo()
	if err := r.Resolve(context.Background(), "missing", StatusProcessed, "", time.Now()); err != ErrLogNotFound {
		t.Fatalf("err = %v, want ErrLogNotFound", err)
	}
}
