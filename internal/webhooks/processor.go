package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"telecall-platform/internal/audit"
	"telecall-platform/internal/sessions"
)

var ErrLogNotFound = errors.New("webhooks: log not found")

// SessionMachine is the slice of the session service the processor drives.
type SessionMachine interface {
	ApplyWebhookEvent(ctx context.Context, externalCallID string, ev sessions.Event, payload sessions.EventPayload) (sessions.CallSession, error)
}

// Result tells the HTTP layer how to answer the provider. Rejected maps to
// 401 and Malformed to 400; everything else is acknowledged with 200 so the
// provider stops retrying.
type Result struct {
	LogID     string
	Status    ProcessingStatus
	Rejected  bool
	Malformed bool
	Detail    string
}

// Processor authenticates, records, and dispatches provider callbacks.
// Every inbound request leaves a Log row regardless of outcome.
type Processor struct {
	secret   string
	provider string
	logs     LogRepository
	machine  SessionMachine
	auditor  *audit.Service
	log      *slog.Logger

	clock func() time.Time
	newID func() string
}

func NewProcessor(secret, provider string, logs LogRepository, machine SessionMachine, auditor *audit.Service, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		secret:   secret,
		provider: provider,
		logs:     logs,
		machine:  machine,
		auditor:  auditor,
		log:      log,
		clock:    time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Receive handles one raw callback. The signature is checked against the
// exact body bytes before anything is parsed; a mismatch is logged as
// rejected and surfaced to the audit trail as a security event.
func (p *Processor) Receive(ctx context.Context, body []byte, signature string) (Result, error) {
	now := p.clock()
	entry := Log{
		ID:         p.newID(),
		Provider:   p.provider,
		RawPayload: string(body),
		Signature:  signature,
		Status:     StatusReceived,
		ReceivedAt: now,
	}

	if !VerifySignature(p.secret, body, signature) {
		entry.Status = StatusRejected
		entry.ErrorDetail = "signature mismatch"
		if err := p.logs.Append(ctx, entry); err != nil {
			return Result{}, err
		}
		p.recordRejection(ctx, entry.ID)
		return Result{LogID: entry.ID, Status: StatusRejected, Rejected: true, Detail: "invalid signature"}, nil
	}

	var pl payload
	if err := json.Unmarshal(body, &pl); err != nil || pl.CallID == "" || pl.CallStatus == "" {
		entry.Status = StatusFailed
		entry.ErrorDetail = "malformed payload"
		if err := p.logs.Append(ctx, entry); err != nil {
			return Result{}, err
		}
		return Result{LogID: entry.ID, Status: StatusFailed, Malformed: true, Detail: "malformed payload"}, nil
	}

	entry.ExternalCallID = pl.CallID
	entry.EventType = pl.CallStatus
	if err := p.logs.Append(ctx, entry); err != nil {
		return Result{}, err
	}

	ev, ok := sessions.ParseEvent(pl.CallStatus)
	if !ok {
		return p.resolve(ctx, entry.ID, StatusIgnored, "unrecognized event type "+pl.CallStatus)
	}

	_, err := p.machine.ApplyWebhookEvent(ctx, pl.CallID, ev, sessions.EventPayload{
		DurationSeconds: pl.Duration,
		Disposition:     pl.Disposition,
		Sentiment:       pl.Sentiment,
		RecordingURL:    pl.RecordingURL,
	})
	switch {
	case err == nil:
		return p.resolve(ctx, entry.ID, StatusProcessed, "")
	case isUnknownSession(err):
		return p.resolve(ctx, entry.ID, StatusFailed, "session_not_found")
	case isIllegalTransition(err):
		// Duplicate or out-of-order delivery; acknowledged so the
		// provider does not retry.
		return p.resolve(ctx, entry.ID, StatusIgnored, err.Error())
	default:
		if rerr := p.logs.Resolve(ctx, entry.ID, StatusFailed, err.Error(), p.clock()); rerr != nil {
			p.log.Warn("webhook log resolve failed", "log_id", entry.ID, "error", rerr)
		}
		return Result{LogID: entry.ID, Status: StatusFailed, Detail: err.Error()}, err
	}
}

func (p *Processor) resolve(ctx context.Context, logID string, status ProcessingStatus, detail string) (Result, error) {
	if err := p.logs.Resolve(ctx, logID, status, detail, p.clock()); err != nil {
		p.log.Warn("webhook log resolve failed", "log_id", logID, "error", err)
	}
	return Result{LogID: logID, Status: status, Detail: detail}, nil
}

func (p *Processor) recordRejection(ctx context.Context, logID string) {
	if p.auditor == nil {
		return
	}
	meta, _ := json.Marshal(map[string]string{
		"provider": p.provider,
		"reason":   "signature mismatch",
	})
	if err := p.auditor.RecordSecurityEvent(ctx, logID, string(meta)); err != nil {
		p.log.Warn("audit append failed", "log_id", logID, "error", err)
	}
}

func isUnknownSession(err error) bool {
	var u *sessions.UnknownSessionError
	return errors.As(err, &u)
}

func isIllegalTransition(err error) bool {
	var it *sessions.IllegalTransitionError
	return errors.As(err, &it)
}
