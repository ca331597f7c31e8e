package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit entries.
//
// It MUST be append-only. No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Entry) error
}

// Service records internal audit information.
//
// Callers should treat audit logging as best-effort: a failed append is
// logged by the caller but never blocks the call flow itself.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEntry = errors.New("audit: invalid entry")

func (s *Service) Append(ctx context.Context, e Entry) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Action == "" || e.TargetType == "" || e.TargetID == "" {
		return ErrInvalidEntry
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFromContext(ctx)
	}
	return s.repo.Append(ctx, e)
}

// RecordTransition writes the session-transition entry carrying prior state
// and the attempted event, so timelines can be reconstructed.
func (s *Service) RecordTransition(ctx context.Context, sessionID, actor string, metadata string) error {
	return s.Append(ctx, Entry{
		Action:     ActionSessionTransition,
		Actor:      actor,
		TargetType: TargetSession,
		TargetID:   sessionID,
		Metadata:   metadata,
	})
}

// RecordSecurityEvent logs a rejected webhook (bad signature and the like).
func (s *Service) RecordSecurityEvent(ctx context.Context, targetID, metadata string) error {
	return s.Append(ctx, Entry{
		Action:     ActionWebhookRejected,
		Actor:      "provider",
		TargetType: TargetWebhook,
		TargetID:   targetID,
		Metadata:   metadata,
	})
}
