package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"telecall-platform/internal/audit"
	"telecall-platform/internal/compliance"
	"telecall-platform/internal/events"
	"telecall-platform/internal/leads"
	"telecall-platform/internal/telephony"
	"telecall-platform/pkg/logger"

	"github.com/google/uuid"
)

// DefaultStalenessThreshold is the maximum age a non-terminal session may
// reach before the next initiate for the same lead supersedes it. Expiry is
// lazy: nothing sweeps stale sessions on a timer.
const DefaultStalenessThreshold = 300 * time.Second

// Service is the call-session state machine. It exclusively owns
// CallSession.Status; every other component requests transitions through it.

type Service struct {
	repo     Repository
	gate     *compliance.Gate
	attempts compliance.Recorder
	dialer   telephony.Dialer
	leadRepo leads.Repository
	auditor  *audit.Service
	bus      *events.Bus

	StalenessThreshold time.Duration

	// CallbackURL is handed to the dialer so the provider posts status
	// events back to the webhook endpoint.
	CallbackURL string

	clock func() time.Time
	newID func() string
}

func NewService(repo Repository, gate *compliance.Gate, attempts compliance.Recorder, dialer telephony.Dialer, leadRepo leads.Repository, auditor *audit.Service, bus *events.Bus) *Service {
	return &Service{
		repo:               repo,
		gate:               gate,
		attempts:           attempts,
		dialer:             dialer,
		leadRepo:           leadRepo,
		auditor:            auditor,
		bus:                bus,
		StalenessThreshold: DefaultStalenessThreshold,
		clock:              time.Now,
		newID:              uuid.NewString,
	}
}

// EventPayload carries the applicable webhook fields into a transition.
type EventPayload struct {
	DurationSeconds int    `json:"duration,omitempty"`
	Disposition     string `json:"disposition,omitempty"`
	Sentiment       string `json:"sentiment,omitempty"`
	RecordingURL    string `json:"recording_url,omitempty"`
}

// Initiate runs the compliance gate, then performs the atomic
// check-and-create under the lead lock, then places the call.
//
// A fresh active session for the lead yields a ConflictError referencing it.
// An active session past the staleness threshold is forced to failed first
// and the new session proceeds. Provider rejection marks the new session
// failed immediately, with the adapter's reason preserved.
func (s *Service) Initiate(ctx context.Context, lead leads.Lead, agentID string, callType CallType, meta Metadata) (CallSession, error) {
	log := logger.From(ctx)

	if lead.ID == "" || lead.Phone == "" {
		return CallSession{}, errors.New("sessions: lead id and phone required")
	}
	if callType == "" {
		callType = CallTypeOutbound
	}

	if err := s.gate.CheckEligibility(ctx, lead); err != nil {
		return CallSession{}, err
	}

	now := s.clock().UTC()
	session := CallSession{
		ID:          s.newID(),
		LeadID:      lead.ID,
		AgentID:     agentID,
		CallType:    callType,
		Status:      StatusInitiated,
		InitiatedAt: now,
		Metadata:    meta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.repo.WithLeadLock(ctx, lead.ID, func(ctx context.Context) error {
		active, err := s.repo.ActiveForLead(ctx, lead.ID)
		if err != nil {
			return err
		}
		if active != nil {
			if now.Sub(active.CreatedAt) < s.StalenessThreshold {
				return &ConflictError{Existing: *active}
			}
			// Stale: presumed abandoned, force-fail it before proceeding.
			active.Status = StatusFailed
			active.Disposition = DispositionStaleAbandoned
			active.CompletedAt = &now
			active.UpdatedAt = now
			if err := s.repo.Update(ctx, *active); err != nil {
				return err
			}
			s.audit(ctx, audit.Entry{
				Action:     audit.ActionSessionSuperseded,
				Actor:      "system",
				TargetType: audit.TargetSession,
				TargetID:   active.ID,
				Metadata:   mustJSON(map[string]any{"lead_id": lead.ID, "superseded_by": session.ID}),
			})
		}
		return s.repo.Create(ctx, session)
	})
	if err != nil {
		return CallSession{}, err
	}

	if err := s.attempts.Record(ctx, lead.ID); err != nil {
		// The session exists; a counter miss must not fail the call.
		log.Warn("daily attempt record failed", "lead_id", lead.ID, "err", err)
	}
	s.audit(ctx, audit.Entry{
		Action:     audit.ActionSessionInitiated,
		Actor:      agentID,
		TargetType: audit.TargetSession,
		TargetID:   session.ID,
		Metadata:   mustJSON(map[string]any{"lead_id": lead.ID, "call_type": callType, "strategy": meta.Strategy}),
	})

	res, err := s.dialer.PlaceCall(ctx, telephony.PlaceCallRequest{
		SessionID:   session.ID,
		To:          lead.Phone,
		CallbackURL: s.CallbackURL,
	})
	if err != nil {
		reason := err.Error()
		if pe, ok := telephony.AsProviderError(err); ok {
			reason = pe.Reason
		}
		session.Status = StatusFailed
		session.Disposition = DispositionProviderRejected
		session.CompletedAt = &now
		session.UpdatedAt = s.clock().UTC()
		session.Metadata.FailureReason = reason
		if uerr := s.repo.Update(ctx, session); uerr != nil {
			log.Error("failed-session update failed", "session_id", session.ID, "err", uerr)
		}
		return session, err
	}

	// external_call_id is set exactly once, on provider acknowledgement.
	session.ExternalCallID = res.ExternalCallID
	session.Metadata.BridgeReference = res.BridgeReference
	session.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, session); err != nil {
		return CallSession{}, err
	}

	log.Info("session initiated", "session_id", session.ID, "lead_id", lead.ID, "agent_id", agentID, "external_call_id", res.ExternalCallID)
	return session, nil
}

// End is the sole caller-initiated cancellation path, legal only while the
// session is pre-terminal. A successful hangup lands in completed with the
// manual-end flag.
//
// The terminal write runs under the lead lock with a re-read: a webhook
// completion racing the hangup must not be double-applied.
func (s *Service) End(ctx context.Context, sessionID, actor string) (CallSession, error) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return CallSession{}, err
	}
	if !session.Status.Active() {
		return session, ErrNotActive
	}

	if session.ExternalCallID != "" {
		if err := s.dialer.Hangup(ctx, session.ExternalCallID); err != nil {
			return session, err
		}
	}

	now := s.clock().UTC()
	var prior Status
	err = s.repo.WithLeadLock(ctx, session.LeadID, func(ctx context.Context) error {
		fresh, rerr := s.repo.Get(ctx, sessionID)
		if rerr != nil {
			return rerr
		}
		session = fresh
		if !session.Status.Active() {
			return ErrNotActive
		}

		prior = session.Status
		session.Status = StatusCompleted
		session.Disposition = DispositionManualEnd
		session.Metadata.ManualEnd = true
		session.CompletedAt = &now
		if session.AnsweredAt != nil {
			session.DurationSeconds = int(now.Sub(*session.AnsweredAt).Seconds())
		}
		session.UpdatedAt = now
		return s.repo.Update(ctx, session)
	})
	if err != nil {
		if errors.Is(err, ErrNotActive) {
			return session, ErrNotActive
		}
		return CallSession{}, err
	}

	s.audit(ctx, audit.Entry{
		Action:     audit.ActionSessionEnded,
		Actor:      actor,
		TargetType: audit.TargetSession,
		TargetID:   session.ID,
		Metadata:   mustJSON(map[string]any{"prior_status": prior, "manual_end": true}),
	})
	s.finishTerminal(ctx, session, now)
	return session, nil
}

// ApplyWebhookEvent requests a transition for the session identified by the
// provider's call id. It is idempotent: unknown ids and illegal transitions
// come back as their typed errors and change nothing; re-applying an already
// applied event falls into the illegal-transition bucket because the table
// has no self-loops.
//
// The check-and-transition runs under the same lead lock as Initiate, with
// the session re-read inside it. Providers retry deliveries, so the same
// event can arrive on two connections at once; without the lock both would
// observe the pre-terminal status and both would apply.
func (s *Service) ApplyWebhookEvent(ctx context.Context, externalCallID string, ev Event, payload EventPayload) (CallSession, error) {
	log := logger.From(ctx)

	session, err := s.repo.GetByExternalID(ctx, externalCallID)
	if errors.Is(err, ErrNotFound) {
		return CallSession{}, &UnknownSessionError{ExternalCallID: externalCallID}
	}
	if err != nil {
		return CallSession{}, err
	}

	now := s.clock().UTC()
	var prior Status
	err = s.repo.WithLeadLock(ctx, session.LeadID, func(ctx context.Context) error {
		fresh, rerr := s.repo.GetByExternalID(ctx, externalCallID)
		if rerr != nil {
			return rerr
		}
		session = fresh

		next, ok := nextStatus(session.Status, ev)
		if !ok {
			// Terminal states land here too: duplicates are ignored, not errors.
			return &IllegalTransitionError{SessionID: session.ID, From: session.Status, Event: ev}
		}

		prior = session.Status
		session.Status = next
		session.UpdatedAt = now

		if next == StatusAnswered && session.AnsweredAt == nil {
			t := now
			session.AnsweredAt = &t
		}
		if payload.RecordingURL != "" {
			session.RecordingURL = payload.RecordingURL
		}
		if payload.Sentiment != "" {
			session.Sentiment = payload.Sentiment
		}

		if next.Terminal() {
			t := now
			session.CompletedAt = &t
			if payload.DurationSeconds > 0 {
				session.DurationSeconds = payload.DurationSeconds
			} else if session.AnsweredAt != nil {
				session.DurationSeconds = int(now.Sub(*session.AnsweredAt).Seconds())
			}
			switch {
			case payload.Disposition != "":
				session.Disposition = payload.Disposition
			case prior == StatusAnswered && ev == EventFailed:
				session.Disposition = DispositionFailedAfterAnswer
			default:
				session.Disposition = string(next)
			}
		}
		return s.repo.Update(ctx, session)
	})
	if err != nil {
		var ite *IllegalTransitionError
		if errors.As(err, &ite) {
			log.Info("ignored duplicate webhook event", "session_id", session.ID, "status", session.Status, "event", ev)
			return session, err
		}
		return CallSession{}, err
	}

	s.audit(ctx, audit.Entry{
		Action:     audit.ActionSessionTransition,
		Actor:      "system",
		TargetType: audit.TargetSession,
		TargetID:   session.ID,
		Metadata:   mustJSON(map[string]any{"prior_status": prior, "event": ev, "status": session.Status}),
	})

	if session.Status.Terminal() {
		s.finishTerminal(ctx, session, now)
	}
	return session, nil
}

// Get returns the session snapshot.
func (s *Service) Get(ctx context.Context, sessionID string) (CallSession, error) {
	return s.repo.Get(ctx, sessionID)
}

// finishTerminal updates the lead's call stats and publishes the terminal
// event consumed by automation.
func (s *Service) finishTerminal(ctx context.Context, session CallSession, at time.Time) {
	log := logger.From(ctx)

	if s.leadRepo != nil {
		if err := s.leadRepo.RecordAttempt(ctx, session.LeadID, at); err != nil && !errors.Is(err, leads.ErrNotFound) {
			log.Warn("lead attempt record failed", "lead_id", session.LeadID, "err", err)
		}
	}
	if s.bus != nil {
		s.bus.Publish(events.SessionEnded{
			SessionID:       session.ID,
			LeadID:          session.LeadID,
			AgentID:         session.AgentID,
			Status:          string(session.Status),
			Disposition:     session.Disposition,
			Sentiment:       session.Sentiment,
			DurationSeconds: session.DurationSeconds,
			OccurredAt:      at,
		})
	}
}

// audit is best-effort: failures are logged, never block the call flow.
func (s *Service) audit(ctx context.Context, e audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed", "action", e.Action, "target_id", e.TargetID, "err", err)
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
