package automation

import (
	"context"
	"log/slog"
	"time"

	"telecall-platform/internal/audit"
	"telecall-platform/internal/events"
	"telecall-platform/internal/leads"
	"telecall-platform/internal/sessions"
)

const (
	recentWindow    = 24 * time.Hour
	reEngagementGap = 30 * 24 * time.Hour
	welcomeDelay    = time.Hour
	followUpDelay   = 4 * time.Hour
	surveyDelay     = 24 * time.Hour
)

// HistorySource exposes the call history facts the rules read. It is a
// narrow view over the session repository.
type HistorySource interface {
	RecentByLead(ctx context.Context, leadID string, since time.Time) ([]sessions.CallSession, error)
	LastCompleted(ctx context.Context, leadID string) (*sessions.CallSession, error)
}

// Effector carries one trigger out. Implementations must be independent per
// call: a failure affects only that trigger's result.
type Effector interface {
	Apply(ctx context.Context, lead leads.Lead, trig Trigger) error
}

// Engine evaluates follow-up rules over lead facts and recent call history.
// Evaluation is read-only; Execute hands each decision to the effector.
type Engine struct {
	history  HistorySource
	leadRepo leads.Repository
	effector Effector
	auditor  *audit.Service
	log      *slog.Logger

	clock func() time.Time
}

func NewEngine(history HistorySource, leadRepo leads.Repository, effector Effector, auditor *audit.Service, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		history:  history,
		leadRepo: leadRepo,
		effector: effector,
		auditor:  auditor,
		log:      log,
		clock:    time.Now,
	}
}

// Evaluate returns the triggers the lead's current facts justify, in rule
// order. A lead can fire several rules at once.
func (e *Engine) Evaluate(ctx context.Context, lead leads.Lead) ([]Trigger, error) {
	now := e.clock()
	var out []Trigger

	if lead.Status == leads.StatusNew && lead.CallAttempts == 0 {
		out = append(out, Trigger{
			Type:     TypeWelcomeCall,
			Priority: PriorityHigh,
			Delay:    welcomeDelay,
			Reason:   "new lead with no call attempts",
		})
	}

	recent, err := e.history.RecentByLead(ctx, lead.ID, now.Add(-recentWindow))
	if err != nil {
		return nil, err
	}
	if len(recent) > 0 {
		latest := recent[len(recent)-1]
		if latest.Status == sessions.StatusNoAnswer {
			out = append(out, Trigger{
				Type:     TypeFollowUpCall,
				Priority: PriorityMedium,
				Delay:    followUpDelay,
				Reason:   "most recent call in 24h went unanswered",
			})
		}
	}
	for _, s := range recent {
		if s.Sentiment == "positive" {
			out = append(out, Trigger{
				Type:     TypeFollowUpSurvey,
				Priority: PriorityLow,
				Delay:    surveyDelay,
				Reason:   "positive sentiment in the last 24h",
			})
			break
		}
	}

	last, err := e.history.LastCompleted(ctx, lead.ID)
	if err != nil {
		return nil, err
	}
	if last != nil && last.CompletedAt != nil && now.Sub(*last.CompletedAt) > reEngagementGap {
		out = append(out, Trigger{
			Type:     TypeReEngagement,
			Priority: PriorityMedium,
			Delay:    0,
			Reason:   "last completed call older than 30 days",
		})
	}

	return out, nil
}

// Execute evaluates and fires each trigger through the effector. Every
// trigger gets its own result entry; one failure never stops the rest.
func (e *Engine) Execute(ctx context.Context, lead leads.Lead) ([]ExecutionResult, error) {
	triggers, err := e.Evaluate(ctx, lead)
	if err != nil {
		return nil, err
	}

	results := make([]ExecutionResult, 0, len(triggers))
	for _, trig := range triggers {
		res := ExecutionResult{Trigger: trig}
		if err := e.effector.Apply(ctx, lead, trig); err != nil {
			res.Err = err
			e.log.Warn("automation trigger failed",
				"lead_id", lead.ID, "type", string(trig.Type), "error", err)
		} else {
			e.recordTrigger(ctx, lead.ID, trig)
		}
		results = append(results, res)
	}
	return results, nil
}

// ExecuteManual runs a single operator-requested workflow, bypassing rule
// evaluation. Unknown types are a validation error for the caller.
func (e *Engine) ExecuteManual(ctx context.Context, leadID string, typ TriggerType) (ExecutionResult, error) {
	if !KnownType(typ) {
		return ExecutionResult{}, &UnknownWorkflowError{Type: typ}
	}
	lead, err := e.leadRepo.Get(ctx, leadID)
	if err != nil {
		return ExecutionResult{}, err
	}

	trig := Trigger{Type: typ, Priority: PriorityMedium, Reason: "manual trigger"}
	res := ExecutionResult{Trigger: trig}
	if err := e.effector.Apply(ctx, lead, trig); err != nil {
		res.Err = err
		return res, nil
	}
	e.recordTrigger(ctx, leadID, trig)
	return res, nil
}

// HandleSessionEnded is the bus subscriber. Terminal session transitions
// re-evaluate the lead's follow-up rules.
func (e *Engine) HandleSessionEnded(ev events.SessionEnded) {
	ctx := context.Background()
	lead, err := e.leadRepo.Get(ctx, ev.LeadID)
	if err != nil {
		e.log.Warn("automation skipped, lead lookup failed", "lead_id", ev.LeadID, "error", err)
		return
	}
	if _, err := e.Execute(ctx, lead); err != nil {
		e.log.Warn("automation run failed", "lead_id", ev.LeadID, "error", err)
	}
}

func (e *Engine) recordTrigger(ctx context.Context, leadID string, trig Trigger) {
	if e.auditor == nil {
		return
	}
	err := e.auditor.Append(ctx, audit.Entry{
		Action:     audit.ActionAutomationTrigger,
		Actor:      "automation",
		TargetType: audit.TargetLead,
		TargetID:   leadID,
		Metadata:   `{"type":"` + string(trig.Type) + `","reason":"` + trig.Reason + `"}`,
	})
	if err != nil {
		e.log.Warn("audit append failed", "lead_id", leadID, "error", err)
	}
}
