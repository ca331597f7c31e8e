package sessions

// Event is a provider-originated lifecycle signal mapped onto the machine.
//
// "answered" models bridge establishment as a single event; agent-leg and
// lead-leg pickup are not tracked separately.

type Event string

const (
	EventQueued    Event = "queued"
	EventRinging   Event = "ringing"
	EventAnswered  Event = "answered"
	EventCompleted Event = "completed"
	EventFailed    Event = "failed"
	EventBusy      Event = "busy"
	EventNoAnswer  Event = "no_answer"
)

// transitions is the closed legal-transition table.
//
//	initiated -> queued/ringing -> answered -> completed
//
// with terminal side-exits failed/busy/no_answer from every pre-answered
// state. A failed event after answer still lands in completed, with the
// failed_after_answer disposition recorded by the service.
var transitions = map[Status]map[Event]Status{
	StatusInitiated: {
		EventQueued:   StatusQueued,
		EventRinging:  StatusRinging,
		EventAnswered: StatusAnswered,
		EventFailed:   StatusFailed,
		EventBusy:     StatusBusy,
		EventNoAnswer: StatusNoAnswer,
	},
	StatusQueued: {
		EventRinging:  StatusRinging,
		EventAnswered: StatusAnswered,
		EventFailed:   StatusFailed,
		EventBusy:     StatusBusy,
		EventNoAnswer: StatusNoAnswer,
	},
	StatusRinging: {
		EventAnswered: StatusAnswered,
		EventFailed:   StatusFailed,
		EventBusy:     StatusBusy,
		EventNoAnswer: StatusNoAnswer,
	},
	StatusAnswered: {
		EventCompleted: StatusCompleted,
		EventFailed:    StatusCompleted,
	},
}

// nextStatus resolves the transition, ok=false when illegal for the current
// state. Terminal states have no outgoing edges at all.
func nextStatus(current Status, ev Event) (Status, bool) {
	edges, ok := transitions[current]
	if !ok {
		return "", false
	}
	next, ok := edges[ev]
	return next, ok
}

// ParseEvent maps a provider call-status string onto a machine event.
// Provider vocabularies differ slightly; the aliases here cover the common
// Twilio-style names.
func ParseEvent(s string) (Event, bool) {
	switch s {
	case "queued", "initiated":
		return EventQueued, true
	case "ringing":
		return EventRinging, true
	case "answered", "in-progress", "in_progress":
		return EventAnswered, true
	case "completed":
		return EventCompleted, true
	case "failed", "canceled":
		return EventFailed, true
	case "busy":
		return EventBusy, true
	case "no-answer", "no_answer":
		return EventNoAnswer, true
	default:
		return "", false
	}
}
