package agents

import "time"

// Agent is read-mostly from this subsystem's point of view: the directory
// reads availability, workload and trailing performance; only the
// last-assignment stamp is written here (by dispatch, after reservation).

type Agent struct {
	ID     string `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Active bool   `json:"active" db:"active"`

	Region string `json:"region,omitempty" db:"region"`

	// Skills maps skill name to level (1..5).
	Skills map[string]int `json:"skills,omitempty" db:"skills"`

	HiredAt time.Time `json:"hired_at" db:"hired_at"`

	LastAssignedAt time.Time `json:"last_assigned_at,omitempty" db:"last_assigned_at"`
}

// TenureMonths is whole months of employment as of now.
func (a Agent) TenureMonths(now time.Time) int {
	if a.HiredAt.IsZero() || now.Before(a.HiredAt) {
		return 0
	}
	months := 0
	t := a.HiredAt
	for {
		t = t.AddDate(0, 1, 0)
		if t.After(now) {
			break
		}
		months++
	}
	return months
}

// Stats is the trailing activity picture the directory scores from.
// All counters are computed by the sessions store through the StatsSource
// adapter; this package never reads session rows directly.
type Stats struct {
	ActiveSessions    int
	CompletedToday    int
	PendingFollowups  int
	CompletedInWindow int
	Conversions       int
	AvgDurationSec    float64
}
