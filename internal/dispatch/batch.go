package dispatch

import "time"

// Batch tracks fan-out completion for one alert. The counters always
// satisfy Success + Failure + InProgress == Total; CompletedAt is set
// exactly once, the instant InProgress reaches zero.
type Batch struct {
	ID          string     `json:"id"`
	AlertID     string     `json:"alertId"`
	Total       int        `json:"totalRecipients"`
	Success     int        `json:"successCount"`
	Failure     int        `json:"failureCount"`
	InProgress  int        `json:"inProgressCount"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Set when the batch was raised by an execute_action order, so the
	// scheduler can be told when the fan-out finishes.
	actionID   string
	incidentID string
}

// Completed reports whether the batch has finished.
func (b *Batch) Completed() bool { return b.CompletedAt != nil }

// snapshot returns a copy safe to hand to readers outside the dispatcher.
func (b *Batch) snapshot() Batch {
	out := *b
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
