package jobscheduler

import "time"

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusFailed    DispatchStatus = "failed"
)

// Stream names for dispatch bookkeeping.
const (
	StreamWar    = "war"
	StreamLeague = "league"
)

// DispatchEvent records one manual or scheduled collection trigger.
type DispatchEvent struct {
	DispatchID   string
	JobName      string
	JobPath      string
	Stream       string
	Status       DispatchStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
