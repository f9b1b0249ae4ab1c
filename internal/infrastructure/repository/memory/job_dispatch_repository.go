package memory

import (
	"context"
	"sync"

	"github.com/clanforge/war-tracker/internal/domain/jobscheduler"
)

const maxDispatchEvents = 256

// JobDispatchRepository keeps recent dispatch events in memory, newest last.
// It serves deployments without a database, where the audit trail only needs
// to survive the current process.
type JobDispatchRepository struct {
	mu     sync.Mutex
	events []jobscheduler.DispatchEvent
}

func NewJobDispatchRepository() *JobDispatchRepository {
	return &JobDispatchRepository{}
}

func (r *JobDispatchRepository) UpsertEvent(_ context.Context, event jobscheduler.DispatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.events {
		if r.events[i].DispatchID == event.DispatchID {
			r.events[i] = event
			return nil
		}
	}

	r.events = append(r.events, event)
	if len(r.events) > maxDispatchEvents {
		r.events = r.events[len(r.events)-maxDispatchEvents:]
	}
	return nil
}

// Events returns a copy of the recorded events, oldest first.
func (r *JobDispatchRepository) Events() []jobscheduler.DispatchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]jobscheduler.DispatchEvent, len(r.events))
	copy(out, r.events)
	return out
}
