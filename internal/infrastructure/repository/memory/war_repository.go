package memory

import (
	"context"
	"sync"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/war"
)

// WarRepository keeps collected wars in process memory. It backs tests and
// ephemeral deployments where neither the data dir nor a database is set.
type WarRepository struct {
	mu          sync.RWMutex
	items       map[string]war.War
	lastUpdated time.Time
}

func NewWarRepository() *WarRepository {
	return &WarRepository{items: make(map[string]war.War)}
}

func (r *WarRepository) Upsert(_ context.Context, item war.War) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = item
	if item.CollectedAt.After(r.lastUpdated) {
		r.lastUpdated = item.CollectedAt
	}
	return nil
}

// List returns wars newest first.
func (r *WarRepository) List(_ context.Context) ([]war.War, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]war.War, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	war.SortNewestFirst(out)
	return out, nil
}

func (r *WarRepository) GetByID(_ context.Context, warID string) (war.War, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[warID]
	if !ok {
		return war.War{}, false, nil
	}
	return item, true, nil
}

func (r *WarRepository) Stats(_ context.Context) war.StoreStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return war.StoreStats{
		Wars:        len(r.items),
		LastUpdated: war.FormatLastUpdated(r.lastUpdated),
	}
}
