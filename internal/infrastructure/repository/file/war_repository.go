package file

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

const warsFileName = "wars.json"

// WarRepository stores standalone wars in a single JSON document. State is
// held in memory and flushed atomically on every write.
type WarRepository struct {
	path   string
	logger *logging.Logger
	now    func() time.Time

	mu          sync.RWMutex
	items       map[string]war.War
	lastUpdated time.Time
}

func NewWarRepository(dataDir string, logger *logging.Logger) *WarRepository {
	if logger == nil {
		logger = logging.Default()
	}

	r := &WarRepository{
		path:   joinDataPath(dataDir, warsFileName),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		items:  make(map[string]war.War),
	}
	r.load(context.Background())
	return r
}

func (r *WarRepository) load(ctx context.Context) {
	var document warDocument
	if !loadDocument(ctx, r.path, &document, func() int { return document.Version }, r.logger) {
		return
	}

	for _, record := range document.Wars {
		r.items[record.ID] = record.toDomain()
	}
	r.lastUpdated = document.LastUpdated
}

func (r *WarRepository) Upsert(_ context.Context, item war.War) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, existed := r.items[item.ID]
	previousUpdated := r.lastUpdated

	r.items[item.ID] = item
	r.lastUpdated = r.now()

	if err := writeDocument(r.path, r.documentLocked()); err != nil {
		if existed {
			r.items[item.ID] = previous
		} else {
			delete(r.items, item.ID)
		}
		r.lastUpdated = previousUpdated
		return fmt.Errorf("persist war id=%s: %w", item.ID, err)
	}
	return nil
}

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

func (r *WarRepository) documentLocked() warDocument {
	items := make([]war.War, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	war.SortNewestFirst(items)

	records := make([]warRecord, 0, len(items))
	for _, item := range items {
		records = append(records, warRecordFrom(item))
	}
	return warDocument{
		Version:     documentVersion,
		LastUpdated: r.lastUpdated,
		Wars:        records,
	}
}
