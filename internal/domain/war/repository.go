package war

import "context"

type Repository interface {
	// Upsert inserts or replaces by ID, keeping the store ordered by
	// end time descending. Single writer at a time.
	Upsert(ctx context.Context, item War) error
	List(ctx context.Context) ([]War, error)
	GetByID(ctx context.Context, warID string) (War, bool, error)
	// Stats never fails: read errors degrade to zero counts.
	Stats(ctx context.Context) StoreStats
}
