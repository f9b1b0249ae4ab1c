package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
	qb "github.com/clanforge/war-tracker/internal/platform/querybuilder"
)

var warColumns = []string{
	"war_id",
	"state",
	"team_size",
	"attacks_per_member",
	"preparation_start_time",
	"start_time",
	"end_time",
	"clan",
	"opponent",
	"collected_at",
}

type WarRepository struct {
	db     *sqlx.DB
	logger *logging.Logger
}

func NewWarRepository(db *sqlx.DB, logger *logging.Logger) *WarRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &WarRepository{db: db, logger: logger}
}

func (r *WarRepository) Upsert(ctx context.Context, item war.War) error {
	row, err := warRowFrom(item)
	if err != nil {
		return fmt.Errorf("map war id=%s: %w", item.ID, err)
	}

	query, args, err := qb.InsertModel("wars", row, `ON CONFLICT (war_id)
DO UPDATE SET
    state = EXCLUDED.state,
    team_size = EXCLUDED.team_size,
    attacks_per_member = EXCLUDED.attacks_per_member,
    preparation_start_time = EXCLUDED.preparation_start_time,
    start_time = EXCLUDED.start_time,
    end_time = EXCLUDED.end_time,
    clan = EXCLUDED.clan,
    opponent = EXCLUDED.opponent,
    collected_at = EXCLUDED.collected_at`)
	if err != nil {
		return fmt.Errorf("build upsert war query: %w", err)
	}

	err = retryOnBindError(ctx, func(ctx context.Context) error {
		_, execErr := r.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("upsert war id=%s: %w", item.ID, err)
	}
	return nil
}

func (r *WarRepository) List(ctx context.Context) ([]war.War, error) {
	query, args, err := qb.Select(warColumns...).
		From("wars").
		OrderBy("end_time DESC NULLS LAST", "war_id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list wars query: %w", err)
	}

	var rows []warRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list wars: %w", err)
	}

	out := make([]war.War, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *WarRepository) GetByID(ctx context.Context, warID string) (war.War, bool, error) {
	query, args, err := qb.Select(warColumns...).
		From("wars").
		Where(qb.Eq("war_id", warID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return war.War{}, false, fmt.Errorf("build get war query: %w", err)
	}

	var row warRow
	err = retryOnBindError(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &row, query, args...)
	})
	if err != nil {
		if isNotFound(err) {
			return war.War{}, false, nil
		}
		return war.War{}, false, fmt.Errorf("get war id=%s: %w", warID, err)
	}

	item, err := row.toDomain()
	if err != nil {
		return war.War{}, false, err
	}
	return item, true, nil
}

// Stats degrades to zero counts when the database is unreachable.
func (r *WarRepository) Stats(ctx context.Context) war.StoreStats {
	var row struct {
		Wars        int        `db:"wars"`
		LastUpdated *time.Time `db:"last_updated"`
	}
	err := r.db.GetContext(ctx, &row, "SELECT COUNT(*) AS wars, MAX(collected_at) AS last_updated FROM wars")
	if err != nil {
		r.logger.WarnContext(ctx, "war store stats unavailable", "error", err)
		return war.StoreStats{LastUpdated: war.FormatLastUpdated(time.Time{})}
	}

	return war.StoreStats{
		Wars:        row.Wars,
		LastUpdated: war.FormatLastUpdated(timeOrZero(row.LastUpdated)),
	}
}
