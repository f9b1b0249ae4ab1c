package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
	qb "github.com/clanforge/war-tracker/internal/platform/querybuilder"
)

var leagueWarColumns = []string{
	"war_id",
	"war_tag",
	"season",
	"round",
	"state",
	"team_size",
	"preparation_start_time",
	"start_time",
	"end_time",
	"clan",
	"opponent",
	"collected_at",
}

const leagueWarUpsertSuffix = `ON CONFLICT (war_id)
DO UPDATE SET
    war_tag = EXCLUDED.war_tag,
    season = EXCLUDED.season,
    round = EXCLUDED.round,
    state = EXCLUDED.state,
    team_size = EXCLUDED.team_size,
    preparation_start_time = EXCLUDED.preparation_start_time,
    start_time = EXCLUDED.start_time,
    end_time = EXCLUDED.end_time,
    clan = EXCLUDED.clan,
    opponent = EXCLUDED.opponent,
    collected_at = EXCLUDED.collected_at`

type LeagueWarRepository struct {
	db     *sqlx.DB
	logger *logging.Logger
}

func NewLeagueWarRepository(db *sqlx.DB, logger *logging.Logger) *LeagueWarRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeagueWarRepository{db: db, logger: logger}
}

// UpsertWars writes the season group and its round wars in one transaction
// so a crashed sweep never leaves a season half-updated.
func (r *LeagueWarRepository) UpsertWars(ctx context.Context, group leaguewar.Group, items []leaguewar.LeagueWar) error {
	seasonRow, err := leagueSeasonRowFrom(group)
	if err != nil {
		return fmt.Errorf("map league season=%s: %w", group.Season, err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin league upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := qb.InsertModel("league_seasons", seasonRow, `ON CONFLICT (season)
DO UPDATE SET
    state = EXCLUDED.state,
    clans = EXCLUDED.clans,
    rounds = EXCLUDED.rounds,
    collected_at = EXCLUDED.collected_at`)
	if err != nil {
		return fmt.Errorf("build upsert league season query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert league season=%s: %w", group.Season, err)
	}

	for _, item := range items {
		row, err := leagueWarRowFrom(item)
		if err != nil {
			return fmt.Errorf("map league war id=%s: %w", item.ID, err)
		}
		query, args, err := qb.InsertModel("league_wars", row, leagueWarUpsertSuffix)
		if err != nil {
			return fmt.Errorf("build upsert league war query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert league war id=%s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit league upsert season=%s: %w", group.Season, err)
	}
	return nil
}

// ListSeasons returns seasons newest first with their wars attached.
func (r *LeagueWarRepository) ListSeasons(ctx context.Context) ([]leaguewar.Season, error) {
	query, args, err := qb.Select("season", "state", "clans", "rounds", "collected_at").
		From("league_seasons").
		OrderBy("season DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list seasons query: %w", err)
	}

	var rows []leagueSeasonRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list league seasons: %w", err)
	}

	out := make([]leaguewar.Season, 0, len(rows))
	for _, row := range rows {
		group, err := row.toGroup()
		if err != nil {
			return nil, err
		}
		wars, err := r.listWars(ctx, row.Season)
		if err != nil {
			return nil, err
		}
		out = append(out, leaguewar.Season{
			Season:             group.Season,
			State:              group.State,
			ParticipatingClans: group.Clans,
			Wars:               wars,
			CollectedAt:        group.CollectedAt,
		})
	}
	return out, nil
}

func (r *LeagueWarRepository) ListWarsBySeason(ctx context.Context, season string) ([]leaguewar.LeagueWar, bool, error) {
	query, args, err := qb.Select("season").
		From("league_seasons").
		Where(qb.Eq("season", season)).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, false, fmt.Errorf("build season lookup query: %w", err)
	}

	var key string
	err = retryOnBindError(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &key, query, args...)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup league season=%s: %w", season, err)
	}

	wars, err := r.listWars(ctx, season)
	if err != nil {
		return nil, false, err
	}
	return wars, true, nil
}

func (r *LeagueWarRepository) listWars(ctx context.Context, season string) ([]leaguewar.LeagueWar, error) {
	query, args, err := qb.Select(leagueWarColumns...).
		From("league_wars").
		Where(qb.Eq("season", season)).
		OrderBy("round ASC", "war_id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list league wars query: %w", err)
	}

	var rows []leagueWarRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list league wars season=%s: %w", season, err)
	}

	out := make([]leaguewar.LeagueWar, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Dedupe removes duplicate round wars season by season, keeping the
// freshest record per round/opponent pair.
func (r *LeagueWarRepository) Dedupe(ctx context.Context) (int, error) {
	seasons, err := r.ListSeasons(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, season := range seasons {
		kept, dropped := leaguewar.DedupeWars(season.Season, season.Wars)
		if dropped == 0 {
			continue
		}

		keepIDs := make(map[string]struct{}, len(kept))
		for _, item := range kept {
			keepIDs[item.ID] = struct{}{}
		}
		dropIDs := make([]string, 0, dropped)
		for _, item := range season.Wars {
			if _, ok := keepIDs[item.ID]; !ok {
				dropIDs = append(dropIDs, item.ID)
			}
		}

		query := "DELETE FROM league_wars WHERE war_id = ANY($1)"
		if _, err := r.db.ExecContext(ctx, query, pq.Array(dropIDs)); err != nil {
			return removed, fmt.Errorf("delete duplicate league wars season=%s: %w", season.Season, err)
		}
		removed += dropped
	}
	return removed, nil
}

// Stats degrades to zero counts when the database is unreachable.
func (r *LeagueWarRepository) Stats(ctx context.Context) leaguewar.StoreStats {
	var row struct {
		Seasons     int        `db:"seasons"`
		Wars        int        `db:"wars"`
		LastUpdated *time.Time `db:"last_updated"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT
    (SELECT COUNT(*) FROM league_seasons) AS seasons,
    (SELECT COUNT(*) FROM league_wars) AS wars,
    (SELECT MAX(collected_at) FROM league_seasons) AS last_updated`)
	if err != nil {
		r.logger.WarnContext(ctx, "league store stats unavailable", "error", err)
		return leaguewar.StoreStats{LastUpdated: war.FormatLastUpdated(time.Time{})}
	}

	return leaguewar.StoreStats{
		Seasons:     row.Seasons,
		Wars:        row.Wars,
		LastUpdated: war.FormatLastUpdated(timeOrZero(row.LastUpdated)),
	}
}
