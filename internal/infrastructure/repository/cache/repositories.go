// Package cache wraps the war stores with a short-TTL read cache. The HTTP
// API serves the same listings over and over between sweeps, so reads hit
// memory while writes pass through and invalidate.
package cache

import (
	"context"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/domain/war"
	basecache "github.com/clanforge/war-tracker/internal/platform/cache"
)

type WarRepository struct {
	next  war.Repository
	cache *basecache.Store
}

func NewWarRepository(next war.Repository, cache *basecache.Store) *WarRepository {
	return &WarRepository{next: next, cache: cache}
}

func (r *WarRepository) Upsert(ctx context.Context, item war.War) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "war:")
	return nil
}

func (r *WarRepository) List(ctx context.Context) ([]war.War, error) {
	v, err := r.cache.GetOrLoad(ctx, "war:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]war.War(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]war.War)
	return append([]war.War(nil), items...), nil
}

func (r *WarRepository) GetByID(ctx context.Context, warID string) (war.War, bool, error) {
	key := "war:id:" + warID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, warID)
		if err != nil {
			return nil, err
		}
		return cachedWarByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return war.War{}, false, err
	}

	cached, _ := v.(cachedWarByID)
	return cached.value, cached.exists, nil
}

// Stats bypasses the cache: it is the store health probe.
func (r *WarRepository) Stats(ctx context.Context) war.StoreStats {
	return r.next.Stats(ctx)
}

type cachedWarByID struct {
	value  war.War
	exists bool
}

type LeagueWarRepository struct {
	next  leaguewar.Repository
	cache *basecache.Store
}

func NewLeagueWarRepository(next leaguewar.Repository, cache *basecache.Store) *LeagueWarRepository {
	return &LeagueWarRepository{next: next, cache: cache}
}

func (r *LeagueWarRepository) UpsertWars(ctx context.Context, group leaguewar.Group, items []leaguewar.LeagueWar) error {
	if err := r.next.UpsertWars(ctx, group, items); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "league:")
	return nil
}

func (r *LeagueWarRepository) ListSeasons(ctx context.Context) ([]leaguewar.Season, error) {
	v, err := r.cache.GetOrLoad(ctx, "league:seasons", func(ctx context.Context) (any, error) {
		items, err := r.next.ListSeasons(ctx)
		if err != nil {
			return nil, err
		}
		return append([]leaguewar.Season(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]leaguewar.Season)
	return append([]leaguewar.Season(nil), items...), nil
}

func (r *LeagueWarRepository) ListWarsBySeason(ctx context.Context, season string) ([]leaguewar.LeagueWar, bool, error) {
	key := "league:season:" + season
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, found, err := r.next.ListWarsBySeason(ctx, season)
		if err != nil {
			return nil, err
		}
		return cachedSeasonWars{items: append([]leaguewar.LeagueWar(nil), items...), found: found}, nil
	})
	if err != nil {
		return nil, false, err
	}

	cached, _ := v.(cachedSeasonWars)
	return append([]leaguewar.LeagueWar(nil), cached.items...), cached.found, nil
}

func (r *LeagueWarRepository) Dedupe(ctx context.Context) (int, error) {
	removed, err := r.next.Dedupe(ctx)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		r.cache.DeletePrefix(ctx, "league:")
	}
	return removed, nil
}

func (r *LeagueWarRepository) Stats(ctx context.Context) leaguewar.StoreStats {
	return r.next.Stats(ctx)
}

type cachedSeasonWars struct {
	items []leaguewar.LeagueWar
	found bool
}
