package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/domain/war"
)

type leagueSeasonRecord struct {
	group leaguewar.Group
	wars  map[string]leaguewar.LeagueWar
}

// LeagueWarRepository keeps league seasons in process memory.
type LeagueWarRepository struct {
	mu          sync.RWMutex
	seasons     map[string]*leagueSeasonRecord
	lastUpdated time.Time
}

func NewLeagueWarRepository() *LeagueWarRepository {
	return &LeagueWarRepository{seasons: make(map[string]*leagueSeasonRecord)}
}

func (r *LeagueWarRepository) UpsertWars(_ context.Context, group leaguewar.Group, items []leaguewar.LeagueWar) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.seasons[group.Season]
	if !ok {
		record = &leagueSeasonRecord{wars: make(map[string]leaguewar.LeagueWar)}
		r.seasons[group.Season] = record
	}
	record.group = group
	for _, item := range items {
		record.wars[item.ID] = item
	}

	if group.CollectedAt.After(r.lastUpdated) {
		r.lastUpdated = group.CollectedAt
	}
	return nil
}

// ListSeasons returns seasons newest first.
func (r *LeagueWarRepository) ListSeasons(_ context.Context) ([]leaguewar.Season, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]leaguewar.Season, 0, len(r.seasons))
	for key, record := range r.seasons {
		out = append(out, seasonFromRecord(key, record))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Season > out[j].Season
	})
	return out, nil
}

func (r *LeagueWarRepository) ListWarsBySeason(_ context.Context, season string) ([]leaguewar.LeagueWar, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.seasons[season]
	if !ok {
		return nil, false, nil
	}
	return warsFromRecord(record), true, nil
}

// Dedupe drops duplicate round wars, keeping the freshest record for each
// season/round/opponent triple. Running it twice removes nothing new.
func (r *LeagueWarRepository) Dedupe(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, record := range r.seasons {
		kept, dropped := leaguewar.DedupeWars(key, warsFromRecord(record))
		if dropped == 0 {
			continue
		}
		record.wars = make(map[string]leaguewar.LeagueWar, len(kept))
		for _, item := range kept {
			record.wars[item.ID] = item
		}
		removed += dropped
	}
	return removed, nil
}

func (r *LeagueWarRepository) Stats(_ context.Context) leaguewar.StoreStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wars := 0
	for _, record := range r.seasons {
		wars += len(record.wars)
	}
	return leaguewar.StoreStats{
		Seasons:     len(r.seasons),
		Wars:        wars,
		LastUpdated: war.FormatLastUpdated(r.lastUpdated),
	}
}

func seasonFromRecord(key string, record *leagueSeasonRecord) leaguewar.Season {
	return leaguewar.Season{
		Season:             key,
		State:              record.group.State,
		ParticipatingClans: append([]leaguewar.GroupClan(nil), record.group.Clans...),
		Wars:               warsFromRecord(record),
		CollectedAt:        record.group.CollectedAt,
	}
}

func warsFromRecord(record *leagueSeasonRecord) []leaguewar.LeagueWar {
	out := make([]leaguewar.LeagueWar, 0, len(record.wars))
	for _, item := range record.wars {
		out = append(out, item)
	}
	leaguewar.SortRoundOrder(out)
	return out
}

