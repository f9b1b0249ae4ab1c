package file

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

const leagueFileName = "league_wars.json"

type leagueSeasonState struct {
	group leaguewar.Group
	wars  map[string]leaguewar.LeagueWar
}

// LeagueWarRepository stores league seasons in a single JSON document.
type LeagueWarRepository struct {
	path   string
	logger *logging.Logger
	now    func() time.Time

	mu          sync.RWMutex
	seasons     map[string]*leagueSeasonState
	lastUpdated time.Time
}

func NewLeagueWarRepository(dataDir string, logger *logging.Logger) *LeagueWarRepository {
	if logger == nil {
		logger = logging.Default()
	}

	r := &LeagueWarRepository{
		path:    joinDataPath(dataDir, leagueFileName),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		seasons: make(map[string]*leagueSeasonState),
	}
	r.load(context.Background())
	return r
}

func (r *LeagueWarRepository) load(ctx context.Context) {
	var document leagueDocument
	if !loadDocument(ctx, r.path, &document, func() int { return document.Version }, r.logger) {
		return
	}

	for _, record := range document.Seasons {
		state := &leagueSeasonState{
			group: leaguewar.Group{
				Season:      record.Season,
				State:       record.State,
				Rounds:      record.Rounds,
				CollectedAt: record.CollectedAt,
			},
			wars: make(map[string]leaguewar.LeagueWar, len(record.Wars)),
		}
		for _, clan := range record.Clans {
			state.group.Clans = append(state.group.Clans, leaguewar.GroupClan(clan))
		}
		for _, item := range record.Wars {
			state.wars[item.ID] = item.toDomain()
		}
		r.seasons[record.Season] = state
	}
	r.lastUpdated = document.LastUpdated
}

func (r *LeagueWarRepository) UpsertWars(_ context.Context, group leaguewar.Group, items []leaguewar.LeagueWar) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.seasons[group.Season]
	if !ok {
		state = &leagueSeasonState{wars: make(map[string]leaguewar.LeagueWar)}
		r.seasons[group.Season] = state
	}

	previousGroup := state.group
	previousUpdated := r.lastUpdated
	replaced := make(map[string]*leaguewar.LeagueWar, len(items))

	state.group = group
	for _, item := range items {
		if existing, existed := state.wars[item.ID]; existed {
			existing := existing
			replaced[item.ID] = &existing
		} else {
			replaced[item.ID] = nil
		}
		state.wars[item.ID] = item
	}
	r.lastUpdated = r.now()

	if err := writeDocument(r.path, r.documentLocked()); err != nil {
		state.group = previousGroup
		for id, previous := range replaced {
			if previous == nil {
				delete(state.wars, id)
			} else {
				state.wars[id] = *previous
			}
		}
		r.lastUpdated = previousUpdated
		return fmt.Errorf("persist league season=%s: %w", group.Season, err)
	}
	return nil
}

func (r *LeagueWarRepository) ListSeasons(_ context.Context) ([]leaguewar.Season, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]leaguewar.Season, 0, len(r.seasons))
	for key, state := range r.seasons {
		out = append(out, seasonFromState(key, state))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Season > out[j].Season
	})
	return out, nil
}

func (r *LeagueWarRepository) ListWarsBySeason(_ context.Context, season string) ([]leaguewar.LeagueWar, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.seasons[season]
	if !ok {
		return nil, false, nil
	}
	return warsFromState(state), true, nil
}

func (r *LeagueWarRepository) Dedupe(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, state := range r.seasons {
		kept, dropped := leaguewar.DedupeWars(key, warsFromState(state))
		if dropped == 0 {
			continue
		}
		state.wars = make(map[string]leaguewar.LeagueWar, len(kept))
		for _, item := range kept {
			state.wars[item.ID] = item
		}
		removed += dropped
	}
	if removed == 0 {
		return 0, nil
	}

	r.lastUpdated = r.now()
	if err := writeDocument(r.path, r.documentLocked()); err != nil {
		return 0, fmt.Errorf("persist after dedupe: %w", err)
	}
	return removed, nil
}

func (r *LeagueWarRepository) Stats(_ context.Context) leaguewar.StoreStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wars := 0
	for _, state := range r.seasons {
		wars += len(state.wars)
	}
	return leaguewar.StoreStats{
		Seasons:     len(r.seasons),
		Wars:        wars,
		LastUpdated: war.FormatLastUpdated(r.lastUpdated),
	}
}

func (r *LeagueWarRepository) documentLocked() leagueDocument {
	keys := make([]string, 0, len(r.seasons))
	for key := range r.seasons {
		keys = append(keys, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	records := make([]seasonRecord, 0, len(keys))
	for _, key := range keys {
		state := r.seasons[key]

		clans := make([]groupClanRecord, 0, len(state.group.Clans))
		for _, clan := range state.group.Clans {
			clans = append(clans, groupClanRecord(clan))
		}

		wars := warsFromState(state)
		warRecords := make([]leagueWarRecord, 0, len(wars))
		for _, item := range wars {
			warRecords = append(warRecords, leagueWarRecordFrom(item))
		}

		records = append(records, seasonRecord{
			Season:      key,
			State:       state.group.State,
			Clans:       clans,
			Rounds:      state.group.Rounds,
			Wars:        warRecords,
			CollectedAt: state.group.CollectedAt,
		})
	}

	return leagueDocument{
		Version:     documentVersion,
		LastUpdated: r.lastUpdated,
		Seasons:     records,
	}
}

func seasonFromState(key string, state *leagueSeasonState) leaguewar.Season {
	return leaguewar.Season{
		Season:             key,
		State:              state.group.State,
		ParticipatingClans: append([]leaguewar.GroupClan(nil), state.group.Clans...),
		Wars:               warsFromState(state),
		CollectedAt:        state.group.CollectedAt,
	}
}

func warsFromState(state *leagueSeasonState) []leaguewar.LeagueWar {
	out := make([]leaguewar.LeagueWar, 0, len(state.wars))
	for _, item := range state.wars {
		out = append(out, item)
	}
	leaguewar.SortRoundOrder(out)
	return out
}
