package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

// LeagueCollectResult is what one league sweep observed. EarliestEndTime is
// the earliest end time among in-progress round wars, so the scheduler can
// arm its end-of-war one-shot.
type LeagueCollectResult struct {
	Season          string
	State           string
	RoundsFetched   int
	WarsStored      int
	RoundFailures   int
	EarliestEndTime time.Time
}

type LeagueCollectorConfig struct {
	// FetchWorkers bounds concurrent round-war fetches. The provider
	// rate-limits per token, so the default is a single worker.
	FetchWorkers int
	// FetchPause is the delay between round-war fetch submissions.
	FetchPause time.Duration
}

type LeagueCollectorService struct {
	provider WarProvider
	wars     leaguewar.Repository
	clanTag  string
	workers  int
	pause    time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

func NewLeagueCollectorService(
	provider WarProvider,
	wars leaguewar.Repository,
	clanTag string,
	cfg LeagueCollectorConfig,
	logger *logging.Logger,
) *LeagueCollectorService {
	if logger == nil {
		logger = logging.Default()
	}

	workers := cfg.FetchWorkers
	if workers <= 0 {
		workers = 1
	}

	pause := cfg.FetchPause
	if pause < 0 {
		pause = 0
	}

	return &LeagueCollectorService{
		provider: provider,
		wars:     wars,
		clanTag:  strings.TrimSpace(clanTag),
		workers:  workers,
		pause:    pause,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type leagueRoundTask struct {
	round  int
	warTag string
}

// Collect fetches the clan's league group and every scheduled round war in
// it. A failed round fetch is logged and counted but does not abort the
// sweep; whatever was fetched still gets stored.
func (s *LeagueCollectorService) Collect(ctx context.Context) (LeagueCollectResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueCollectorService.Collect")
	defer span.End()

	if s.provider == nil || s.wars == nil {
		return LeagueCollectResult{}, fmt.Errorf("%w: league collector is not fully configured", ErrDependencyUnavailable)
	}
	if s.clanTag == "" {
		return LeagueCollectResult{}, fmt.Errorf("%w: clan tag is not configured", ErrDependencyUnavailable)
	}

	rawGroup, found, err := s.provider.FetchLeagueGroup(ctx, s.clanTag)
	if err != nil {
		return LeagueCollectResult{}, fmt.Errorf("fetch league group clan=%s: %w", s.clanTag, err)
	}
	if !found {
		s.logger.InfoContext(ctx, "clan is not in a league season", "clan_tag", s.clanTag)
		return LeagueCollectResult{State: leaguewar.GroupStateNotInLeague}, nil
	}

	collectedAt := s.now()
	group := TransformLeagueGroup(rawGroup, collectedAt)
	result := LeagueCollectResult{Season: group.Season, State: group.State}
	if !leaguewar.ShouldCollect(group.State) {
		return result, nil
	}

	tasks := make([]leagueRoundTask, 0, len(group.Rounds)*4)
	for i, round := range group.Rounds {
		for _, warTag := range round {
			warTag = strings.TrimSpace(warTag)
			if warTag == "" || warTag == leaguewar.PlaceholderWarTag {
				continue
			}
			tasks = append(tasks, leagueRoundTask{round: i + 1, warTag: warTag})
		}
	}

	items, failures, err := s.fetchRoundWars(ctx, group, tasks, collectedAt)
	if err != nil {
		return result, err
	}
	result.RoundsFetched = len(tasks)
	result.RoundFailures = failures

	if len(items) > 0 {
		if err := s.wars.UpsertWars(ctx, group, items); err != nil {
			return result, fmt.Errorf("upsert league wars season=%s: %w", group.Season, err)
		}
	}
	result.WarsStored = len(items)
	result.EarliestEndTime = earliestInProgressEnd(items)

	s.logger.InfoContext(ctx, "league sweep finished",
		"season", group.Season,
		"state", group.State,
		"rounds_fetched", result.RoundsFetched,
		"wars_stored", result.WarsStored,
		"round_failures", result.RoundFailures,
	)

	return result, nil
}

func (s *LeagueCollectorService) fetchRoundWars(
	ctx context.Context,
	group leaguewar.Group,
	tasks []leagueRoundTask,
	collectedAt time.Time,
) ([]leaguewar.LeagueWar, int, error) {
	if len(tasks) == 0 {
		return nil, 0, nil
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, 0, fmt.Errorf("create league fetch pool: %w", err)
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		items    []leaguewar.LeagueWar
		failures atomic.Int32
		workers  sync.WaitGroup
	)

	for i, task := range tasks {
		task := task
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			raw, found, fetchErr := s.provider.FetchLeagueWar(ctx, task.warTag)
			if fetchErr != nil {
				failures.Add(1)
				s.logger.WarnContext(ctx, "league round war fetch failed",
					"war_tag", task.warTag,
					"round", task.round,
					"error", fetchErr,
				)
				return
			}
			if !found {
				return
			}

			item, ok := TransformLeagueWar(raw, task.warTag, s.clanTag, group.Season, task.round, collectedAt)
			if !ok {
				return
			}

			mu.Lock()
			items = append(items, item)
			mu.Unlock()
		}); err != nil {
			workers.Done()
			return nil, 0, fmt.Errorf("submit league fetch task: %w", err)
		}

		// Space out submissions so a burst of rounds does not trip the
		// provider's rate limit.
		if s.pause > 0 && i < len(tasks)-1 {
			timer := time.NewTimer(s.pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				workers.Wait()
				return nil, int(failures.Load()), ctx.Err()
			case <-timer.C:
			}
		}
	}

	workers.Wait()

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Round != items[j].Round {
			return items[i].Round < items[j].Round
		}
		return items[i].ID < items[j].ID
	})

	return items, int(failures.Load()), nil
}

func earliestInProgressEnd(items []leaguewar.LeagueWar) time.Time {
	var earliest time.Time
	for _, item := range items {
		if item.State != war.StateInWar || item.EndTime.IsZero() {
			continue
		}
		if earliest.IsZero() || item.EndTime.Before(earliest) {
			earliest = item.EndTime
		}
	}
	return earliest
}
