package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/domain/prediction"
	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

type PredictionInput struct {
	Sort prediction.SortOption
	// RecentDays overrides the configured recent window when positive.
	RecentDays int
}

// PredictionService scores each clan member's attack participation across
// every stored war, standalone and league.
type PredictionService struct {
	wars   war.Repository
	league leaguewar.Repository
	cfg    prediction.Config
	logger *logging.Logger
	now    func() time.Time
}

func NewPredictionService(
	wars war.Repository,
	league leaguewar.Repository,
	cfg prediction.Config,
	logger *logging.Logger,
) *PredictionService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == (prediction.Config{}) {
		cfg = prediction.DefaultConfig()
	}

	return &PredictionService{
		wars:   wars,
		league: league,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// playerTally accumulates one player's attack slots across wars.
type playerTally struct {
	tag  string
	name string

	totalWars       int
	attacksUsed     int
	attacksOffered  int
	recentWars      int
	recentUsed      int
	recentAvailable int
}

func (s *PredictionService) Compute(ctx context.Context, input PredictionInput) ([]prediction.PlayerPrediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.Compute")
	defer span.End()

	if s.wars == nil || s.league == nil {
		return nil, fmt.Errorf("%w: prediction service is not fully configured", ErrDependencyUnavailable)
	}

	sortBy := input.Sort
	if sortBy == "" {
		sortBy = prediction.SortByScore
	}
	recentDays := input.RecentDays
	if recentDays <= 0 {
		recentDays = s.cfg.RecentDays
	}
	recentCutoff := s.now().AddDate(0, 0, -recentDays)

	tallies := make(map[string]*playerTally)

	standalone, err := s.wars.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wars: %w", err)
	}
	for _, item := range standalone {
		perMember := item.AttacksPerMember
		if perMember <= 0 {
			perMember = 2
		}
		tallyWar(tallies, item.Clan.Members, perMember, warHappenedAfter(item.EndTime, item.CollectedAt, recentCutoff))
	}

	seasons, err := s.league.ListSeasons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list league seasons: %w", err)
	}
	for _, season := range seasons {
		items, _, err := s.league.ListWarsBySeason(ctx, season.Season)
		if err != nil {
			return nil, fmt.Errorf("list league wars season=%s: %w", season.Season, err)
		}
		for _, item := range items {
			tallyWar(tallies, item.Clan.Members, 1, warHappenedAfter(item.EndTime, item.CollectedAt, recentCutoff))
		}
	}

	out := make([]prediction.PlayerPrediction, 0, len(tallies))
	for _, tally := range tallies {
		out = append(out, s.scoreTally(tally))
	}
	sortPredictions(out, sortBy)

	s.logger.DebugContext(ctx, "predictions computed",
		"players", len(out),
		"recent_days", recentDays,
		"sort", string(sortBy),
	)

	return out, nil
}

func tallyWar(tallies map[string]*playerTally, members []war.Member, perMember int, recent bool) {
	for _, member := range members {
		key := strings.ToUpper(strings.TrimSpace(member.Tag))
		if key == "" {
			continue
		}
		tally, ok := tallies[key]
		if !ok {
			tally = &playerTally{tag: member.Tag, name: member.Name}
			tallies[key] = tally
		}
		if tally.name == "" {
			tally.name = member.Name
		}

		used := len(member.Attacks)
		if used > perMember {
			used = perMember
		}

		tally.totalWars++
		tally.attacksUsed += used
		tally.attacksOffered += perMember
		if recent {
			tally.recentWars++
			tally.recentUsed += used
			tally.recentAvailable += perMember
		}
	}
}

// warHappenedAfter prefers the war's end time; wars stored before their end
// time was known fall back to the collection timestamp.
func warHappenedAfter(endTime, collectedAt time.Time, cutoff time.Time) bool {
	when := endTime
	if when.IsZero() {
		when = collectedAt
	}
	return !when.IsZero() && when.After(cutoff)
}

func (s *PredictionService) scoreTally(tally *playerTally) prediction.PlayerPrediction {
	allTime := rateOf(tally.attacksUsed, tally.attacksOffered)

	recent := prediction.RecentRateUnknown
	if tally.recentWars > 0 {
		recent = rateOf(tally.recentUsed, tally.recentAvailable)
	}

	score := allTime
	if recent != prediction.RecentRateUnknown {
		score = s.cfg.OverallWeight*allTime + s.cfg.RecentWeight*recent
	}

	return prediction.PlayerPrediction{
		Tag:              tally.tag,
		Name:             tally.name,
		TotalWars:        tally.totalWars,
		RecentWars:       tally.recentWars,
		AttacksUsed:      tally.attacksUsed,
		AttacksAvailable: tally.attacksOffered,
		AllTimeRate:      allTime,
		RecentRate:       recent,
		Score:            score,
		Confidence:       s.cfg.ConfidenceFor(tally.totalWars),
		Reliability:      s.cfg.ReliabilityFor(score),
	}
}

func rateOf(used, available int) float64 {
	if available <= 0 {
		return 0
	}
	return float64(used) / float64(available) * 100
}

func sortPredictions(items []prediction.PlayerPrediction, sortBy prediction.SortOption) {
	byName := func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	}

	switch sortBy {
	case prediction.SortByName:
		sort.SliceStable(items, byName)
	case prediction.SortByRecent:
		sort.SliceStable(items, func(i, j int) bool {
			iUnknown := items[i].RecentRate == prediction.RecentRateUnknown
			jUnknown := items[j].RecentRate == prediction.RecentRateUnknown
			if iUnknown != jUnknown {
				return jUnknown
			}
			if items[i].RecentRate != items[j].RecentRate {
				return items[i].RecentRate > items[j].RecentRate
			}
			return byName(i, j)
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Score != items[j].Score {
				return items[i].Score > items[j].Score
			}
			return byName(i, j)
		})
	}
}
