package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

// LeagueQueryService serves read and maintenance access to the league store.
type LeagueQueryService struct {
	league leaguewar.Repository
	logger *logging.Logger
}

func NewLeagueQueryService(league leaguewar.Repository, logger *logging.Logger) *LeagueQueryService {
	if logger == nil {
		logger = logging.Default()
	}

	return &LeagueQueryService{league: league, logger: logger}
}

// ListSeasons returns every stored league season, most recent season first.
func (s *LeagueQueryService) ListSeasons(ctx context.Context) ([]leaguewar.Season, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueQueryService.ListSeasons")
	defer span.End()

	if s.league == nil {
		return nil, fmt.Errorf("%w: league repository is not configured", ErrDependencyUnavailable)
	}

	items, err := s.league.ListSeasons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list league seasons: %w", err)
	}

	return items, nil
}

// SeasonWars returns one season's round wars, round ascending.
func (s *LeagueQueryService) SeasonWars(ctx context.Context, season string) ([]leaguewar.LeagueWar, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueQueryService.SeasonWars")
	defer span.End()

	if s.league == nil {
		return nil, fmt.Errorf("%w: league repository is not configured", ErrDependencyUnavailable)
	}

	season = strings.TrimSpace(season)
	if season == "" {
		return nil, fmt.Errorf("%w: season is required", ErrInvalidInput)
	}

	items, found, err := s.league.ListWarsBySeason(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("list league wars season=%s: %w", season, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: league season %s", ErrNotFound, season)
	}

	return items, nil
}

// Dedupe collapses logical duplicates across all stored seasons and reports
// how many records were removed. Safe to run repeatedly.
func (s *LeagueQueryService) Dedupe(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueQueryService.Dedupe")
	defer span.End()

	if s.league == nil {
		return 0, fmt.Errorf("%w: league repository is not configured", ErrDependencyUnavailable)
	}

	removed, err := s.league.Dedupe(ctx)
	if err != nil {
		return removed, fmt.Errorf("dedupe league wars: %w", err)
	}

	if removed > 0 {
		s.logger.InfoContext(ctx, "league duplicates removed", "removed", removed)
	}
	return removed, nil
}
