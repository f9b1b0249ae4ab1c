package usecase

import (
	"context"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

// StorageStats is the combined health snapshot of both stores.
type StorageStats struct {
	Wars   war.StoreStats
	League leaguewar.StoreStats
}

type StorageStatsService struct {
	wars   war.Repository
	league leaguewar.Repository
	logger *logging.Logger
}

func NewStorageStatsService(wars war.Repository, league leaguewar.Repository, logger *logging.Logger) *StorageStatsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StorageStatsService{wars: wars, league: league, logger: logger}
}

// Stats never fails; repositories degrade to zero counts on read trouble.
func (s *StorageStatsService) Stats(ctx context.Context) StorageStats {
	ctx, span := startUsecaseSpan(ctx, "usecase.StorageStatsService.Stats")
	defer span.End()

	out := StorageStats{}
	if s.wars != nil {
		out.Wars = s.wars.Stats(ctx)
	}
	if s.league != nil {
		out.League = s.league.Stats(ctx)
	}
	return out
}
