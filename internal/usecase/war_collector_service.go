package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

// WarCollectResult is what one standalone war sweep observed. EndTime is
// carried whenever the provider reported a parseable end time so the
// scheduler can arm its end-of-war one-shot.
type WarCollectResult struct {
	State   string
	WarID   string
	Stored  bool
	EndTime time.Time
}

type WarCollectorService struct {
	provider WarProvider
	wars     war.Repository
	clanTag  string
	logger   *logging.Logger
	now      func() time.Time
}

func NewWarCollectorService(
	provider WarProvider,
	wars war.Repository,
	clanTag string,
	logger *logging.Logger,
) *WarCollectorService {
	if logger == nil {
		logger = logging.Default()
	}

	return &WarCollectorService{
		provider: provider,
		wars:     wars,
		clanTag:  strings.TrimSpace(clanTag),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Collect fetches the clan's current war and persists it when the state
// carries attack data. Preparation wars are observed but not stored.
func (s *WarCollectorService) Collect(ctx context.Context) (WarCollectResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WarCollectorService.Collect")
	defer span.End()

	if s.provider == nil || s.wars == nil {
		return WarCollectResult{}, fmt.Errorf("%w: war collector is not fully configured", ErrDependencyUnavailable)
	}
	if s.clanTag == "" {
		return WarCollectResult{}, fmt.Errorf("%w: clan tag is not configured", ErrDependencyUnavailable)
	}

	raw, found, err := s.provider.FetchCurrentWar(ctx, s.clanTag)
	if err != nil {
		return WarCollectResult{}, fmt.Errorf("fetch current war clan=%s: %w", s.clanTag, err)
	}
	if !found {
		s.logger.InfoContext(ctx, "clan is not in a war", "clan_tag", s.clanTag)
		return WarCollectResult{State: war.StateNotInWar}, nil
	}

	state := war.NormalizeState(raw.State)
	result := WarCollectResult{State: state}
	if state == war.StateNotInWar {
		return result, nil
	}

	item := TransformWar(raw, s.clanTag, s.now())
	result.EndTime = item.EndTime

	if !war.ShouldCollect(state) {
		s.logger.InfoContext(ctx, "war observed but not stored",
			"clan_tag", s.clanTag,
			"state", state,
			"end_time", item.EndTime,
		)
		return result, nil
	}

	if err := s.wars.Upsert(ctx, item); err != nil {
		return result, fmt.Errorf("upsert war id=%s: %w", item.ID, err)
	}

	result.WarID = item.ID
	result.Stored = true
	s.logger.InfoContext(ctx, "war stored",
		"war_id", item.ID,
		"state", state,
		"clan_stars", item.Clan.Stars,
		"opponent_stars", item.Opponent.Stars,
	)

	return result, nil
}
