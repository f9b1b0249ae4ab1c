package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

// WarQueryService serves read access to the standalone war store.
type WarQueryService struct {
	wars   war.Repository
	logger *logging.Logger
}

func NewWarQueryService(wars war.Repository, logger *logging.Logger) *WarQueryService {
	if logger == nil {
		logger = logging.Default()
	}

	return &WarQueryService{wars: wars, logger: logger}
}

// ListWars returns every stored war, newest first.
func (s *WarQueryService) ListWars(ctx context.Context) ([]war.War, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WarQueryService.ListWars")
	defer span.End()

	if s.wars == nil {
		return nil, fmt.Errorf("%w: war repository is not configured", ErrDependencyUnavailable)
	}

	items, err := s.wars.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wars: %w", err)
	}

	return items, nil
}

func (s *WarQueryService) GetWar(ctx context.Context, warID string) (war.War, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.WarQueryService.GetWar")
	defer span.End()

	if s.wars == nil {
		return war.War{}, fmt.Errorf("%w: war repository is not configured", ErrDependencyUnavailable)
	}

	warID = strings.TrimSpace(warID)
	if warID == "" {
		return war.War{}, fmt.Errorf("%w: war id is required", ErrInvalidInput)
	}

	item, exists, err := s.wars.GetByID(ctx, warID)
	if err != nil {
		return war.War{}, fmt.Errorf("get war id=%s: %w", warID, err)
	}
	if !exists {
		return war.War{}, fmt.Errorf("%w: war %s", ErrNotFound, warID)
	}

	return item, nil
}
