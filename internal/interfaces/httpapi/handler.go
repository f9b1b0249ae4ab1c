package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/clanforge/war-tracker/internal/domain/jobscheduler"
	idgen "github.com/clanforge/war-tracker/internal/platform/id"
	"github.com/clanforge/war-tracker/internal/platform/logging"
	"github.com/clanforge/war-tracker/internal/usecase"
)

type Handler struct {
	warQueries      *usecase.WarQueryService
	leagueQueries   *usecase.LeagueQueryService
	predictions     *usecase.PredictionService
	storageStats    *usecase.StorageStatsService
	scheduler       *usecase.SchedulerService
	jobDispatchRepo jobscheduler.Repository
	logger          *logging.Logger
	validator       *validator.Validate
	idGen           idgen.Generator
}

func NewHandler(
	warQueries *usecase.WarQueryService,
	leagueQueries *usecase.LeagueQueryService,
	predictions *usecase.PredictionService,
	storageStats *usecase.StorageStatsService,
	scheduler *usecase.SchedulerService,
	jobDispatchRepo jobscheduler.Repository,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		warQueries:      warQueries,
		leagueQueries:   leagueQueries,
		predictions:     predictions,
		storageStats:    storageStats,
		scheduler:       scheduler,
		jobDispatchRepo: jobDispatchRepo,
		logger:          logger,
		validator:       validator.New(),
		idGen:           idgen.NewRandomGenerator(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
