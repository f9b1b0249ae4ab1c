package httpapi

import (
	"fmt"
	"net/http"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/usecase"
)

type storageStatsDTO struct {
	Wars   war.StoreStats       `json:"wars"`
	League leaguewar.StoreStats `json:"league"`
}

func (h *Handler) GetStorageStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetStorageStats")
	defer span.End()

	if h.storageStats == nil {
		writeError(ctx, w, fmt.Errorf("%w: storage stats service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	stats := h.storageStats.Stats(ctx)
	writeSuccess(ctx, w, http.StatusOK, storageStatsDTO{
		Wars:   stats.Wars,
		League: stats.League,
	})
}
