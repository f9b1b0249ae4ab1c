package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/clanforge/war-tracker/internal/domain/prediction"
	"github.com/clanforge/war-tracker/internal/usecase"
)

type predictionQueryRequest struct {
	Sort       string `validate:"omitempty,oneof=score name recent"`
	RecentDays int    `validate:"gte=0,lte=3650"`
}

func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPredictions")
	defer span.End()

	if h.predictions == nil {
		writeError(ctx, w, fmt.Errorf("%w: prediction service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	query := r.URL.Query()
	req := predictionQueryRequest{Sort: strings.ToLower(strings.TrimSpace(query.Get("sort")))}

	if raw := strings.TrimSpace(query.Get("recentDays")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: recentDays must be an integer", usecase.ErrInvalidInput))
			return
		}
		req.RecentDays = days
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	sortBy, ok := prediction.ParseSortOption(req.Sort)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: unknown sort option %q", usecase.ErrInvalidInput, req.Sort))
		return
	}

	items, err := h.predictions.Compute(ctx, usecase.PredictionInput{
		Sort:       sortBy,
		RecentDays: req.RecentDays,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "compute predictions failed", "sort", sortBy, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]playerPredictionDTO, 0, len(items))
	for _, item := range items {
		out = append(out, playerPredictionToDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

type playerPredictionDTO struct {
	Tag              string  `json:"tag"`
	Name             string  `json:"name"`
	TotalWars        int     `json:"totalWars"`
	RecentWars       int     `json:"recentWars"`
	AttacksUsed      int     `json:"attacksUsed"`
	AttacksAvailable int     `json:"attacksAvailable"`
	AllTimeRate      float64 `json:"allTimeRate"`
	// RecentRate is null when the player has no wars inside the window.
	RecentRate  *float64 `json:"recentRate"`
	Score       float64  `json:"score"`
	Confidence  string   `json:"confidence"`
	Reliability string   `json:"reliability"`
}

func playerPredictionToDTO(v prediction.PlayerPrediction) playerPredictionDTO {
	var recent *float64
	if v.RecentRate != prediction.RecentRateUnknown {
		rate := v.RecentRate
		recent = &rate
	}

	return playerPredictionDTO{
		Tag:              v.Tag,
		Name:             v.Name,
		TotalWars:        v.TotalWars,
		RecentWars:       v.RecentWars,
		AttacksUsed:      v.AttacksUsed,
		AttacksAvailable: v.AttacksAvailable,
		AllTimeRate:      v.AllTimeRate,
		RecentRate:       recent,
		Score:            v.Score,
		Confidence:       string(v.Confidence),
		Reliability:      v.Reliability,
	}
}
