package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/usecase"
)

func (h *Handler) ListLeagueSeasons(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLeagueSeasons")
	defer span.End()

	if h.leagueQueries == nil {
		writeError(ctx, w, fmt.Errorf("%w: league queries are not configured", usecase.ErrDependencyUnavailable))
		return
	}

	seasons, err := h.leagueQueries.ListSeasons(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list league seasons failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]leagueSeasonDTO, 0, len(seasons))
	for _, season := range seasons {
		items = append(items, leagueSeasonToDTO(ctx, season))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListLeagueSeasonWars(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLeagueSeasonWars")
	defer span.End()

	if h.leagueQueries == nil {
		writeError(ctx, w, fmt.Errorf("%w: league queries are not configured", usecase.ErrDependencyUnavailable))
		return
	}

	season := r.PathValue("season")
	wars, err := h.leagueQueries.SeasonWars(ctx, season)
	if err != nil {
		h.logger.WarnContext(ctx, "list league season wars failed", "season", season, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]leagueWarDTO, 0, len(wars))
	for _, item := range wars {
		items = append(items, leagueWarToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

type leagueSeasonDTO struct {
	Season             string         `json:"season"`
	State              string         `json:"state"`
	ParticipatingClans []groupClanDTO `json:"participatingClans"`
	Wars               int            `json:"wars"`
	CollectedAt        string         `json:"collectedAt"`
}

type groupClanDTO struct {
	Tag       string `json:"tag"`
	Name      string `json:"name"`
	ClanLevel int    `json:"clanLevel"`
}

type leagueWarDTO struct {
	ID                   string       `json:"id"`
	WarTag               string       `json:"warTag,omitempty"`
	Season               string       `json:"season"`
	Round                int          `json:"round"`
	State                string       `json:"state"`
	TeamSize             int          `json:"teamSize"`
	PreparationStartTime string       `json:"preparationStartTime,omitempty"`
	StartTime            string       `json:"startTime,omitempty"`
	EndTime              string       `json:"endTime,omitempty"`
	Clan                 clanStatsDTO `json:"clan"`
	Opponent             clanStatsDTO `json:"opponent"`
	CollectedAt          string       `json:"collectedAt"`
}

func leagueSeasonToDTO(ctx context.Context, v leaguewar.Season) leagueSeasonDTO {
	_, span := startSpan(ctx, "httpapi.leagueSeasonToDTO")
	defer span.End()

	clans := make([]groupClanDTO, 0, len(v.ParticipatingClans))
	for _, clan := range v.ParticipatingClans {
		clans = append(clans, groupClanDTO(clan))
	}

	return leagueSeasonDTO{
		Season:             v.Season,
		State:              v.State,
		ParticipatingClans: clans,
		Wars:               len(v.Wars),
		CollectedAt:        formatTime(v.CollectedAt),
	}
}

func leagueWarToDTO(ctx context.Context, v leaguewar.LeagueWar) leagueWarDTO {
	ctx, span := startSpan(ctx, "httpapi.leagueWarToDTO")
	defer span.End()

	return leagueWarDTO{
		ID:                   v.ID,
		WarTag:               v.WarTag,
		Season:               v.Season,
		Round:                v.Round,
		State:                v.State,
		TeamSize:             v.TeamSize,
		PreparationStartTime: formatTime(v.PreparationStartTime),
		StartTime:            formatTime(v.StartTime),
		EndTime:              formatTime(v.EndTime),
		Clan:                 clanStatsToDTO(ctx, v.Clan),
		Opponent:             clanStatsToDTO(ctx, v.Opponent),
		CollectedAt:          formatTime(v.CollectedAt),
	}
}
