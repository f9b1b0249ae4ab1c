package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/usecase"
)

func (h *Handler) ListWars(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListWars")
	defer span.End()

	if h.warQueries == nil {
		writeError(ctx, w, fmt.Errorf("%w: war queries are not configured", usecase.ErrDependencyUnavailable))
		return
	}

	wars, err := h.warQueries.ListWars(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list wars failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]warDTO, 0, len(wars))
	for _, item := range wars {
		items = append(items, warToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetWar(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetWar")
	defer span.End()

	if h.warQueries == nil {
		writeError(ctx, w, fmt.Errorf("%w: war queries are not configured", usecase.ErrDependencyUnavailable))
		return
	}

	warID := r.PathValue("warID")
	item, err := h.warQueries.GetWar(ctx, warID)
	if err != nil {
		h.logger.WarnContext(ctx, "get war failed", "war_id", warID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, warToDTO(ctx, item))
}

type warDTO struct {
	ID                   string       `json:"id"`
	State                string       `json:"state"`
	TeamSize             int          `json:"teamSize"`
	AttacksPerMember     int          `json:"attacksPerMember"`
	PreparationStartTime string       `json:"preparationStartTime,omitempty"`
	StartTime            string       `json:"startTime,omitempty"`
	EndTime              string       `json:"endTime,omitempty"`
	Clan                 clanStatsDTO `json:"clan"`
	Opponent             clanStatsDTO `json:"opponent"`
	CollectedAt          string       `json:"collectedAt"`
}

type clanStatsDTO struct {
	Tag                   string      `json:"tag"`
	Name                  string      `json:"name"`
	ClanLevel             int         `json:"clanLevel"`
	Stars                 int         `json:"stars"`
	DestructionPercentage float64     `json:"destructionPercentage"`
	AttacksUsed           int         `json:"attacksUsed"`
	AttacksAvailable      int         `json:"attacksAvailable"`
	Members               []memberDTO `json:"members"`
}

type memberDTO struct {
	Tag                string     `json:"tag"`
	Name               string     `json:"name"`
	TownhallLevel      int        `json:"townhallLevel"`
	MapPosition        int        `json:"mapPosition"`
	OpponentAttacks    int        `json:"opponentAttacks"`
	Attacks            []attackDTO `json:"attacks,omitempty"`
	BestOpponentAttack *attackDTO `json:"bestOpponentAttack,omitempty"`
}

type attackDTO struct {
	AttackerTag           string  `json:"attackerTag"`
	DefenderTag           string  `json:"defenderTag"`
	Stars                 int     `json:"stars"`
	DestructionPercentage float64 `json:"destructionPercentage"`
	Order                 int     `json:"order"`
	Duration              int     `json:"duration"`
}

func warToDTO(ctx context.Context, v war.War) warDTO {
	ctx, span := startSpan(ctx, "httpapi.warToDTO")
	defer span.End()

	return warDTO{
		ID:                   v.ID,
		State:                v.State,
		TeamSize:             v.TeamSize,
		AttacksPerMember:     v.AttacksPerMember,
		PreparationStartTime: formatTime(v.PreparationStartTime),
		StartTime:            formatTime(v.StartTime),
		EndTime:              formatTime(v.EndTime),
		Clan:                 clanStatsToDTO(ctx, v.Clan),
		Opponent:             clanStatsToDTO(ctx, v.Opponent),
		CollectedAt:          formatTime(v.CollectedAt),
	}
}

func clanStatsToDTO(ctx context.Context, v war.ClanStats) clanStatsDTO {
	_, span := startSpan(ctx, "httpapi.clanStatsToDTO")
	defer span.End()

	members := make([]memberDTO, 0, len(v.Members))
	for _, member := range v.Members {
		members = append(members, memberToDTO(member))
	}

	return clanStatsDTO{
		Tag:                   v.Tag,
		Name:                  v.Name,
		ClanLevel:             v.ClanLevel,
		Stars:                 v.Stars,
		DestructionPercentage: v.DestructionPercentage,
		AttacksUsed:           v.AttacksUsed,
		AttacksAvailable:      v.AttacksAvailable,
		Members:               members,
	}
}

func memberToDTO(v war.Member) memberDTO {
	attacks := make([]attackDTO, 0, len(v.Attacks))
	for _, attack := range v.Attacks {
		attacks = append(attacks, attackDTO(attack))
	}

	var best *attackDTO
	if v.BestOpponentAttack != nil {
		dto := attackDTO(*v.BestOpponentAttack)
		best = &dto
	}

	return memberDTO{
		Tag:                v.Tag,
		Name:               v.Name,
		TownhallLevel:      v.TownhallLevel,
		MapPosition:        v.MapPosition,
		OpponentAttacks:    v.OpponentAttacks,
		Attacks:            attacks,
		BestOpponentAttack: best,
	}
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
