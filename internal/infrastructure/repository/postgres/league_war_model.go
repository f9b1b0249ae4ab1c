package postgres

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
)

type leagueSeasonRow struct {
	Season      string    `db:"season"`
	State       string    `db:"state"`
	Clans       string    `db:"clans"`
	Rounds      string    `db:"rounds"`
	CollectedAt time.Time `db:"collected_at"`
}

type leagueWarRow struct {
	WarID                string     `db:"war_id"`
	WarTag               string     `db:"war_tag"`
	Season               string     `db:"season"`
	Round                int        `db:"round"`
	State                string     `db:"state"`
	TeamSize             int        `db:"team_size"`
	PreparationStartTime *time.Time `db:"preparation_start_time"`
	StartTime            *time.Time `db:"start_time"`
	EndTime              *time.Time `db:"end_time"`
	Clan                 string     `db:"clan"`
	Opponent             string     `db:"opponent"`
	CollectedAt          time.Time  `db:"collected_at"`
}

type groupClanDoc struct {
	Tag       string `json:"tag"`
	Name      string `json:"name"`
	ClanLevel int    `json:"clanLevel"`
}

func leagueSeasonRowFrom(group leaguewar.Group) (leagueSeasonRow, error) {
	clans := make([]groupClanDoc, 0, len(group.Clans))
	for _, clan := range group.Clans {
		clans = append(clans, groupClanDoc(clan))
	}
	clansJSON, err := jsoniter.MarshalToString(clans)
	if err != nil {
		return leagueSeasonRow{}, fmt.Errorf("marshal group clans: %w", err)
	}
	roundsJSON, err := jsoniter.MarshalToString(group.Rounds)
	if err != nil {
		return leagueSeasonRow{}, fmt.Errorf("marshal group rounds: %w", err)
	}

	return leagueSeasonRow{
		Season:      group.Season,
		State:       group.State,
		Clans:       clansJSON,
		Rounds:      roundsJSON,
		CollectedAt: group.CollectedAt.UTC(),
	}, nil
}

func (r leagueSeasonRow) toGroup() (leaguewar.Group, error) {
	var clanDocs []groupClanDoc
	if r.Clans != "" {
		if err := jsoniter.UnmarshalFromString(r.Clans, &clanDocs); err != nil {
			return leaguewar.Group{}, fmt.Errorf("unmarshal group clans season=%s: %w", r.Season, err)
		}
	}
	var rounds [][]string
	if r.Rounds != "" {
		if err := jsoniter.UnmarshalFromString(r.Rounds, &rounds); err != nil {
			return leaguewar.Group{}, fmt.Errorf("unmarshal group rounds season=%s: %w", r.Season, err)
		}
	}

	clans := make([]leaguewar.GroupClan, 0, len(clanDocs))
	for _, doc := range clanDocs {
		clans = append(clans, leaguewar.GroupClan(doc))
	}

	return leaguewar.Group{
		Season:      r.Season,
		State:       r.State,
		Clans:       clans,
		Rounds:      rounds,
		CollectedAt: r.CollectedAt.UTC(),
	}, nil
}

func leagueWarRowFrom(item leaguewar.LeagueWar) (leagueWarRow, error) {
	clanJSON, err := marshalClanStats(item.Clan)
	if err != nil {
		return leagueWarRow{}, fmt.Errorf("marshal clan: %w", err)
	}
	opponentJSON, err := marshalClanStats(item.Opponent)
	if err != nil {
		return leagueWarRow{}, fmt.Errorf("marshal opponent: %w", err)
	}

	return leagueWarRow{
		WarID:                item.ID,
		WarTag:               item.WarTag,
		Season:               item.Season,
		Round:                item.Round,
		State:                item.State,
		TeamSize:             item.TeamSize,
		PreparationStartTime: optionalTime(item.PreparationStartTime),
		StartTime:            optionalTime(item.StartTime),
		EndTime:              optionalTime(item.EndTime),
		Clan:                 clanJSON,
		Opponent:             opponentJSON,
		CollectedAt:          item.CollectedAt.UTC(),
	}, nil
}

func (r leagueWarRow) toDomain() (leaguewar.LeagueWar, error) {
	clan, err := unmarshalClanStats(r.Clan)
	if err != nil {
		return leaguewar.LeagueWar{}, fmt.Errorf("unmarshal clan war_id=%s: %w", r.WarID, err)
	}
	opponent, err := unmarshalClanStats(r.Opponent)
	if err != nil {
		return leaguewar.LeagueWar{}, fmt.Errorf("unmarshal opponent war_id=%s: %w", r.WarID, err)
	}

	return leaguewar.LeagueWar{
		ID:                   r.WarID,
		WarTag:               r.WarTag,
		Season:               r.Season,
		Round:                r.Round,
		State:                r.State,
		TeamSize:             r.TeamSize,
		PreparationStartTime: timeOrZero(r.PreparationStartTime),
		StartTime:            timeOrZero(r.StartTime),
		EndTime:              timeOrZero(r.EndTime),
		Clan:                 clan,
		Opponent:             opponent,
		CollectedAt:          r.CollectedAt.UTC(),
	}, nil
}
