package file

import (
	"time"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/domain/war"
)

// documentVersion guards the on-disk layout. A file written by a different
// layout is ignored rather than half-parsed.
const documentVersion = 1

type warDocument struct {
	Version     int         `json:"version"`
	LastUpdated time.Time   `json:"lastUpdated"`
	Wars        []warRecord `json:"wars"`
}

type leagueDocument struct {
	Version     int            `json:"version"`
	LastUpdated time.Time      `json:"lastUpdated"`
	Seasons     []seasonRecord `json:"seasons"`
}

type warRecord struct {
	ID                   string          `json:"id"`
	State                string          `json:"state"`
	TeamSize             int             `json:"teamSize"`
	AttacksPerMember     int             `json:"attacksPerMember"`
	PreparationStartTime time.Time       `json:"preparationStartTime"`
	StartTime            time.Time       `json:"startTime"`
	EndTime              time.Time       `json:"endTime"`
	Clan                 clanStatsRecord `json:"clan"`
	Opponent             clanStatsRecord `json:"opponent"`
	CollectedAt          time.Time       `json:"collectedAt"`
}

type leagueWarRecord struct {
	ID                   string          `json:"id"`
	WarTag               string          `json:"warTag,omitempty"`
	Season               string          `json:"season"`
	Round                int             `json:"round"`
	State                string          `json:"state"`
	TeamSize             int             `json:"teamSize"`
	PreparationStartTime time.Time       `json:"preparationStartTime"`
	StartTime            time.Time       `json:"startTime"`
	EndTime              time.Time       `json:"endTime"`
	Clan                 clanStatsRecord `json:"clan"`
	Opponent             clanStatsRecord `json:"opponent"`
	CollectedAt          time.Time       `json:"collectedAt"`
}

type seasonRecord struct {
	Season      string            `json:"season"`
	State       string            `json:"state"`
	Clans       []groupClanRecord `json:"clans"`
	Rounds      [][]string        `json:"rounds,omitempty"`
	Wars        []leagueWarRecord `json:"wars"`
	CollectedAt time.Time         `json:"collectedAt"`
}

type groupClanRecord struct {
	Tag       string `json:"tag"`
	Name      string `json:"name"`
	ClanLevel int    `json:"clanLevel"`
}

type clanStatsRecord struct {
	Tag                   string         `json:"tag"`
	Name                  string         `json:"name"`
	ClanLevel             int            `json:"clanLevel"`
	Stars                 int            `json:"stars"`
	DestructionPercentage float64        `json:"destructionPercentage"`
	AttacksUsed           int            `json:"attacksUsed"`
	AttacksAvailable      int            `json:"attacksAvailable"`
	Members               []memberRecord `json:"members"`
}

type memberRecord struct {
	Tag                string         `json:"tag"`
	Name               string         `json:"name"`
	TownhallLevel      int            `json:"townhallLevel"`
	MapPosition        int            `json:"mapPosition"`
	OpponentAttacks    int            `json:"opponentAttacks"`
	Attacks            []attackRecord `json:"attacks,omitempty"`
	BestOpponentAttack *attackRecord  `json:"bestOpponentAttack,omitempty"`
}

type attackRecord struct {
	AttackerTag           string  `json:"attackerTag"`
	DefenderTag           string  `json:"defenderTag"`
	Stars                 int     `json:"stars"`
	DestructionPercentage float64 `json:"destructionPercentage"`
	Order                 int     `json:"order"`
	Duration              int     `json:"duration"`
}

func warRecordFrom(item war.War) warRecord {
	return warRecord{
		ID:                   item.ID,
		State:                item.State,
		TeamSize:             item.TeamSize,
		AttacksPerMember:     item.AttacksPerMember,
		PreparationStartTime: item.PreparationStartTime,
		StartTime:            item.StartTime,
		EndTime:              item.EndTime,
		Clan:                 clanStatsRecordFrom(item.Clan),
		Opponent:             clanStatsRecordFrom(item.Opponent),
		CollectedAt:          item.CollectedAt,
	}
}

func (r warRecord) toDomain() war.War {
	return war.War{
		ID:                   r.ID,
		State:                r.State,
		TeamSize:             r.TeamSize,
		AttacksPerMember:     r.AttacksPerMember,
		PreparationStartTime: r.PreparationStartTime,
		StartTime:            r.StartTime,
		EndTime:              r.EndTime,
		Clan:                 r.Clan.toDomain(),
		Opponent:             r.Opponent.toDomain(),
		CollectedAt:          r.CollectedAt,
	}
}

func leagueWarRecordFrom(item leaguewar.LeagueWar) leagueWarRecord {
	return leagueWarRecord{
		ID:                   item.ID,
		WarTag:               item.WarTag,
		Season:               item.Season,
		Round:                item.Round,
		State:                item.State,
		TeamSize:             item.TeamSize,
		PreparationStartTime: item.PreparationStartTime,
		StartTime:            item.StartTime,
		EndTime:              item.EndTime,
		Clan:                 clanStatsRecordFrom(item.Clan),
		Opponent:             clanStatsRecordFrom(item.Opponent),
		CollectedAt:          item.CollectedAt,
	}
}

func (r leagueWarRecord) toDomain() leaguewar.LeagueWar {
	return leaguewar.LeagueWar{
		ID:                   r.ID,
		WarTag:               r.WarTag,
		Season:               r.Season,
		Round:                r.Round,
		State:                r.State,
		TeamSize:             r.TeamSize,
		PreparationStartTime: r.PreparationStartTime,
		StartTime:            r.StartTime,
		EndTime:              r.EndTime,
		Clan:                 r.Clan.toDomain(),
		Opponent:             r.Opponent.toDomain(),
		CollectedAt:          r.CollectedAt,
	}
}

func clanStatsRecordFrom(stats war.ClanStats) clanStatsRecord {
	members := make([]memberRecord, 0, len(stats.Members))
	for _, member := range stats.Members {
		members = append(members, memberRecordFrom(member))
	}
	return clanStatsRecord{
		Tag:                   stats.Tag,
		Name:                  stats.Name,
		ClanLevel:             stats.ClanLevel,
		Stars:                 stats.Stars,
		DestructionPercentage: stats.DestructionPercentage,
		AttacksUsed:           stats.AttacksUsed,
		AttacksAvailable:      stats.AttacksAvailable,
		Members:               members,
	}
}

func (r clanStatsRecord) toDomain() war.ClanStats {
	members := make([]war.Member, 0, len(r.Members))
	for _, member := range r.Members {
		members = append(members, member.toDomain())
	}
	return war.ClanStats{
		Tag:                   r.Tag,
		Name:                  r.Name,
		ClanLevel:             r.ClanLevel,
		Stars:                 r.Stars,
		DestructionPercentage: r.DestructionPercentage,
		AttacksUsed:           r.AttacksUsed,
		AttacksAvailable:      r.AttacksAvailable,
		Members:               members,
	}
}

func memberRecordFrom(member war.Member) memberRecord {
	attacks := make([]attackRecord, 0, len(member.Attacks))
	for _, attack := range member.Attacks {
		attacks = append(attacks, attackRecord(attack))
	}
	record := memberRecord{
		Tag:             member.Tag,
		Name:            member.Name,
		TownhallLevel:   member.TownhallLevel,
		MapPosition:     member.MapPosition,
		OpponentAttacks: member.OpponentAttacks,
		Attacks:         attacks,
	}
	if member.BestOpponentAttack != nil {
		best := attackRecord(*member.BestOpponentAttack)
		record.BestOpponentAttack = &best
	}
	return record
}

func (r memberRecord) toDomain() war.Member {
	attacks := make([]war.Attack, 0, len(r.Attacks))
	for _, attack := range r.Attacks {
		attacks = append(attacks, war.Attack(attack))
	}
	member := war.Member{
		Tag:             r.Tag,
		Name:            r.Name,
		TownhallLevel:   r.TownhallLevel,
		MapPosition:     r.MapPosition,
		OpponentAttacks: r.OpponentAttacks,
		Attacks:         attacks,
	}
	if r.BestOpponentAttack != nil {
		best := war.Attack(*r.BestOpponentAttack)
		member.BestOpponentAttack = &best
	}
	return member
}
