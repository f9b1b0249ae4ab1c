package postgres

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/clanforge/war-tracker/internal/domain/war"
)

type warRow struct {
	WarID                string     `db:"war_id"`
	State                string     `db:"state"`
	TeamSize             int        `db:"team_size"`
	AttacksPerMember     int        `db:"attacks_per_member"`
	PreparationStartTime *time.Time `db:"preparation_start_time"`
	StartTime            *time.Time `db:"start_time"`
	EndTime              *time.Time `db:"end_time"`
	Clan                 string     `db:"clan"`
	Opponent             string     `db:"opponent"`
	CollectedAt          time.Time  `db:"collected_at"`
}

// clanDoc is the JSONB shape of one war side. Nested rosters do not need
// relational queries, so they stay a document.
type clanDoc struct {
	Tag                   string      `json:"tag"`
	Name                  string      `json:"name"`
	ClanLevel             int         `json:"clanLevel"`
	Stars                 int         `json:"stars"`
	DestructionPercentage float64     `json:"destructionPercentage"`
	AttacksUsed           int         `json:"attacksUsed"`
	AttacksAvailable      int         `json:"attacksAvailable"`
	Members               []memberDoc `json:"members"`
}

type memberDoc struct {
	Tag                string      `json:"tag"`
	Name               string      `json:"name"`
	TownhallLevel      int         `json:"townhallLevel"`
	MapPosition        int         `json:"mapPosition"`
	OpponentAttacks    int         `json:"opponentAttacks"`
	Attacks            []attackDoc `json:"attacks,omitempty"`
	BestOpponentAttack *attackDoc  `json:"bestOpponentAttack,omitempty"`
}

type attackDoc struct {
	AttackerTag           string  `json:"attackerTag"`
	DefenderTag           string  `json:"defenderTag"`
	Stars                 int     `json:"stars"`
	DestructionPercentage float64 `json:"destructionPercentage"`
	Order                 int     `json:"order"`
	Duration              int     `json:"duration"`
}

func marshalClanStats(stats war.ClanStats) (string, error) {
	members := make([]memberDoc, 0, len(stats.Members))
	for _, member := range stats.Members {
		attacks := make([]attackDoc, 0, len(member.Attacks))
		for _, attack := range member.Attacks {
			attacks = append(attacks, attackDoc(attack))
		}
		doc := memberDoc{
			Tag:             member.Tag,
			Name:            member.Name,
			TownhallLevel:   member.TownhallLevel,
			MapPosition:     member.MapPosition,
			OpponentAttacks: member.OpponentAttacks,
			Attacks:         attacks,
		}
		if member.BestOpponentAttack != nil {
			best := attackDoc(*member.BestOpponentAttack)
			doc.BestOpponentAttack = &best
		}
		members = append(members, doc)
	}

	raw, err := jsoniter.Marshal(clanDoc{
		Tag:                   stats.Tag,
		Name:                  stats.Name,
		ClanLevel:             stats.ClanLevel,
		Stars:                 stats.Stars,
		DestructionPercentage: stats.DestructionPercentage,
		AttacksUsed:           stats.AttacksUsed,
		AttacksAvailable:      stats.AttacksAvailable,
		Members:               members,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unmarshalClanStats(raw string) (war.ClanStats, error) {
	var doc clanDoc
	if raw != "" {
		if err := jsoniter.UnmarshalFromString(raw, &doc); err != nil {
			return war.ClanStats{}, err
		}
	}

	members := make([]war.Member, 0, len(doc.Members))
	for _, item := range doc.Members {
		attacks := make([]war.Attack, 0, len(item.Attacks))
		for _, attack := range item.Attacks {
			attacks = append(attacks, war.Attack(attack))
		}
		member := war.Member{
			Tag:             item.Tag,
			Name:            item.Name,
			TownhallLevel:   item.TownhallLevel,
			MapPosition:     item.MapPosition,
			OpponentAttacks: item.OpponentAttacks,
			Attacks:         attacks,
		}
		if item.BestOpponentAttack != nil {
			best := war.Attack(*item.BestOpponentAttack)
			member.BestOpponentAttack = &best
		}
		members = append(members, member)
	}

	return war.ClanStats{
		Tag:                   doc.Tag,
		Name:                  doc.Name,
		ClanLevel:             doc.ClanLevel,
		Stars:                 doc.Stars,
		DestructionPercentage: doc.DestructionPercentage,
		AttacksUsed:           doc.AttacksUsed,
		AttacksAvailable:      doc.AttacksAvailable,
		Members:               members,
	}, nil
}

func warRowFrom(item war.War) (warRow, error) {
	clanJSON, err := marshalClanStats(item.Clan)
	if err != nil {
		return warRow{}, fmt.Errorf("marshal clan: %w", err)
	}
	opponentJSON, err := marshalClanStats(item.Opponent)
	if err != nil {
		return warRow{}, fmt.Errorf("marshal opponent: %w", err)
	}

	return warRow{
		WarID:                item.ID,
		State:                item.State,
		TeamSize:             item.TeamSize,
		AttacksPerMember:     item.AttacksPerMember,
		PreparationStartTime: optionalTime(item.PreparationStartTime),
		StartTime:            optionalTime(item.StartTime),
		EndTime:              optionalTime(item.EndTime),
		Clan:                 clanJSON,
		Opponent:             opponentJSON,
		CollectedAt:          item.CollectedAt.UTC(),
	}, nil
}

func (r warRow) toDomain() (war.War, error) {
	clan, err := unmarshalClanStats(r.Clan)
	if err != nil {
		return war.War{}, fmt.Errorf("unmarshal clan war_id=%s: %w", r.WarID, err)
	}
	opponent, err := unmarshalClanStats(r.Opponent)
	if err != nil {
		return war.War{}, fmt.Errorf("unmarshal opponent war_id=%s: %w", r.WarID, err)
	}

	return war.War{
		ID:                   r.WarID,
		State:                r.State,
		TeamSize:             r.TeamSize,
		AttacksPerMember:     r.AttacksPerMember,
		PreparationStartTime: timeOrZero(r.PreparationStartTime),
		StartTime:            timeOrZero(r.StartTime),
		EndTime:              timeOrZero(r.EndTime),
		Clan:                 clan,
		Opponent:             opponent,
		CollectedAt:          r.CollectedAt.UTC(),
	}, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
