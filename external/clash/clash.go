package clash

import "github.com/clanforge/war-tracker/internal/usecase"

// Wire payloads as the clan war API returns them. Mapping into the usecase
// provider types happens here so the rest of the service never sees wire
// field names.

type warPayload struct {
	State                string         `json:"state"`
	TeamSize             int            `json:"teamSize"`
	AttacksPerMember     int            `json:"attacksPerMember"`
	PreparationStartTime string         `json:"preparationStartTime"`
	StartTime            string         `json:"startTime"`
	EndTime              string         `json:"endTime"`
	Clan                 warClanPayload `json:"clan"`
	Opponent             warClanPayload `json:"opponent"`
}

type warClanPayload struct {
	Tag                   string             `json:"tag"`
	Name                  string             `json:"name"`
	ClanLevel             int                `json:"clanLevel"`
	Stars                 int                `json:"stars"`
	DestructionPercentage float64            `json:"destructionPercentage"`
	Attacks               int                `json:"attacks"`
	Members               []warMemberPayload `json:"members"`
}

type warMemberPayload struct {
	Tag                string            `json:"tag"`
	Name               string            `json:"name"`
	TownhallLevel      int               `json:"townhallLevel"`
	MapPosition        int               `json:"mapPosition"`
	OpponentAttacks    int               `json:"opponentAttacks"`
	Attacks            []warAttackPayload `json:"attacks"`
	BestOpponentAttack *warAttackPayload  `json:"bestOpponentAttack"`
}

type warAttackPayload struct {
	AttackerTag           string  `json:"attackerTag"`
	DefenderTag           string  `json:"defenderTag"`
	Stars                 int     `json:"stars"`
	DestructionPercentage float64 `json:"destructionPercentage"`
	Order                 int     `json:"order"`
	Duration              int     `json:"duration"`
}

type leagueGroupPayload struct {
	State  string               `json:"state"`
	Season string               `json:"season"`
	Clans  []leagueClanPayload  `json:"clans"`
	Rounds []leagueRoundPayload `json:"rounds"`
}

type leagueClanPayload struct {
	Tag       string `json:"tag"`
	Name      string `json:"name"`
	ClanLevel int    `json:"clanLevel"`
}

type leagueRoundPayload struct {
	WarTags []string `json:"warTags"`
}

func mapWarPayload(item warPayload) usecase.ProviderWar {
	return usecase.ProviderWar{
		State:                item.State,
		TeamSize:             item.TeamSize,
		AttacksPerMember:     item.AttacksPerMember,
		PreparationStartTime: item.PreparationStartTime,
		StartTime:            item.StartTime,
		EndTime:              item.EndTime,
		Clan:                 mapWarClanPayload(item.Clan),
		Opponent:             mapWarClanPayload(item.Opponent),
	}
}

func mapWarClanPayload(item warClanPayload) usecase.ProviderWarClan {
	members := make([]usecase.ProviderWarMember, 0, len(item.Members))
	for _, member := range item.Members {
		members = append(members, mapWarMemberPayload(member))
	}

	return usecase.ProviderWarClan{
		Tag:                   item.Tag,
		Name:                  item.Name,
		ClanLevel:             item.ClanLevel,
		Stars:                 item.Stars,
		DestructionPercentage: item.DestructionPercentage,
		Attacks:               item.Attacks,
		Members:               members,
	}
}

func mapWarMemberPayload(item warMemberPayload) usecase.ProviderWarMember {
	attacks := make([]usecase.ProviderAttack, 0, len(item.Attacks))
	for _, attack := range item.Attacks {
		attacks = append(attacks, mapWarAttackPayload(attack))
	}

	var best *usecase.ProviderAttack
	if item.BestOpponentAttack != nil {
		mapped := mapWarAttackPayload(*item.BestOpponentAttack)
		best = &mapped
	}

	return usecase.ProviderWarMember{
		Tag:                item.Tag,
		Name:               item.Name,
		TownhallLevel:      item.TownhallLevel,
		MapPosition:        item.MapPosition,
		OpponentAttacks:    item.OpponentAttacks,
		Attacks:            attacks,
		BestOpponentAttack: best,
	}
}

func mapWarAttackPayload(item warAttackPayload) usecase.ProviderAttack {
	return usecase.ProviderAttack{
		AttackerTag:           item.AttackerTag,
		DefenderTag:           item.DefenderTag,
		Stars:                 item.Stars,
		DestructionPercentage: item.DestructionPercentage,
		Order:                 item.Order,
		Duration:              item.Duration,
	}
}

func mapLeagueGroupPayload(item leagueGroupPayload) usecase.ProviderLeagueGroup {
	clans := make([]usecase.ProviderLeagueClan, 0, len(item.Clans))
	for _, clan := range item.Clans {
		clans = append(clans, usecase.ProviderLeagueClan{
			Tag:       clan.Tag,
			Name:      clan.Name,
			ClanLevel: clan.ClanLevel,
		})
	}

	rounds := make([]usecase.ProviderLeagueRound, 0, len(item.Rounds))
	for _, round := range item.Rounds {
		rounds = append(rounds, usecase.ProviderLeagueRound{
			WarTags: append([]string(nil), round.WarTags...),
		})
	}

	return usecase.ProviderLeagueGroup{
		State:  item.State,
		Season: item.Season,
		Clans:  clans,
		Rounds: rounds,
	}
}
