package usecase

import (
	"sort"
	"strings"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/clashtime"
)

const (
	standaloneAttacksPerMember = 2
	leagueAttacksPerMember     = 1
)

// TransformWar normalizes a standalone war payload. The result is oriented
// so War.Clan is always the configured clan, even if the provider listed it
// as "opponent".
func TransformWar(raw ProviderWar, clanTag string, collectedAt time.Time) war.War {
	own, enemy := orientSides(raw.Clan, raw.Opponent, clanTag)

	attacksPerMember := raw.AttacksPerMember
	if attacksPerMember <= 0 {
		attacksPerMember = standaloneAttacksPerMember
	}

	return war.War{
		ID:                   war.NewID(raw.EndTime, own.Tag, enemy.Tag),
		State:                war.NormalizeState(raw.State),
		TeamSize:             raw.TeamSize,
		AttacksPerMember:     attacksPerMember,
		PreparationStartTime: clashtime.ParseOrZero(raw.PreparationStartTime),
		StartTime:            clashtime.ParseOrZero(raw.StartTime),
		EndTime:              clashtime.ParseOrZero(raw.EndTime),
		Clan:                 transformClan(own, raw.TeamSize, attacksPerMember, false),
		Opponent:             transformClan(enemy, raw.TeamSize, attacksPerMember, false),
		CollectedAt:          collectedAt.UTC(),
	}
}

// TransformLeagueWar normalizes one league round war. League payloads are
// not oriented toward any caller, so wars that do not involve the given
// clan return ok=false and are skipped.
func TransformLeagueWar(raw ProviderWar, warTag, clanTag, season string, round int, collectedAt time.Time) (leaguewar.LeagueWar, bool) {
	if !tagsEqual(raw.Clan.Tag, clanTag) && !tagsEqual(raw.Opponent.Tag, clanTag) {
		return leaguewar.LeagueWar{}, false
	}

	own, enemy := orientSides(raw.Clan, raw.Opponent, clanTag)

	id := strings.TrimSpace(warTag)
	if id == "" {
		id = leaguewar.FallbackID(season, round, enemy.Tag)
	}

	return leaguewar.LeagueWar{
		ID:                   id,
		WarTag:               strings.TrimSpace(warTag),
		Season:               season,
		Round:                round,
		State:                war.NormalizeState(raw.State),
		TeamSize:             raw.TeamSize,
		PreparationStartTime: clashtime.ParseOrZero(raw.PreparationStartTime),
		StartTime:            clashtime.ParseOrZero(raw.StartTime),
		EndTime:              clashtime.ParseOrZero(raw.EndTime),
		Clan:                 transformClan(own, raw.TeamSize, leagueAttacksPerMember, true),
		Opponent:             transformClan(enemy, raw.TeamSize, leagueAttacksPerMember, true),
		CollectedAt:          collectedAt.UTC(),
	}, true
}

func TransformLeagueGroup(raw ProviderLeagueGroup, collectedAt time.Time) leaguewar.Group {
	clans := make([]leaguewar.GroupClan, 0, len(raw.Clans))
	for _, clan := range raw.Clans {
		clans = append(clans, leaguewar.GroupClan{
			Tag:       clan.Tag,
			Name:      clan.Name,
			ClanLevel: clan.ClanLevel,
		})
	}

	rounds := make([][]string, 0, len(raw.Rounds))
	for _, round := range raw.Rounds {
		rounds = append(rounds, append([]string(nil), round.WarTags...))
	}

	return leaguewar.Group{
		Season:      strings.TrimSpace(raw.Season),
		State:       leaguewar.NormalizeGroupState(raw.State),
		Clans:       clans,
		Rounds:      rounds,
		CollectedAt: collectedAt.UTC(),
	}
}

// transformClan computes the side aggregates from member attacks. In league
// wars the provider occasionally reports members with more attacks than the
// single one the format allows, so the per-member count is capped there.
func transformClan(raw ProviderWarClan, teamSize, attacksPerMember int, capPerMember bool) war.ClanStats {
	members := make([]war.Member, 0, len(raw.Members))

	totalStars := 0
	totalDestruction := 0.0
	attacksUsed := 0

	for _, rawMember := range raw.Members {
		member := war.Member{
			Tag:             rawMember.Tag,
			Name:            rawMember.Name,
			TownhallLevel:   rawMember.TownhallLevel,
			MapPosition:     rawMember.MapPosition,
			OpponentAttacks: rawMember.OpponentAttacks,
			Attacks:         make([]war.Attack, 0, len(rawMember.Attacks)),
		}
		for _, rawAttack := range rawMember.Attacks {
			member.Attacks = append(member.Attacks, transformAttack(rawAttack))
		}
		sort.SliceStable(member.Attacks, func(i, j int) bool {
			return member.Attacks[i].Order < member.Attacks[j].Order
		})
		if rawMember.BestOpponentAttack != nil {
			best := transformAttack(*rawMember.BestOpponentAttack)
			member.BestOpponentAttack = &best
		}

		memberUsed := len(member.Attacks)
		if capPerMember && memberUsed > attacksPerMember {
			memberUsed = attacksPerMember
		}
		attacksUsed += memberUsed
		for _, attack := range member.Attacks[:memberUsed] {
			totalStars += attack.Stars
			totalDestruction += attack.DestructionPercentage
		}

		members = append(members, member)
	}

	sort.SliceStable(members, func(i, j int) bool {
		return members[i].MapPosition < members[j].MapPosition
	})

	destruction := 0.0
	if attacksUsed > 0 {
		destruction = totalDestruction / float64(attacksUsed)
	}

	return war.ClanStats{
		Tag:                   raw.Tag,
		Name:                  raw.Name,
		ClanLevel:             raw.ClanLevel,
		Stars:                 totalStars,
		DestructionPercentage: destruction,
		AttacksUsed:           attacksUsed,
		AttacksAvailable:      teamSize * attacksPerMember,
		Members:               members,
	}
}

func transformAttack(raw ProviderAttack) war.Attack {
	return war.Attack{
		AttackerTag:           raw.AttackerTag,
		DefenderTag:           raw.DefenderTag,
		Stars:                 raw.Stars,
		DestructionPercentage: raw.DestructionPercentage,
		Order:                 raw.Order,
		Duration:              raw.Duration,
	}
}

func orientSides(clan, opponent ProviderWarClan, clanTag string) (ProviderWarClan, ProviderWarClan) {
	if tagsEqual(opponent.Tag, clanTag) {
		return opponent, clan
	}
	return clan, opponent
}

func tagsEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
