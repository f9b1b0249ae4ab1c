package leaguewar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/war"
)

// Group states come from the league group endpoint. A group that reached
// "ended" still has rounds worth re-fetching until it disappears.
const (
	GroupStateNotInLeague = "notInWar"
	GroupStatePreparation = "preparation"
	GroupStateInWar       = "inWar"
	GroupStateEnded       = "ended"
)

// PlaceholderWarTag marks a round the provider has not scheduled yet.
const PlaceholderWarTag = "#0"

// LeagueWar is one collected league round war, oriented so Clan is the
// configured clan.
type LeagueWar struct {
	ID                   string
	WarTag               string
	Season               string
	Round                int
	State                string
	TeamSize             int
	PreparationStartTime time.Time
	StartTime            time.Time
	EndTime              time.Time
	Clan                 war.ClanStats
	Opponent             war.ClanStats
	CollectedAt          time.Time
}

// Group is the league group snapshot for one season.
type Group struct {
	Season      string
	State       string
	Clans       []GroupClan
	Rounds      [][]string
	CollectedAt time.Time
}

type GroupClan struct {
	Tag       string
	Name      string
	ClanLevel int
}

// Season is the persisted unit: one league season with its group metadata
// and every round war collected so far.
type Season struct {
	Season             string
	State              string
	ParticipatingClans []GroupClan
	Wars               []LeagueWar
	CollectedAt        time.Time
}

type StoreStats struct {
	Seasons     int    `json:"seasons"`
	Wars        int    `json:"wars"`
	LastUpdated string `json:"lastUpdated"`
}

func NormalizeGroupState(value string) string {
	switch strings.TrimSpace(value) {
	case GroupStatePreparation:
		return GroupStatePreparation
	case GroupStateInWar:
		return GroupStateInWar
	case GroupStateEnded:
		return GroupStateEnded
	default:
		return GroupStateNotInLeague
	}
}

// ShouldCollect reports whether the group's rounds should be fetched.
// Everything but notInWar qualifies: earlier rounds keep changing while the
// provider settles, so preparation and ended groups are re-read too.
func ShouldCollect(groupState string) bool {
	return NormalizeGroupState(groupState) != GroupStateNotInLeague
}

// FallbackID is the war identifier used when the provider omits a war tag.
func FallbackID(season string, round int, opponentTag string) string {
	return fmt.Sprintf("%s-round%d-%s", sanitizeIDPart(season), round, sanitizeIDPart(opponentTag))
}

// DedupeKey identifies logical duplicates: the same opponent in the same
// round of the same season, regardless of which ID variant stored it.
func DedupeKey(season string, round int, opponentTag string) string {
	return fmt.Sprintf("%s|%d|%s", strings.TrimSpace(season), round, strings.ToUpper(strings.TrimSpace(opponentTag)))
}

// DedupeWars collapses logical duplicates inside one season: the freshest
// CollectedAt wins per round/opponent pair, and on a tie a record carrying a
// real provider war tag beats one stored under a fallback ID. Idempotent.
func DedupeWars(season string, items []LeagueWar) ([]LeagueWar, int) {
	keep := make(map[string]LeagueWar, len(items))
	for _, item := range items {
		key := DedupeKey(season, item.Round, item.Opponent.Tag)
		current, ok := keep[key]
		if !ok || preferDuplicate(item, current) {
			keep[key] = item
		}
	}
	if len(keep) == len(items) {
		return items, 0
	}

	out := make([]LeagueWar, 0, len(keep))
	for _, item := range keep {
		out = append(out, item)
	}
	SortRoundOrder(out)
	return out, len(items) - len(out)
}

func preferDuplicate(candidate, current LeagueWar) bool {
	if !candidate.CollectedAt.Equal(current.CollectedAt) {
		return candidate.CollectedAt.After(current.CollectedAt)
	}
	return candidate.WarTag != "" && current.WarTag == ""
}

// SortRoundOrder orders league wars by round ascending, ties broken by ID.
func SortRoundOrder(items []LeagueWar) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Round != items[j].Round {
			return items[i].Round < items[j].Round
		}
		return items[i].ID < items[j].ID
	})
}

func sanitizeIDPart(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, ":", "-")
	value = strings.ReplaceAll(value, "#", "-")
	return value
}
