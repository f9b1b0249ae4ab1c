package war

import (
	"sort"
	"strings"
	"time"
)

const (
	StateNotInWar    = "notInWar"
	StatePreparation = "preparation"
	StateInWar       = "inWar"
	StateWarEnded    = "warEnded"
)

// War is one collected clan war record, oriented so Clan is always the
// configured clan regardless of which side the provider listed first.
type War struct {
	ID                   string
	State                string
	TeamSize             int
	AttacksPerMember     int
	PreparationStartTime time.Time
	StartTime            time.Time
	EndTime              time.Time
	Clan                 ClanStats
	Opponent             ClanStats
	CollectedAt          time.Time
}

type ClanStats struct {
	Tag                   string
	Name                  string
	ClanLevel             int
	Stars                 int
	DestructionPercentage float64
	AttacksUsed           int
	AttacksAvailable      int
	Members               []Member
}

type Member struct {
	Tag                string
	Name               string
	TownhallLevel      int
	MapPosition        int
	OpponentAttacks    int
	Attacks            []Attack
	BestOpponentAttack *Attack
}

type Attack struct {
	AttackerTag           string
	DefenderTag           string
	Stars                 int
	DestructionPercentage float64
	Order                 int
	Duration              int
}

// StoreStats summarizes the persisted war store. LastUpdated is "Never"
// while the store is empty.
type StoreStats struct {
	Wars        int    `json:"wars"`
	LastUpdated string `json:"lastUpdated"`
}

func NormalizeState(value string) string {
	switch strings.TrimSpace(value) {
	case StatePreparation:
		return StatePreparation
	case StateInWar:
		return StateInWar
	case StateWarEnded:
		return StateWarEnded
	default:
		return StateNotInWar
	}
}

// ShouldCollect reports whether a war in the given state carries data worth
// persisting. Preparation wars have rosters but no attacks yet.
func ShouldCollect(state string) bool {
	switch NormalizeState(state) {
	case StateInWar, StateWarEnded:
		return true
	default:
		return false
	}
}

func IsInProgress(state string) bool {
	return NormalizeState(state) == StateInWar
}

// NewID builds the deterministic war identifier from the raw provider end
// time and both clan tags. Stable regardless of which side the provider
// listed first because callers pass the oriented (clan, opponent) pair after
// orientation, and the end time pins the pairing.
func NewID(rawEndTime, clanTag, opponentTag string) string {
	return sanitizeIDPart(rawEndTime) + "-" + sanitizeIDPart(clanTag) + "-" + sanitizeIDPart(opponentTag)
}

func sanitizeIDPart(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, ":", "-")
	value = strings.ReplaceAll(value, "#", "-")
	return value
}

// SortNewestFirst orders wars by end time descending, ties broken by ID so
// listings are stable across stores.
func SortNewestFirst(items []War) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].EndTime.Equal(items[j].EndTime) {
			return items[i].EndTime.After(items[j].EndTime)
		}
		return items[i].ID < items[j].ID
	})
}

// FormatLastUpdated renders a store timestamp, "Never" for an empty store.
func FormatLastUpdated(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.UTC().Format(time.RFC3339)
}

// MembersOwnFirst returns both rosters as one list, own clan first, each
// side ordered by map position.
func (w War) MembersOwnFirst() []Member {
	out := make([]Member, 0, len(w.Clan.Members)+len(w.Opponent.Members))
	out = append(out, w.Clan.Members...)
	out = append(out, w.Opponent.Members...)
	return out
}
