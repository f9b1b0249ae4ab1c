package usecase

import "context"

// WarProvider is the outbound port to the clan war API. Implementations
// return found=false for resources the provider reports as absent (a clan
// not currently in a war or league), which is not an error.
type WarProvider interface {
	FetchCurrentWar(ctx context.Context, clanTag string) (ProviderWar, bool, error)
	FetchLeagueGroup(ctx context.Context, clanTag string) (ProviderLeagueGroup, bool, error)
	FetchLeagueWar(ctx context.Context, warTag string) (ProviderWar, bool, error)
}

// ProviderWar is the raw war payload before normalization. Timestamps stay
// in the provider's compact string form; the transformer parses them.
type ProviderWar struct {
	State                string
	TeamSize             int
	AttacksPerMember     int
	PreparationStartTime string
	StartTime            string
	EndTime              string
	Clan                 ProviderWarClan
	Opponent             ProviderWarClan
}

type ProviderWarClan struct {
	Tag                   string
	Name                  string
	ClanLevel             int
	Stars                 int
	DestructionPercentage float64
	Attacks               int
	Members               []ProviderWarMember
}

type ProviderWarMember struct {
	Tag                string
	Name               string
	TownhallLevel      int
	MapPosition        int
	OpponentAttacks    int
	Attacks            []ProviderAttack
	BestOpponentAttack *ProviderAttack
}

type ProviderAttack struct {
	AttackerTag           string
	DefenderTag           string
	Stars                 int
	DestructionPercentage float64
	Order                 int
	Duration              int
}

type ProviderLeagueGroup struct {
	State  string
	Season string
	Clans  []ProviderLeagueClan
	Rounds []ProviderLeagueRound
}

type ProviderLeagueClan struct {
	Tag       string
	Name      string
	ClanLevel int
}

type ProviderLeagueRound struct {
	WarTags []string
}
