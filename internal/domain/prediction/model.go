package prediction

import "strings"

// RecentRateUnknown is the sentinel for players with no wars inside the
// recent window. It sorts after every real rate.
const RecentRateUnknown = -1.0

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type SortOption string

const (
	SortByScore  SortOption = "score"
	SortByName   SortOption = "name"
	SortByRecent SortOption = "recent"
)

// Config carries the blending weights and thresholds for participation
// scoring.
type Config struct {
	OverallWeight              float64
	RecentWeight               float64
	RecentDays                 int
	MinWarsForHighConfidence   int
	MinWarsForMediumConfidence int
	HighReliabilityThreshold   float64
	MediumReliabilityThreshold float64
}

func DefaultConfig() Config {
	return Config{
		OverallWeight:              0.4,
		RecentWeight:               0.6,
		RecentDays:                 30,
		MinWarsForHighConfidence:   5,
		MinWarsForMediumConfidence: 3,
		HighReliabilityThreshold:   80,
		MediumReliabilityThreshold: 50,
	}
}

// PlayerPrediction is one player's computed attack participation outlook.
// Rates are percentages in [0, 100]; RecentRate may be the sentinel.
type PlayerPrediction struct {
	Tag              string
	Name             string
	TotalWars        int
	RecentWars       int
	AttacksUsed      int
	AttacksAvailable int
	AllTimeRate      float64
	RecentRate       float64
	Score            float64
	Confidence       Confidence
	Reliability      string
}

func (c Config) ConfidenceFor(totalWars int) Confidence {
	switch {
	case totalWars >= c.MinWarsForHighConfidence:
		return ConfidenceHigh
	case totalWars >= c.MinWarsForMediumConfidence:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func (c Config) ReliabilityFor(score float64) string {
	switch {
	case score >= c.HighReliabilityThreshold:
		return "green"
	case score >= c.MediumReliabilityThreshold:
		return "yellow"
	default:
		return "red"
	}
}

func ParseSortOption(value string) (SortOption, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(SortByScore):
		return SortByScore, true
	case string(SortByName):
		return SortByName, true
	case string(SortByRecent):
		return SortByRecent, true
	default:
		return "", false
	}
}
