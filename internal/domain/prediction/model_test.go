package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSortOption(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want SortOption
		ok   bool
	}{
		{in: "", want: SortByScore, ok: true},
		{in: "score", want: SortByScore, ok: true},
		{in: " Name ", want: SortByName, ok: true},
		{in: "RECENT", want: SortByRecent, ok: true},
		{in: "stars", ok: false},
	}

	for _, tt := range tests {
		got, ok := ParseSortOption(tt.in)
		require.Equal(t, tt.ok, ok, "input %q", tt.in)
		if ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestConfidenceFor(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, ConfidenceHigh, cfg.ConfidenceFor(5))
	assert.Equal(t, ConfidenceMedium, cfg.ConfidenceFor(3))
	assert.Equal(t, ConfidenceLow, cfg.ConfidenceFor(2))
	assert.Equal(t, ConfidenceLow, cfg.ConfidenceFor(0))
}

func TestReliabilityFor(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, "green", cfg.ReliabilityFor(80))
	assert.Equal(t, "yellow", cfg.ReliabilityFor(79.9))
	assert.Equal(t, "yellow", cfg.ReliabilityFor(50))
	assert.Equal(t, "red", cfg.ReliabilityFor(49.9))
}

func TestDefaultConfigWeightsSumToOne(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.InDelta(t, 1.0, cfg.OverallWeight+cfg.RecentWeight, 1e-9)
}
