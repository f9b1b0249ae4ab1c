package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

func leagueGroupFixture() ProviderLeagueGroup {
	return ProviderLeagueGroup{
		State:  "inWar",
		Season: "2024-01",
		Clans:  []ProviderLeagueClan{{Tag: "#ABC", Name: "Alpha"}},
		Rounds: []ProviderLeagueRound{
			{WarTags: []string{"#W1", "#X1"}},
			{WarTags: []string{"#W2", "#0"}},
			{WarTags: []string{"#0", "#0"}},
		},
	}
}

func leagueRoundWar(state, enemyTag, endTime string) ProviderWar {
	return ProviderWar{
		State:    state,
		TeamSize: 15,
		EndTime:  endTime,
		Clan:     ProviderWarClan{Tag: "#ABC", Name: "Alpha"},
		Opponent: ProviderWarClan{Tag: enemyTag},
	}
}

func TestLeagueCollectStoresInvolvedRoundWars(t *testing.T) {
	t.Parallel()

	provider := &stubWarProvider{
		groupFound: true,
		group:      leagueGroupFixture(),
		leagueWars: map[string]ProviderWar{
			"#W1": leagueRoundWar("warEnded", "#DEF", "20240110T100000.000Z"),
			// Round war between two other clans in the group.
			"#X1": {State: "warEnded", Clan: ProviderWarClan{Tag: "#O1"}, Opponent: ProviderWarClan{Tag: "#O2"}},
			"#W2": leagueRoundWar("inWar", "#GHI", "20240112T100000.000Z"),
		},
	}
	repo := &stubLeagueRepository{}
	service := NewLeagueCollectorService(provider, repo, "#ABC", LeagueCollectorConfig{FetchWorkers: 1}, logging.NewNop())

	result, err := service.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if result.Season != "2024-01" || result.State != leaguewar.GroupStateInWar {
		t.Fatalf("unexpected result: %+v", result)
	}
	// Placeholder "#0" tags are never fetched.
	if result.RoundsFetched != 3 {
		t.Fatalf("expected 3 fetched round tags, got %d", result.RoundsFetched)
	}
	if result.WarsStored != 2 {
		t.Fatalf("expected 2 stored wars (one round did not involve the clan), got %d", result.WarsStored)
	}
	if result.RoundFailures != 0 {
		t.Fatalf("expected no failures, got %d", result.RoundFailures)
	}
	if repo.group.Season != "2024-01" {
		t.Fatalf("group not persisted: %+v", repo.group)
	}
	// Stored wars arrive round-ordered.
	if repo.upserted[0].Round != 1 || repo.upserted[1].Round != 2 {
		t.Fatalf("wars not round-ordered: %+v", repo.upserted)
	}

	wantEnd := time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC)
	if !result.EarliestEndTime.Equal(wantEnd) {
		t.Fatalf("expected earliest in-progress end %v, got %v", wantEnd, result.EarliestEndTime)
	}
}

func TestLeagueCollectToleratesRoundFailures(t *testing.T) {
	t.Parallel()

	provider := &stubWarProvider{
		groupFound: true,
		group:      leagueGroupFixture(),
		leagueWars: map[string]ProviderWar{
			"#W1": leagueRoundWar("warEnded", "#DEF", "20240110T100000.000Z"),
		},
		leagueErrs: map[string]error{
			"#W2": errors.New("provider hiccup"),
		},
	}
	repo := &stubLeagueRepository{}
	service := NewLeagueCollectorService(provider, repo, "#ABC", LeagueCollectorConfig{FetchWorkers: 2}, logging.NewNop())

	result, err := service.Collect(context.Background())
	if err != nil {
		t.Fatalf("a failed round must not abort the sweep: %v", err)
	}
	if result.RoundFailures != 1 {
		t.Fatalf("expected 1 round failure, got %d", result.RoundFailures)
	}
	if result.WarsStored != 1 {
		t.Fatalf("expected the healthy round to still be stored, got %d", result.WarsStored)
	}
}

func TestLeagueCollectAbsentGroup(t *testing.T) {
	t.Parallel()

	provider := &stubWarProvider{groupFound: false}
	repo := &stubLeagueRepository{}
	service := NewLeagueCollectorService(provider, repo, "#ABC", LeagueCollectorConfig{}, logging.NewNop())

	result, err := service.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if result.State != leaguewar.GroupStateNotInLeague {
		t.Fatalf("unexpected state: %s", result.State)
	}
	if len(provider.fetchedTags) != 0 {
		t.Fatalf("no round wars should be fetched, got %v", provider.fetchedTags)
	}
}

func TestLeagueCollectSkipsEndedSeasonWithoutGroupState(t *testing.T) {
	t.Parallel()

	group := leagueGroupFixture()
	group.State = "notInWar"
	provider := &stubWarProvider{groupFound: true, group: group}
	repo := &stubLeagueRepository{}
	service := NewLeagueCollectorService(provider, repo, "#ABC", LeagueCollectorConfig{}, logging.NewNop())

	result, err := service.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if result.WarsStored != 0 || result.RoundsFetched != 0 {
		t.Fatalf("notInWar group must not trigger round fetches: %+v", result)
	}
	if len(provider.fetchedTags) != 0 {
		t.Fatalf("no round wars should be fetched, got %v", provider.fetchedTags)
	}
}

func TestLeagueCollectPropagatesGroupError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("group fetch failed")
	provider := &stubWarProvider{groupErr: wantErr}
	service := NewLeagueCollectorService(provider, &stubLeagueRepository{}, "#ABC", LeagueCollectorConfig{}, logging.NewNop())

	_, err := service.Collect(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected group error to surface, got %v", err)
	}
}
