package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

func testWar(id string, endTime time.Time) war.War {
	return war.War{
		ID:               id,
		State:            war.StateWarEnded,
		TeamSize:         10,
		AttacksPerMember: 2,
		EndTime:          endTime,
		Clan: war.ClanStats{
			Tag:   "#ABC",
			Name:  "Alpha",
			Stars: 25,
			Members: []war.Member{{
				Tag:         "#P1",
				Name:        "One",
				MapPosition: 1,
				Attacks: []war.Attack{
					{AttackerTag: "#P1", DefenderTag: "#E1", Stars: 3, DestructionPercentage: 100, Order: 1},
				},
				BestOpponentAttack: &war.Attack{AttackerTag: "#E1", Stars: 2, Order: 2},
			}},
		},
		Opponent:    war.ClanStats{Tag: "#DEF", Name: "Beta"},
		CollectedAt: endTime,
	}
}

func TestWarRepositorySurvivesRestart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()
	endTime := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	repo := NewWarRepository(dir, logging.NewNop())
	if err := repo.Upsert(ctx, testWar("war-1", endTime)); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if err := repo.Upsert(ctx, testWar("war-2", endTime.Add(time.Hour))); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}

	// A fresh instance reads everything back from disk.
	reopened := NewWarRepository(dir, logging.NewNop())
	items, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 wars after restart, got %d", len(items))
	}
	// Newest first.
	if items[0].ID != "war-2" || items[1].ID != "war-1" {
		t.Fatalf("unexpected order: %s, %s", items[0].ID, items[1].ID)
	}

	got, found, err := reopened.GetByID(ctx, "war-1")
	if err != nil || !found {
		t.Fatalf("GetByID: found=%t err=%v", found, err)
	}
	if got.Clan.Members[0].BestOpponentAttack == nil || got.Clan.Members[0].BestOpponentAttack.Stars != 2 {
		t.Fatalf("nested attack data lost: %+v", got.Clan.Members[0])
	}
}

func TestWarRepositoryUpsertReplacesByID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()
	endTime := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	repo := NewWarRepository(dir, logging.NewNop())

	first := testWar("war-1", endTime)
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}

	updated := first
	updated.Clan.Stars = 30
	if err := repo.Upsert(ctx, updated); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(items) != 1 || items[0].Clan.Stars != 30 {
		t.Fatalf("upsert did not replace: %+v", items)
	}
}

func TestWarRepositoryCorruptFileStartsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, warsFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	repo := NewWarRepository(dir, logging.NewNop())
	items, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List must not fail on corrupt file: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty store, got %d", len(items))
	}
}

func TestWarRepositoryUnknownVersionStartsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	payload := []byte(`{"version": 99, "lastUpdated": "2024-01-01T00:00:00Z", "wars": [{"id": "x"}]}`)
	if err := os.WriteFile(filepath.Join(dir, warsFileName), payload, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	repo := NewWarRepository(dir, logging.NewNop())
	if stats := repo.Stats(context.Background()); stats.Wars != 0 {
		t.Fatalf("unknown version must start empty, got %+v", stats)
	}
}

func TestWarRepositoryStats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()
	repo := NewWarRepository(dir, logging.NewNop())

	if stats := repo.Stats(ctx); stats.Wars != 0 || stats.LastUpdated != "Never" {
		t.Fatalf("empty store stats: %+v", stats)
	}

	if err := repo.Upsert(ctx, testWar("war-1", time.Now().UTC())); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	stats := repo.Stats(ctx)
	if stats.Wars != 1 || stats.LastUpdated == "Never" || stats.LastUpdated == "" {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
