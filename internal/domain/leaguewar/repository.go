package leaguewar

import "context"

type Repository interface {
	// UpsertWars merges the collected round wars into the group's season,
	// replacing by war ID, and refreshes the season's group metadata.
	// Wars stay ordered by round ascending, seasons descending.
	// Single writer at a time.
	UpsertWars(ctx context.Context, group Group, wars []LeagueWar) error
	ListSeasons(ctx context.Context) ([]Season, error)
	ListWarsBySeason(ctx context.Context, season string) ([]LeagueWar, bool, error)
	// Dedupe removes logical duplicates per (season, round, opponent tag),
	// keeping the record with the latest CollectedAt. Idempotent.
	Dedupe(ctx context.Context) (int, error)
	// Stats never fails: read errors degrade to zero counts.
	Stats(ctx context.Context) StoreStats
}
