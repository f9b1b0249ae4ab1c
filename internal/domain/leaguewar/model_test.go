package leaguewar

import "testing"

func TestFallbackID(t *testing.T) {
	t.Parallel()

	got := FallbackID("2024-01", 3, "#XYZ789")
	if got != "2024-01-round3--xyz789" {
		t.Fatalf("unexpected fallback id: %q", got)
	}
}

func TestDedupeKeyCaseInsensitiveTag(t *testing.T) {
	t.Parallel()

	a := DedupeKey("2024-01", 2, "#abc")
	b := DedupeKey("2024-01", 2, "#ABC")
	if a != b {
		t.Fatalf("expected equal keys, got %q vs %q", a, b)
	}
	if a == DedupeKey("2024-01", 3, "#ABC") {
		t.Fatal("round must discriminate dedupe keys")
	}
}

func TestShouldCollect(t *testing.T) {
	t.Parallel()

	if ShouldCollect(GroupStateNotInLeague) {
		t.Fatal("notInWar group must not be collected")
	}
	for _, state := range []string{GroupStatePreparation, GroupStateInWar, GroupStateEnded} {
		if !ShouldCollect(state) {
			t.Fatalf("state %q must be collected", state)
		}
	}
	if ShouldCollect("unknown") {
		t.Fatal("unknown states normalize to notInWar")
	}
}
