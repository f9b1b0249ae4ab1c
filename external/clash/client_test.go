package clash

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clanforge/war-tracker/internal/platform/logging"
	"github.com/clanforge/war-tracker/internal/platform/resilience"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(ClientConfig{
		HTTPClient:     &http.Client{Timeout: 2 * time.Second},
		BaseURL:        baseURL,
		Token:          "test-token",
		MaxRetries:     3,
		RetryBaseDelay: time.Millisecond,
		Logger:         logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})
}

func TestFetchCurrentWarDecodesPayload(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		if r.URL.Path != "/clans/%23ABC/currentwar" && r.URL.Path != "/clans/#ABC/currentwar" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"state": "inWar",
			"teamSize": 10,
			"attacksPerMember": 2,
			"endTime": "20240115T100000.000Z",
			"clan": {"tag": "#ABC", "name": "Alpha", "stars": 12, "members": [
				{"tag": "#P1", "name": "One", "mapPosition": 1, "attacks": [
					{"attackerTag": "#P1", "defenderTag": "#E1", "stars": 3, "destructionPercentage": 100, "order": 1}
				]}
			]},
			"opponent": {"tag": "#DEF", "name": "Beta", "stars": 9, "members": []}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	got, found, err := client.FetchCurrentWar(context.Background(), "#ABC")
	if err != nil {
		t.Fatalf("FetchCurrentWar error: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if got.State != "inWar" || got.TeamSize != 10 || got.EndTime != "20240115T100000.000Z" {
		t.Fatalf("unexpected war payload: %+v", got)
	}
	if len(got.Clan.Members) != 1 || len(got.Clan.Members[0].Attacks) != 1 {
		t.Fatalf("expected member attacks to decode, got %+v", got.Clan.Members)
	}
	if got.Clan.Members[0].Attacks[0].Stars != 3 {
		t.Fatalf("unexpected attack: %+v", got.Clan.Members[0].Attacks[0])
	}
}

func TestFetchCurrentWarRetriesServiceUnavailable(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"state": "notInWar"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	got, found, err := client.FetchCurrentWar(context.Background(), "#ABC")
	if err != nil {
		t.Fatalf("expected recovery after transient failures, got %v", err)
	}
	if !found || got.State != "notInWar" {
		t.Fatalf("unexpected result: found=%t war=%+v", found, got)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected 3 requests, got %d", n)
	}
}

func TestFetchCurrentWarExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, _, err := client.FetchCurrentWar(context.Background(), "#ABC")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, errClashTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected 3 attempts total, got %d", n)
	}
}

func TestFetchCurrentWarForbiddenIsTerminal(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"reason": "accessDenied"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, _, err := client.FetchCurrentWar(context.Background(), "#ABC")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("403 must not be retried, got %d attempts", n)
	}
}

func TestFetchLeagueGroupAbsent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, found, err := client.FetchLeagueGroup(context.Background(), "#ABC")
	if err != nil {
		t.Fatalf("404 must not be an error, got %v", err)
	}
	if found {
		t.Fatal("expected found=false for 404")
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("404 must not be retried, got %d attempts", n)
	}
}

func TestFetchCurrentWarOtherStatusNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"reason": "badRequest"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, _, err := client.FetchCurrentWar(context.Background(), "#ABC")
	if err == nil {
		t.Fatal("expected error for status 400")
	}
	if errors.Is(err, errClashTransient) {
		t.Fatalf("400 must not classify as transient: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("400 must not be retried, got %d attempts", n)
	}
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	cases := map[int]retryOutcome{
		200: outcomeSuccess,
		204: outcomeSuccess,
		404: outcomeAbsent,
		403: outcomeTerminal,
		503: outcomeRetry,
		400: outcomeTerminal,
		429: outcomeTerminal,
		500: outcomeTerminal,
	}
	for code, want := range cases {
		if got := classifyStatus(code); got != want {
			t.Fatalf("classifyStatus(%d) = %d, want %d", code, got, want)
		}
	}
}

func TestRetryStateBackoffDoubles(t *testing.T) {
	t.Parallel()

	state := newRetryState(3, time.Second)
	want := []time.Duration{time.Second, 2 * time.Second}
	for i, expected := range want {
		if state.exhausted() {
			t.Fatalf("state exhausted too early at step %d", i)
		}
		if got := state.backoff(); got != expected {
			t.Fatalf("backoff step %d = %v, want %v", i, got, expected)
		}
		state = state.next()
	}
	if !state.exhausted() {
		t.Fatal("expected exhaustion once the attempt budget is spent")
	}
	if !newRetryState(1, time.Second).exhausted() {
		t.Fatal("a single-attempt budget must never retry")
	}
}

func TestSanitizeSensitiveText(t *testing.T) {
	t.Parallel()

	got := sanitizeSensitiveText("Get https://x: Bearer super-secret rejected", "super-secret")
	if got != "Get https://x: Bearer REDACTED rejected" {
		t.Fatalf("token leaked: %q", got)
	}
}
