package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

type stubWarSweeper struct {
	mu      sync.Mutex
	results []WarCollectResult
	err     error
	panics  bool
	calls   int
	notify  chan struct{}
}

func (s *stubWarSweeper) Collect(ctx context.Context) (WarCollectResult, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if s.notify != nil {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
	if s.panics {
		panic("sweep exploded")
	}
	if s.err != nil {
		return WarCollectResult{}, s.err
	}
	if len(s.results) == 0 {
		return WarCollectResult{State: war.StateNotInWar}, nil
	}
	if call > len(s.results) {
		call = len(s.results)
	}
	return s.results[call-1], nil
}

func (s *stubWarSweeper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubLeagueSweeper struct {
	mu     sync.Mutex
	result LeagueCollectResult
	err    error
	calls  int
}

func (s *stubLeagueSweeper) Collect(ctx context.Context) (LeagueCollectResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.result, s.err
}

func TestSchedulerArmsWarOneShotBeforeEndTime(t *testing.T) {
	t.Parallel()

	endTime := time.Now().UTC().Add(time.Hour)
	sweeper := &stubWarSweeper{results: []WarCollectResult{{State: war.StateInWar, EndTime: endTime}}}
	scheduler := NewSchedulerService(sweeper, &stubLeagueSweeper{}, SchedulerConfig{WarEndLead: time.Minute}, logging.NewNop())
	defer scheduler.Stop()

	if _, err := scheduler.RunWarSweepNow(context.Background()); err != nil {
		t.Fatalf("RunWarSweepNow error: %v", err)
	}

	want := endTime.Add(-time.Minute)
	if got := scheduler.PendingWarOneShotAt(); !got.Equal(want) {
		t.Fatalf("expected one-shot at %v, got %v", want, got)
	}
}

func TestSchedulerArmsWarOneShotDuringPreparation(t *testing.T) {
	t.Parallel()

	endTime := time.Now().UTC().Add(3 * time.Hour)
	sweeper := &stubWarSweeper{results: []WarCollectResult{{State: war.StatePreparation, EndTime: endTime}}}
	scheduler := NewSchedulerService(sweeper, &stubLeagueSweeper{}, SchedulerConfig{WarEndLead: time.Minute}, logging.NewNop())
	defer scheduler.Stop()

	if _, err := scheduler.RunWarSweepNow(context.Background()); err != nil {
		t.Fatalf("RunWarSweepNow error: %v", err)
	}

	want := endTime.Add(-time.Minute)
	if got := scheduler.PendingWarOneShotAt(); !got.Equal(want) {
		t.Fatalf("preparation must arm the one-shot at %v, got %v", want, got)
	}
}

func TestSchedulerKeepsOneShotForSameTarget(t *testing.T) {
	t.Parallel()

	endTime := time.Now().UTC().Add(time.Hour)
	sweeper := &stubWarSweeper{results: []WarCollectResult{{State: war.StateInWar, EndTime: endTime}}}
	scheduler := NewSchedulerService(sweeper, &stubLeagueSweeper{}, SchedulerConfig{WarEndLead: time.Minute}, logging.NewNop())
	defer scheduler.Stop()

	ctx := context.Background()
	if _, err := scheduler.RunWarSweepNow(ctx); err != nil {
		t.Fatalf("first sweep error: %v", err)
	}
	first := scheduler.PendingWarOneShotAt()
	if _, err := scheduler.RunWarSweepNow(ctx); err != nil {
		t.Fatalf("second sweep error: %v", err)
	}
	if got := scheduler.PendingWarOneShotAt(); !got.Equal(first) {
		t.Fatalf("same end time must keep the pending one-shot: %v vs %v", got, first)
	}

	// A moved end time replaces the pending one-shot.
	moved := endTime.Add(30 * time.Minute)
	sweeper.mu.Lock()
	sweeper.results = []WarCollectResult{{State: war.StateInWar, EndTime: moved}}
	sweeper.calls = 0
	sweeper.mu.Unlock()
	if _, err := scheduler.RunWarSweepNow(ctx); err != nil {
		t.Fatalf("third sweep error: %v", err)
	}
	if got := scheduler.PendingWarOneShotAt(); !got.Equal(moved.Add(-time.Minute)) {
		t.Fatalf("one-shot not replaced: %v", got)
	}
}

func TestSchedulerDoesNotArmWhenWarEnded(t *testing.T) {
	t.Parallel()

	sweeper := &stubWarSweeper{results: []WarCollectResult{{State: war.StateWarEnded, EndTime: time.Now().Add(time.Hour)}}}
	scheduler := NewSchedulerService(sweeper, &stubLeagueSweeper{}, SchedulerConfig{}, logging.NewNop())
	defer scheduler.Stop()

	if _, err := scheduler.RunWarSweepNow(context.Background()); err != nil {
		t.Fatalf("RunWarSweepNow error: %v", err)
	}
	if got := scheduler.PendingWarOneShotAt(); !got.IsZero() {
		t.Fatalf("ended war must not arm a one-shot, got %v", got)
	}
}

func TestSchedulerWarEndedCancelsPendingOneShot(t *testing.T) {
	t.Parallel()

	endTime := time.Now().UTC().Add(time.Hour)
	sweeper := &stubWarSweeper{results: []WarCollectResult{
		{State: war.StateInWar, EndTime: endTime},
		{State: war.StateWarEnded, EndTime: endTime},
	}}
	scheduler := NewSchedulerService(sweeper, &stubLeagueSweeper{}, SchedulerConfig{WarEndLead: time.Minute}, logging.NewNop())
	defer scheduler.Stop()

	ctx := context.Background()
	if _, err := scheduler.RunWarSweepNow(ctx); err != nil {
		t.Fatalf("first sweep error: %v", err)
	}
	if got := scheduler.PendingWarOneShotAt(); got.IsZero() {
		t.Fatal("expected a pending one-shot after the in-war sweep")
	}

	if _, err := scheduler.RunWarSweepNow(ctx); err != nil {
		t.Fatalf("second sweep error: %v", err)
	}
	if got := scheduler.PendingWarOneShotAt(); !got.IsZero() {
		t.Fatalf("ended war must cancel the pending one-shot, got %v", got)
	}
}

func TestSchedulerOneShotFiresSweep(t *testing.T) {
	t.Parallel()

	notify := make(chan struct{}, 4)
	sweeper := &stubWarSweeper{
		notify: notify,
		results: []WarCollectResult{
			{State: war.StateInWar, EndTime: time.Now().UTC()},
			{State: war.StateWarEnded},
		},
	}
	scheduler := NewSchedulerService(sweeper, &stubLeagueSweeper{}, SchedulerConfig{WarEndLead: time.Millisecond}, logging.NewNop())
	defer scheduler.Stop()

	if _, err := scheduler.RunWarSweepNow(context.Background()); err != nil {
		t.Fatalf("RunWarSweepNow error: %v", err)
	}
	<-notify

	// The end time is already inside the lead window, so the snapshot sweep
	// fires immediately.
	select {
	case <-notify:
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot sweep never fired")
	}
}

func TestSchedulerStopClearsOneShots(t *testing.T) {
	t.Parallel()

	endTime := time.Now().UTC().Add(time.Hour)
	sweeper := &stubWarSweeper{results: []WarCollectResult{{State: war.StateInWar, EndTime: endTime}}}
	scheduler := NewSchedulerService(sweeper, &stubLeagueSweeper{}, SchedulerConfig{}, logging.NewNop())

	if _, err := scheduler.RunWarSweepNow(context.Background()); err != nil {
		t.Fatalf("RunWarSweepNow error: %v", err)
	}
	scheduler.Stop()

	if got := scheduler.PendingWarOneShotAt(); !got.IsZero() {
		t.Fatalf("Stop must cancel pending one-shots, got %v", got)
	}
}

func TestSchedulerArmsLeagueOneShot(t *testing.T) {
	t.Parallel()

	earliest := time.Now().UTC().Add(2 * time.Hour)
	league := &stubLeagueSweeper{result: LeagueCollectResult{State: "inWar", EarliestEndTime: earliest}}
	scheduler := NewSchedulerService(&stubWarSweeper{}, league, SchedulerConfig{WarEndLead: time.Minute}, logging.NewNop())
	defer scheduler.Stop()

	if _, err := scheduler.RunLeagueSweepNow(context.Background()); err != nil {
		t.Fatalf("RunLeagueSweepNow error: %v", err)
	}
	if got := scheduler.PendingLeagueOneShotAt(); !got.Equal(earliest.Add(-time.Minute)) {
		t.Fatalf("unexpected league one-shot: %v", got)
	}
}

func TestSchedulerLoopSurvivesErrorsAndPanics(t *testing.T) {
	t.Parallel()

	notify := make(chan struct{}, 4)
	sweeper := &stubWarSweeper{notify: notify, panics: true}
	league := &stubLeagueSweeper{err: errors.New("league down")}
	scheduler := NewSchedulerService(sweeper, league, SchedulerConfig{}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scheduler.Start(ctx)

	select {
	case <-notify:
	case <-time.After(2 * time.Second):
		t.Fatal("initial war sweep never ran")
	}

	scheduler.Stop()
	if sweeper.callCount() == 0 {
		t.Fatal("expected at least one sweep call")
	}
}
