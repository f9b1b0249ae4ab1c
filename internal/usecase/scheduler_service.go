package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/clanforge/war-tracker/internal/domain/war"
	"github.com/clanforge/war-tracker/internal/platform/logging"
)

const (
	defaultWarSweepInterval    = 2 * time.Hour
	defaultLeagueSweepInterval = 6 * time.Hour
	defaultWarEndLead          = time.Minute
)

type warSweeper interface {
	Collect(ctx context.Context) (WarCollectResult, error)
}

type leagueSweeper interface {
	Collect(ctx context.Context) (LeagueCollectResult, error)
}

type SchedulerConfig struct {
	WarSweepInterval    time.Duration
	LeagueSweepInterval time.Duration
	// WarEndLead is how long before a war's end time the final-snapshot
	// one-shot fires, so the closing attacks land in the stored record.
	WarEndLead time.Duration
}

func (cfg SchedulerConfig) withDefaults() SchedulerConfig {
	if cfg.WarSweepInterval <= 0 {
		cfg.WarSweepInterval = defaultWarSweepInterval
	}
	if cfg.LeagueSweepInterval <= 0 {
		cfg.LeagueSweepInterval = defaultLeagueSweepInterval
	}
	if cfg.WarEndLead <= 0 {
		cfg.WarEndLead = defaultWarEndLead
	}
	return cfg
}

// oneShot is a pending end-of-war snapshot timer for one stream.
type oneShot struct {
	target time.Time
	timer  *time.Timer
}

// SchedulerService drives the periodic war and league sweeps and arms
// end-of-war one-shots so the last attacks of a war are captured right
// before it closes. A sweep failure is logged, never fatal.
type SchedulerService struct {
	wars    warSweeper
	league  leagueSweeper
	cfg     SchedulerConfig
	logger  *logging.Logger
	now     func() time.Time
	workers conc.WaitGroup

	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
	warOneShot    *oneShot
	leagueOneShot *oneShot
}

func NewSchedulerService(
	wars warSweeper,
	league leagueSweeper,
	cfg SchedulerConfig,
	logger *logging.Logger,
) *SchedulerService {
	if logger == nil {
		logger = logging.Default()
	}

	return &SchedulerService{
		wars:   wars,
		league: league,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start launches both stream loops. Each loop sweeps once immediately and
// then on its interval until Stop is called or ctx is cancelled.
func (s *SchedulerService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.ctx = ctx
	s.mu.Unlock()

	s.workers.Go(func() { s.runLoop(ctx, "war", s.cfg.WarSweepInterval, s.sweepWar) })
	s.workers.Go(func() { s.runLoop(ctx, "league", s.cfg.LeagueSweepInterval, s.sweepLeague) })
}

// Stop cancels the loops and any pending one-shots, then waits for the
// stream goroutines to drain.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.warOneShot != nil {
		s.warOneShot.timer.Stop()
		s.warOneShot = nil
	}
	if s.leagueOneShot != nil {
		s.leagueOneShot.timer.Stop()
		s.leagueOneShot = nil
	}
	s.mu.Unlock()

	if recovered := s.workers.WaitAndRecover(); recovered != nil {
		s.logger.Error("scheduler goroutine panicked", "panic", recovered.String())
	}
}

// RunWarSweepNow triggers a standalone war sweep outside the schedule.
func (s *SchedulerService) RunWarSweepNow(ctx context.Context) (WarCollectResult, error) {
	result, err := s.wars.Collect(ctx)
	if err == nil {
		s.armWarOneShot(result.State, result.EndTime)
	}
	return result, err
}

// RunLeagueSweepNow triggers a league sweep outside the schedule.
func (s *SchedulerService) RunLeagueSweepNow(ctx context.Context) (LeagueCollectResult, error) {
	result, err := s.league.Collect(ctx)
	if err == nil {
		s.armLeagueOneShot(result.EarliestEndTime)
	}
	return result, err
}

// PendingWarOneShotAt reports when the armed standalone one-shot fires, or
// a zero time when none is pending.
func (s *SchedulerService) PendingWarOneShotAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.warOneShot == nil {
		return time.Time{}
	}
	return s.warOneShot.target
}

// PendingLeagueOneShotAt reports when the armed league one-shot fires, or a
// zero time when none is pending.
func (s *SchedulerService) PendingLeagueOneShotAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leagueOneShot == nil {
		return time.Time{}
	}
	return s.leagueOneShot.target
}

func (s *SchedulerService) runLoop(ctx context.Context, stream string, interval time.Duration, sweep func(context.Context)) {
	s.runSweep(ctx, stream, sweep)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx, stream, sweep)
		}
	}
}

// runSweep isolates one sweep execution. Panics and errors are logged so a
// bad payload never takes the loop down.
func (s *SchedulerService) runSweep(ctx context.Context, stream string, sweep func(context.Context)) {
	if recovered := panics.Try(func() { sweep(ctx) }); recovered != nil {
		s.logger.ErrorContext(ctx, "sweep panicked", "stream", stream, "panic", recovered.String())
	}
}

func (s *SchedulerService) sweepWar(ctx context.Context) {
	result, err := s.wars.Collect(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "war sweep failed", "error", err)
		return
	}
	s.armWarOneShot(result.State, result.EndTime)
}

func (s *SchedulerService) sweepLeague(ctx context.Context) {
	result, err := s.league.Collect(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "league sweep failed", "error", err)
		return
	}
	s.armLeagueOneShot(result.EarliestEndTime)
}

func (s *SchedulerService) armWarOneShot(state string, endTime time.Time) {
	if state == war.StateWarEnded {
		s.cancelOneShot(&s.warOneShot)
		return
	}
	if (state != war.StatePreparation && state != war.StateInWar) || endTime.IsZero() {
		return
	}
	s.arm(&s.warOneShot, endTime, func(ctx context.Context) {
		s.runSweep(ctx, "war", s.sweepWar)
	})
}

func (s *SchedulerService) armLeagueOneShot(earliestEnd time.Time) {
	if earliestEnd.IsZero() {
		return
	}
	s.arm(&s.leagueOneShot, earliestEnd, func(ctx context.Context) {
		s.runSweep(ctx, "league", s.sweepLeague)
	})
}

func (s *SchedulerService) cancelOneShot(slot **oneShot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pending := *slot; pending != nil {
		pending.timer.Stop()
		*slot = nil
	}
}

// arm schedules a snapshot sweep just before endTime. A pending one-shot
// for the same target is kept; a different target replaces it.
func (s *SchedulerService) arm(slot **oneShot, endTime time.Time, fire func(context.Context)) {
	target := endTime.Add(-s.cfg.WarEndLead)

	s.mu.Lock()
	defer s.mu.Unlock()

	if pending := *slot; pending != nil {
		if pending.target.Equal(target) {
			return
		}
		pending.timer.Stop()
		*slot = nil
	}

	delay := target.Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	pending := &oneShot{target: target}
	pending.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if *slot == pending {
			*slot = nil
		}
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		s.workers.Go(func() { fire(ctx) })
	})
	*slot = pending
}
