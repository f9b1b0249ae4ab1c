package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/clanforge/war-tracker/external/clash"
	"github.com/clanforge/war-tracker/internal/config"
	"github.com/clanforge/war-tracker/internal/domain/jobscheduler"
	"github.com/clanforge/war-tracker/internal/domain/leaguewar"
	"github.com/clanforge/war-tracker/internal/domain/prediction"
	"github.com/clanforge/war-tracker/internal/domain/war"
	cacherepo "github.com/clanforge/war-tracker/internal/infrastructure/repository/cache"
	"github.com/clanforge/war-tracker/internal/infrastructure/repository/file"
	"github.com/clanforge/war-tracker/internal/infrastructure/repository/memory"
	"github.com/clanforge/war-tracker/internal/infrastructure/repository/postgres"
	"github.com/clanforge/war-tracker/internal/interfaces/httpapi"
	basecache "github.com/clanforge/war-tracker/internal/platform/cache"
	"github.com/clanforge/war-tracker/internal/platform/logging"
	"github.com/clanforge/war-tracker/internal/platform/resilience"
	"github.com/clanforge/war-tracker/internal/usecase"
)

// Application owns the HTTP server, the sweep scheduler and the resources
// they were built on. Start launches the background sweeps; Close stops
// them and releases the storage backend.
type Application struct {
	Server    *http.Server
	Scheduler *usecase.SchedulerService

	closers []func(context.Context) error
}

func New(cfg config.Config, logger *slog.Logger, appLogger *logging.Logger) (*Application, error) {
	if appLogger == nil {
		appLogger = logging.Default()
	}

	app := &Application{}

	warRepo, leagueRepo, dispatchRepo, err := buildRepositories(cfg, appLogger, app)
	if err != nil {
		return nil, err
	}

	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		warRepo = cacherepo.NewWarRepository(warRepo, store)
		leagueRepo = cacherepo.NewLeagueWarRepository(leagueRepo, store)
	}

	provider := clash.NewClient(clash.ClientConfig{
		BaseURL:        cfg.ClashBaseURL,
		Token:          cfg.ClashAPIToken,
		Timeout:        cfg.ClashTimeout,
		MaxRetries:     cfg.ClashMaxRetries,
		RetryBaseDelay: cfg.ClashRetryBaseDelay,
		Logger:         appLogger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.ClashCircuitEnabled,
			FailureThreshold: cfg.ClashCircuitFailureCount,
			OpenTimeout:      cfg.ClashCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ClashCircuitHalfOpenMaxReq,
		},
	})

	warCollector := usecase.NewWarCollectorService(provider, warRepo, cfg.ClanTag, appLogger)
	leagueCollector := usecase.NewLeagueCollectorService(provider, leagueRepo, cfg.ClanTag, usecase.LeagueCollectorConfig{
		FetchWorkers: cfg.LeagueFetchWorkers,
		FetchPause:   cfg.LeagueFetchPause,
	}, appLogger)

	scheduler := usecase.NewSchedulerService(warCollector, leagueCollector, usecase.SchedulerConfig{
		WarSweepInterval:    cfg.WarSweepInterval,
		LeagueSweepInterval: cfg.LeagueSweepInterval,
		WarEndLead:          cfg.WarEndLead,
	}, appLogger)

	handler := httpapi.NewHandler(
		usecase.NewWarQueryService(warRepo, appLogger),
		usecase.NewLeagueQueryService(leagueRepo, appLogger),
		usecase.NewPredictionService(warRepo, leagueRepo, prediction.DefaultConfig(), appLogger),
		usecase.NewStorageStatsService(warRepo, leagueRepo, appLogger),
		scheduler,
		dispatchRepo,
		appLogger,
	)
	router := httpapi.NewRouter(handler, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	app.Server = server
	app.Scheduler = scheduler
	return app, nil
}

// Start launches the periodic war and league sweeps.
func (a *Application) Start(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Start(ctx)
	}
}

// Close stops the scheduler and releases storage resources. It does not
// shut down the HTTP server; callers drive that through Server.Shutdown.
func (a *Application) Close(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	var firstErr error
	for _, closer := range a.closers {
		if err := closer(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// buildRepositories picks the storage backend: postgres when DB_URL is
// set, the JSON file store otherwise. Dispatch bookkeeping falls back to
// memory alongside the file store.
func buildRepositories(cfg config.Config, appLogger *logging.Logger, app *Application) (war.Repository, leaguewar.Repository, jobscheduler.Repository, error) {
	if cfg.DBURL == "" {
		appLogger.Info("storage backend selected", "backend", "file", "data_dir", cfg.DataDir)
		return file.NewWarRepository(cfg.DataDir, appLogger),
			file.NewLeagueWarRepository(cfg.DataDir, appLogger),
			memory.NewJobDispatchRepository(),
			nil
	}

	dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Connect("postgres", dbURL,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	app.closers = append(app.closers, func(context.Context) error { return db.Close() })

	appLogger.Info("storage backend selected", "backend", "postgres", "db_name", dbNameFromURL(cfg.DBURL))
	return postgres.NewWarRepository(db, appLogger),
		postgres.NewLeagueWarRepository(db, appLogger),
		postgres.NewJobDispatchRepository(db),
		nil
}
