// Package app builds the jobs and their shared infrastructure from
// configuration. Both the one-shot job binaries and the daemon use it.
package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/cache"
	"github.com/fortuna/goalfeed/internal/catalog"
	"github.com/fortuna/goalfeed/internal/config"
	"github.com/fortuna/goalfeed/internal/ingest/fetch"
	"github.com/fortuna/goalfeed/internal/ingest/render"
	"github.com/fortuna/goalfeed/internal/jobs"
	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/publisher"
	"github.com/fortuna/goalfeed/internal/reconciliation"
	"github.com/fortuna/goalfeed/internal/store"
	"github.com/fortuna/goalfeed/internal/store/runlog"
	"github.com/fortuna/goalfeed/internal/textnorm"
)

const progressEvery = 5 * time.Second

// App holds the registry of jobs and everything they share.
type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Registry *jobs.Registry
	Tracker  *jobs.Tracker
	Reporter jobs.Reporters
	Ledger   *runlog.Repository

	fetch    *fetch.Client
	resolver *reconciliation.Resolver
	catalog  jobs.Catalog
	db       *store.Database
	cache    *cache.RedisCache
	pages    *render.Browser
	closers  []func()
}

// New connects the optional backends and registers the jobs named in only,
// or every job when only is empty. Unreachable Redis or Postgres disables
// the feature that needs it; only unusable configuration is an error.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger, only ...string) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: jobs.NewRegistry(),
		Tracker:  jobs.NewTracker(0),
	}

	a.fetch = fetch.NewClient(fetch.Config{
		Timeout:      cfg.HTTP.Timeout,
		MaxAttempts:  cfg.HTTP.MaxAttempts,
		RetryDelay:   cfg.HTTP.RetryDelay,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		UserAgent:    cfg.HTTP.UserAgent,
		Logger:       logger,
	})
	a.resolver = reconciliation.NewResolver(reconciliation.Config{
		Threshold:   cfg.Fuzzy.Threshold,
		DefaultLogo: cfg.Fuzzy.DefaultLogo,
		Matcher:     reconciliation.NewMatcher(textnorm.New(cfg.Fuzzy.StopWords...)),
	})

	a.connectRedis(ctx)
	a.connectPostgres(ctx)

	catalogCfg := catalog.Config{
		ScheduleURL: cfg.Catalog.ScheduleURL,
		TeamsURL:    cfg.Catalog.TeamsURL,
		ScheduleDir: cfg.Catalog.ScheduleDir,
		TeamsDir:    cfg.Catalog.TeamsDir,
		CacheTTL:    cfg.Catalog.CacheTTL,
		Client:      a.fetch,
		Logger:      logger,
	}
	if a.cache != nil {
		catalogCfg.Cache = a.cache
	}
	a.catalog = freshCatalog{cfg: catalogCfg}

	a.Reporter = jobs.Reporters{jobs.NewLogReporter(logger), a.Tracker}
	if a.Ledger != nil {
		a.Reporter = append(a.Reporter, runlog.NewReporter(a.Ledger, progressEvery, logger))
	}
	if a.cache != nil {
		a.Reporter = append(a.Reporter, publisher.NewRedisStreamPublisher(a.cache.Client(), cfg.Redis.Stream, logger))
	}

	if err := a.registerJobs(only); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connectRedis(ctx context.Context) {
	if a.Config.Redis.URL == "" {
		return
	}
	rc, err := cache.NewRedisCache(ctx, a.Config.Redis.URL)
	if err != nil {
		a.Logger.Warn("redis unavailable, running without cache and publisher", "error", err)
		return
	}
	a.cache = rc
	a.closers = append(a.closers, func() { _ = rc.Close() })
}

func (a *App) connectPostgres(ctx context.Context) {
	if a.Config.Postgres.DSN == "" {
		return
	}
	db, err := store.NewDatabase(ctx, a.Config.Postgres.DSN, a.Logger)
	if err != nil {
		a.Logger.Warn("postgres unavailable, running without run ledger", "error", err)
		return
	}
	repo := runlog.NewRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		a.Logger.Warn("run ledger migration failed, running without it", "error", err)
		_ = db.Close()
		return
	}
	a.db = db
	a.Ledger = repo
	a.closers = append(a.closers, func() { _ = db.Close() })
}

// ResetStuckRuns marks ledger runs left behind by a crashed process.
func (a *App) ResetStuckRuns(ctx context.Context) {
	if a.Ledger == nil {
		return
	}
	n, err := a.Ledger.ResetStuckRuns(ctx)
	if err != nil {
		a.Logger.Warn("reset stuck runs failed", "error", err)
		return
	}
	if n > 0 {
		a.Logger.Info("marked interrupted runs", "count", n)
	}
}

// Run runs one registered job under the app's reporters.
func (a *App) Run(ctx context.Context, name string) (jobs.Summary, error) {
	return a.Registry.Run(ctx, name, a.Reporter)
}

// Checks returns health probes for the connected backends.
func (a *App) Checks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error)
	if a.db != nil {
		checks["postgres"] = a.db.HealthCheck
	}
	if a.cache != nil {
		checks["redis"] = a.cache.HealthCheck
	}
	return checks
}

// Close releases the browser and backend connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// freshCatalog builds a new catalog for every lookup so that a long-lived
// process sees upstream schedule updates. The Redis cache, when present,
// absorbs the repeated loads.
type freshCatalog struct {
	cfg catalog.Config
}

func (f freshCatalog) Schedules(ctx context.Context, leagues ...string) []reconciliation.Source {
	return catalog.New(f.cfg).Schedules(ctx, leagues...)
}

func (f freshCatalog) Teams(ctx context.Context, leagues ...string) []store.Team {
	return catalog.New(f.cfg).Teams(ctx, leagues...)
}

func loadZone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "load time zone %q", name)
	}
	return loc, nil
}
