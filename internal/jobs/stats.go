package jobs

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fortuna/goalfeed/internal/ingest"
	"github.com/fortuna/goalfeed/internal/ingest/apisports"
	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/reconciliation"
	"github.com/fortuna/goalfeed/internal/store"
)

const dayLayout = "2006-01-02"

// Catalog supplies canonical schedules and team registries.
type Catalog interface {
	Schedules(ctx context.Context, leagues ...string) []reconciliation.Source
	Teams(ctx context.Context, leagues ...string) []store.Team
}

// ActiveHours is a daily span [Start, End) in Zone. End before Start spans
// midnight; equal bounds mean all day.
type ActiveHours struct {
	Start int
	End   int
	Zone  *time.Location
}

// Contains reports whether t falls inside the span.
func (a ActiveHours) Contains(t time.Time) bool {
	if a.Start == a.End {
		return true
	}
	if a.Zone != nil {
		t = t.In(a.Zone)
	}
	h := t.Hour()
	if a.Start < a.End {
		return h >= a.Start && h < a.End
	}
	return h >= a.Start || h < a.End
}

// StatsLeague maps an artifact name to an api-sports league id.
type StatsLeague struct {
	Name string
	ID   int64
}

// StatsConfig wires the fixture statistics job.
type StatsConfig struct {
	Client   *apisports.Client
	Catalog  Catalog
	Resolver *reconciliation.Resolver
	Leagues  []StatsLeague
	Dir      string
	DaysBack int

	// Hours, when set, skips runs outside the span.
	Hours  *ActiveHours
	Logger *logging.Logger
	Now    func() time.Time
}

type dayFixture struct {
	apisports.Fixture
	Today bool
}

// StatsJob links api-sports fixtures to canonical GameIds and keeps their
// detail blocks in stats/<LEAGUE>.json. Fixtures that do not resolve are
// dropped.
type StatsJob struct {
	cfg    StatsConfig
	engine *reconciliation.Engine
	logger *logging.Logger
}

// NewStatsJob creates the stats job.
func NewStatsJob(cfg StatsConfig) *StatsJob {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &StatsJob{
		cfg:    cfg,
		engine: reconciliation.NewEngine(cfg.Resolver, nil, reconciliation.RequireOfficial, cfg.Logger),
		logger: cfg.Logger.With("job", "stats"),
	}
}

func (j *StatsJob) Name() string {
	return "stats"
}

// Run fetches each day once and runs one pipeline per league over that
// day's fixtures.
func (j *StatsJob) Run(ctx context.Context) Summary {
	now := j.cfg.Now()
	sum := Summary{Job: j.Name(), Status: StatusRunning, Started: now}

	if j.cfg.Hours != nil && !j.cfg.Hours.Contains(now) {
		j.logger.Info("outside active hours, skipping", "start", j.cfg.Hours.Start, "end", j.cfg.Hours.End)
		sum.finish(j.cfg.Now())
		return sum
	}

	var failures ingest.Failures
	byLeague := make(map[int64][]dayFixture)
	for delta := -j.cfg.DaysBack; delta <= 0; delta++ {
		if ctx.Err() != nil {
			failures.Add(ctx.Err())
			break
		}
		date := now.UTC().AddDate(0, 0, delta).Format(dayLayout)
		fixtures, res := j.cfg.Client.FixturesByDate(ctx, date)
		if failures.Observe(res, "fixtures "+date) {
			continue
		}
		for _, fx := range fixtures {
			byLeague[fx.League.ID] = append(byLeague[fx.League.ID], dayFixture{Fixture: fx, Today: delta == 0})
		}
	}
	if n := failures.Count(); n > 0 {
		sum.Errors += n
		if err := failures.Err(); err != nil {
			sum.LastError = err.Error()
			ReporterFrom(ctx).OnJobError(j.Name(), err)
		}
	}

	for _, lg := range j.cfg.Leagues {
		fixtures := byLeague[lg.ID]
		var blockFailures ingest.Failures
		part := j.pipeline(lg, fixtures, &blockFailures).RunOnce(ctx)
		if n := blockFailures.Count(); n > 0 {
			part.Errors += n
			part.Status = StatusDegraded
			if err := blockFailures.Err(); err != nil {
				part.LastError = err.Error()
			}
		}
		sum.Absorb(part)
	}

	sum.finish(j.cfg.Now())
	return sum
}

func (j *StatsJob) pipeline(lg StatsLeague, fixtures []dayFixture, failures *ingest.Failures) *Pipeline[dayFixture, store.FixtureStats] {
	return &Pipeline[dayFixture, store.FixtureStats]{
		JobName: j.Name(),
		Source: SourceFunc[dayFixture](func(context.Context) ([]dayFixture, error) {
			return fixtures, nil
		}),
		Describe: func(fx dayFixture) (reconciliation.Descriptor, bool) {
			d := reconciliation.Descriptor{Date: fx.Day(), Home: fx.Teams.Home.Name, Away: fx.Teams.Away.Name}
			return d, d.Date != "" && d.Home != "" && d.Away != ""
		},
		Engine: j.engine,
		Candidates: func(ctx context.Context) []reconciliation.Source {
			return j.cfg.Catalog.Schedules(ctx, lg.Name)
		},
		ItemKey: func(fx dayFixture) string {
			if fx.Fixture.Fixture.ID == 0 {
				return ""
			}
			return strconv.FormatInt(fx.Fixture.Fixture.ID, 10)
		},
		Build: func(ctx context.Context, fx dayFixture, out reconciliation.Outcome, prior *store.FixtureStats) (store.FixtureStats, bool) {
			return j.build(ctx, fx, out, prior, failures), true
		},
		Key:    store.FixtureStatsKey,
		Store:  store.NewJSONFile[store.FixtureStats](filepath.Join(j.cfg.Dir, StatsDir, lg.Name+".json")),
		Merge:  store.Options[store.FixtureStats]{Policy: store.Overwrite, Combine: keepBlocks},
		Logger: j.cfg.Logger,
		Now:    j.cfg.Now,
	}
}

func (j *StatsJob) build(ctx context.Context, fx dayFixture, out reconciliation.Outcome, prior *store.FixtureStats, failures *ingest.Failures) store.FixtureStats {
	rec := store.FixtureStats{
		StatsID:    fx.Fixture.Fixture.ID,
		GameID:     out.Record.GameID,
		Date:       fx.Fixture.Fixture.Date,
		Status:     fx.Fixture.Fixture.Status.Short,
		Round:      fx.League.Round,
		HomeTeam:   fx.Teams.Home.Name,
		AwayTeam:   fx.Teams.Away.Name,
		Score:      store.FixtureScore{Home: fx.Goals.Home, Away: fx.Goals.Away},
		Events:     []any{},
		Lineups:    []any{},
		Statistics: []any{},
		Players:    []any{},
		HeadToHead: []any{},
	}
	if prior != nil {
		rec.Events = nonEmpty(prior.Events)
		rec.Lineups = nonEmpty(prior.Lineups)
		rec.Statistics = nonEmpty(prior.Statistics)
		rec.Players = nonEmpty(prior.Players)
		rec.HeadToHead = nonEmpty(prior.HeadToHead)
	}

	for _, block := range apisports.Blocks {
		slot := blockSlot(&rec, block)
		if len(*slot) > 0 && !fx.Today {
			continue
		}
		data, res := j.cfg.Client.FixtureBlock(ctx, block, rec.StatsID)
		if failures.Observe(res, block+" "+strconv.FormatInt(rec.StatsID, 10)) {
			continue
		}
		if len(data) > 0 || len(*slot) == 0 {
			*slot = data
		}
	}
	return rec
}

func blockSlot(rec *store.FixtureStats, block string) *[]any {
	switch block {
	case apisports.BlockEvents:
		return &rec.Events
	case apisports.BlockLineups:
		return &rec.Lineups
	case apisports.BlockStatistics:
		return &rec.Statistics
	default:
		return &rec.Players
	}
}

// keepBlocks keeps stored detail blocks the incoming record lacks.
func keepBlocks(old, incoming store.FixtureStats) store.FixtureStats {
	if len(incoming.Events) == 0 {
		incoming.Events = old.Events
	}
	if len(incoming.Lineups) == 0 {
		incoming.Lineups = old.Lineups
	}
	if len(incoming.Statistics) == 0 {
		incoming.Statistics = old.Statistics
	}
	if len(incoming.Players) == 0 {
		incoming.Players = old.Players
	}
	if len(incoming.HeadToHead) == 0 {
		incoming.HeadToHead = old.HeadToHead
	}
	return incoming
}

func nonEmpty(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}
