package jobs

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/ingest/fetch"
	"github.com/fortuna/goalfeed/internal/ingest/footballdata"
	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/reconciliation"
	"github.com/fortuna/goalfeed/internal/store"
)

const defaultScorersLimit = 20

// League pairs an artifact name (EPL, ESP, ...) with an upstream
// competition code.
type League struct {
	Name   string
	Code   string
	Season int
}

// FootballConfig wires the football-data.org jobs.
type FootballConfig struct {
	Client       *footballdata.Client
	Leagues      []League
	Dir          string
	PastDays     int
	FutureDays   int
	ScorersLimit int
	Logger       *logging.Logger
	Now          func() time.Time
}

func (c FootballConfig) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// resultErr turns a failed single-call fetch into a source error.
func resultErr(res fetch.Result, what string) error {
	if !res.Failed() {
		return nil
	}
	if res.Err == nil {
		return errors.Newf("%s: %s", what, res.Kind)
	}
	return errors.Wrapf(res.Err, "%s (%s)", what, res.Kind)
}

// NewMatchesJob refreshes matches/<LEAGUE>.json for every league inside the
// configured day window. A stored final result is never replaced by a
// refetch of the same finished match.
func NewMatchesJob(cfg FootballConfig) *Multi {
	parts := make([]Job, 0, len(cfg.Leagues))
	for _, lg := range cfg.Leagues {
		parts = append(parts, &Pipeline[footballdata.APIMatch, store.Match]{
			JobName: "matches",
			Source: SourceFunc[footballdata.APIMatch](func(ctx context.Context) ([]footballdata.APIMatch, error) {
				matches, res := cfg.Client.FetchMatches(ctx, lg.Code, lg.Season)
				if err := resultErr(res, "matches "+lg.Code); err != nil {
					return nil, err
				}
				window := footballdata.Window{Today: cfg.now(), Past: cfg.PastDays, Future: cfg.FutureDays}
				inWindow := make([]footballdata.APIMatch, 0, len(matches))
				for _, m := range matches {
					if window.Contains(m) {
						inWindow = append(inWindow, m)
					}
				}
				return inWindow, nil
			}),
			ItemKey: func(m footballdata.APIMatch) string {
				if m.ID == 0 {
					return ""
				}
				return strconv.FormatInt(m.ID, 10)
			},
			Build: func(_ context.Context, m footballdata.APIMatch, _ reconciliation.Outcome, prior *store.Match) (store.Match, bool) {
				if prior != nil && prior.Final() && m.Status == footballdata.StatusFinished {
					return store.Match{}, false
				}
				return footballdata.ProcessMatch(m), true
			},
			Key:   store.MatchKey,
			Store: store.NewJSONFile[store.Match](filepath.Join(cfg.Dir, MatchesDir, lg.Name+".json")),
			Merge: store.Options[store.Match]{Policy: store.Overwrite, Combine: keepFinal},
			Order: func(ms []store.Match) {
				sort.SliceStable(ms, func(i, j int) bool { return ms[i].GameID < ms[j].GameID })
			},
			Logger: cfg.Logger,
			Now:    cfg.Now,
		})
	}
	return NewMulti("matches", parts...)
}

func keepFinal(old, incoming store.Match) store.Match {
	if old.Final() && incoming.Status == store.StatusFinal {
		return old
	}
	return incoming
}

// NewTeamsJob writes the team registry of every league to teams/<LEAGUE>.json.
func NewTeamsJob(cfg FootballConfig) *Multi {
	parts := make([]Job, 0, len(cfg.Leagues))
	for _, lg := range cfg.Leagues {
		parts = append(parts, &Pipeline[store.Team, store.Team]{
			JobName: "teams",
			Source: SourceFunc[store.Team](func(ctx context.Context) ([]store.Team, error) {
				teams, res := cfg.Client.FetchTeams(ctx, lg.Code)
				return teams, resultErr(res, "teams "+lg.Code)
			}),
			Build:    identity[store.Team],
			Key:      store.TeamKey,
			Store:    store.NewJSONFile[store.Team](filepath.Join(cfg.Dir, TeamsDir, lg.Name+".json")),
			Merge:    store.Options[store.Team]{Policy: store.Overwrite},
			Snapshot: true,
			Logger:   cfg.Logger,
			Now:      cfg.Now,
		})
	}
	return NewMulti("teams", parts...)
}

// NewStandingsJob writes the TOTAL table of every league to
// standing/<LEAGUE>.json, ordered by position.
func NewStandingsJob(cfg FootballConfig) *Multi {
	parts := make([]Job, 0, len(cfg.Leagues))
	for _, lg := range cfg.Leagues {
		parts = append(parts, &Pipeline[store.StandingRow, store.StandingRow]{
			JobName: "standings",
			Source: SourceFunc[store.StandingRow](func(ctx context.Context) ([]store.StandingRow, error) {
				standings, res := cfg.Client.FetchStandings(ctx, lg.Code)
				if err := resultErr(res, "standings "+lg.Code); err != nil {
					return nil, err
				}
				return footballdata.TotalTable(standings), nil
			}),
			Build:    identity[store.StandingRow],
			Key:      store.StandingRowKey,
			Store:    store.NewJSONFile[store.StandingRow](filepath.Join(cfg.Dir, StandingsDir, lg.Name+".json")),
			Merge:    store.Options[store.StandingRow]{Policy: store.Overwrite},
			Snapshot: true,
			Order: func(rows []store.StandingRow) {
				sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
			},
			Logger: cfg.Logger,
			Now:    cfg.Now,
		})
	}
	return NewMulti("standings", parts...)
}

// NewScorersJob writes the top scorers of every league to
// scorers/<LEAGUE>.json, most goals first.
func NewScorersJob(cfg FootballConfig) *Multi {
	limit := cfg.ScorersLimit
	if limit <= 0 {
		limit = defaultScorersLimit
	}
	parts := make([]Job, 0, len(cfg.Leagues))
	for _, lg := range cfg.Leagues {
		parts = append(parts, &Pipeline[store.Scorer, store.Scorer]{
			JobName: "scorers",
			Source: SourceFunc[store.Scorer](func(ctx context.Context) ([]store.Scorer, error) {
				scorers, res := cfg.Client.FetchScorers(ctx, lg.Code, limit)
				return scorers, resultErr(res, "scorers "+lg.Code)
			}),
			Build:    identity[store.Scorer],
			Key:      store.ScorerKey,
			Store:    store.NewJSONFile[store.Scorer](filepath.Join(cfg.Dir, ScorersDir, lg.Name+".json")),
			Merge:    store.Options[store.Scorer]{Policy: store.Overwrite},
			Snapshot: true,
			Order: func(ss []store.Scorer) {
				sort.SliceStable(ss, func(i, j int) bool { return ss[i].Goals > ss[j].Goals })
			},
			Logger: cfg.Logger,
			Now:    cfg.Now,
		})
	}
	return NewMulti("scorers", parts...)
}

func identity[T any](_ context.Context, item T, _ reconciliation.Outcome, _ *T) (T, bool) {
	return item, true
}
