package reconciliation

import (
	"strings"

	"github.com/fortuna/goalfeed/internal/store"
)

// DefaultLogo is the crest used when a team cannot be resolved.
const DefaultLogo = "https://raw.githubusercontent.com/gowrapavan/Goal4u/main/public/assets/img/tv-logo/aves.png"

// Descriptor is the query key for resolution: a date and two team names.
type Descriptor struct {
	Date string
	Home string
	Away string
}

// Source is a named collection of canonical schedule records, usually one
// league.
type Source struct {
	Name    string
	Records []store.Match
}

// Resolution is the result of resolving a descriptor. Matched is true only
// when a date-gated candidate reached the threshold.
type Resolution struct {
	Matched    bool
	ID         *int64
	Record     *store.Match
	Score      float64
	Source     string
	Candidates int
}

// Config configures a Resolver.
type Config struct {
	Threshold   float64
	DefaultLogo string
	Matcher     *Matcher
}

// Resolver attaches canonical identities to loosely described matches
type Resolver struct {
	matcher     *Matcher
	threshold   float64
	defaultLogo string
}

// NewResolver creates a resolver, filling defaults for zero config values
func NewResolver(cfg Config) *Resolver {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.DefaultLogo == "" {
		cfg.DefaultLogo = DefaultLogo
	}
	if cfg.Matcher == nil {
		cfg.Matcher = defaultMatcher
	}
	return &Resolver{
		matcher:     cfg.Matcher,
		threshold:   cfg.Threshold,
		defaultLogo: cfg.DefaultLogo,
	}
}

// Threshold returns the minimum accepted score
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

type scoredCandidate struct {
	record *store.Match
	source string
}

// Resolve searches all sources for the record best matching d. Only records
// whose own date equals d's date are scored; the best across all sources
// wins and carries its source name.
func (r *Resolver) Resolve(d Descriptor, sources []Source) Resolution {
	date := DateKey(d.Date)
	if date == "" {
		return Resolution{}
	}

	var candidates []scoredCandidate
	for _, src := range sources {
		for i := range src.Records {
			rec := &src.Records[i]
			if DateKey(rec.Date) != date {
				continue
			}
			candidates = append(candidates, scoredCandidate{record: rec, source: src.Name})
		}
	}

	best := BestMatch(candidates, func(c scoredCandidate) float64 {
		return r.ScoreRecord(d, c.record)
	})

	res := Resolution{Score: best.Score, Candidates: len(candidates)}
	if !best.Found || best.Score < r.threshold {
		return res
	}

	record := *best.Item.record
	id := record.GameID
	res.Matched = true
	res.Record = &record
	res.ID = &id
	res.Source = best.Item.source
	return res
}

// ScoreRecord scores d against every alias field of rec.
func (r *Resolver) ScoreRecord(d Descriptor, rec *store.Match) float64 {
	return r.matcher.CompositeScore(
		Component{Query: d.Home, Aliases: []string{rec.HomeTeamName, rec.HomeTeamKey, rec.HomeTeam}},
		Component{Query: d.Away, Aliases: []string{rec.AwayTeamName, rec.AwayTeamKey, rec.AwayTeam}},
	)
}

// ResolveCrest finds the crest of the team best matching name, without any
// date gate. It returns the placeholder logo when nothing reaches the
// threshold or the matched team has no crest.
func (r *Resolver) ResolveCrest(name string, teams []store.Team) string {
	if team, ok := r.ResolveTeam(name, teams); ok && strings.TrimSpace(team.Crest) != "" {
		return team.Crest
	}
	return r.defaultLogo
}

// ResolveTeam returns the registry entry best matching name.
func (r *Resolver) ResolveTeam(name string, teams []store.Team) (store.Team, bool) {
	if strings.TrimSpace(name) == "" {
		return store.Team{}, false
	}
	best := BestMatch(teams, func(t store.Team) float64 {
		return r.matcher.ComponentScore(name, t.Name, t.ShortName, t.TLA)
	})
	if !best.Found || best.Score < r.threshold {
		return store.Team{}, false
	}
	return best.Item, true
}

// DefaultLogo returns the placeholder crest.
func (r *Resolver) DefaultLogo() string {
	return r.defaultLogo
}

// DateKey reduces loose date strings ("2025_01_10", "2025-01-10T15:00:00Z")
// to their YYYY-MM-DD prefix.
func DateKey(raw string) string {
	key := strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")
	if len(key) > 10 {
		key = key[:10]
	}
	return key
}
