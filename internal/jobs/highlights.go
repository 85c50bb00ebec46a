package jobs

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fortuna/goalfeed/internal/ingest"
	"github.com/fortuna/goalfeed/internal/ingest/hoofoot"
	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/reconciliation"
	"github.com/fortuna/goalfeed/internal/store"
)

// HighlightsConfig wires the highlights job. Source is either the hoofoot
// feed or the crawler.
type HighlightsConfig struct {
	Source          Source[ingest.RawItem]
	Catalog         Catalog
	Resolver        *reconciliation.Resolver
	ScheduleLeagues []string
	TeamLeagues     []string
	Dir             string
	Cap             int
	Logger          *logging.Logger
	Now             func() time.Time
}

// HighlightsJob appends newly seen highlight entries to
// Highlights/Highlight.json. Entries that match no schedule are kept as
// fallbacks under the undefined league.
type HighlightsJob struct {
	cfg    HighlightsConfig
	engine *reconciliation.Engine
}

// NewHighlightsJob creates the highlights job.
func NewHighlightsJob(cfg HighlightsConfig) *HighlightsJob {
	if cfg.Resolver == nil {
		cfg.Resolver = reconciliation.NewResolver(reconciliation.Config{})
	}
	synth := reconciliation.NewSynthesizer(reconciliation.DefaultFieldMapping())
	return &HighlightsJob{
		cfg:    cfg,
		engine: reconciliation.NewEngine(cfg.Resolver, synth, reconciliation.KeepFallback, cfg.Logger),
	}
}

func (j *HighlightsJob) Name() string {
	return "highlights"
}

func (j *HighlightsJob) Run(ctx context.Context) Summary {
	crests := newCrestBook(j.cfg.Resolver, j.cfg.Catalog, j.cfg.TeamLeagues)
	p := &Pipeline[ingest.RawItem, store.Highlight]{
		JobName:  j.Name(),
		Source:   j.cfg.Source,
		Describe: describeRawItem,
		Engine:   j.engine,
		Candidates: func(ctx context.Context) []reconciliation.Source {
			if j.cfg.Catalog == nil {
				return nil
			}
			return j.cfg.Catalog.Schedules(ctx, j.cfg.ScheduleLeagues...)
		},
		ItemKey: func(item ingest.RawItem) string {
			return store.CompositeKey(item.SourceID, reconciliation.DateKey(item.Date))
		},
		Build: func(ctx context.Context, item ingest.RawItem, out reconciliation.Outcome, _ *store.Highlight) (store.Highlight, bool) {
			return BuildHighlight(item, out, func(name string) string { return crests.Crest(ctx, name) }), true
		},
		Key:    store.HighlightKey,
		Store:  store.NewJSONFile[store.Highlight](filepath.Join(j.cfg.Dir, HighlightsDir, "Highlight.json")),
		Merge:  store.Options[store.Highlight]{Policy: store.SkipIfPresent, MaxLen: j.cfg.Cap},
		Logger: j.cfg.Logger,
		Now:    j.cfg.Now,
	}

	j.engine.ResetMetrics()
	sum := p.RunOnce(ctx)
	m := j.engine.GetMetrics()
	logger := j.cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger.Info("highlight resolution", "job", j.Name(),
		"resolved", m.TotalResolutions, "matched", m.Matched, "fallbacks", m.Fallbacks)
	return sum
}

// describeRawItem keeps the date even when the teams cannot be split, so
// that a fallback record still carries it.
func describeRawItem(item ingest.RawItem) (reconciliation.Descriptor, bool) {
	d := reconciliation.Descriptor{Date: reconciliation.DateKey(item.Date)}
	home, away, ok := item.Teams()
	if !ok {
		return d, false
	}
	d.Home, d.Away = home, away
	return d, d.Date != ""
}

// BuildHighlight merges a highlight item with its resolved (or synthesized)
// match record. crest supplies logos the record lacks.
func BuildHighlight(item ingest.RawItem, out reconciliation.Outcome, crest func(string) string) store.Highlight {
	rec := out.Record
	date := reconciliation.DateKey(item.Date)
	home, away, _ := item.Teams()

	h := store.Highlight{
		HighlightID:  item.SourceID,
		League:       ingest.FallbackString(out.Source, reconciliation.DefaultLeague),
		Round:        rec.RoundName,
		Season:       rec.Season,
		Date:         ingest.FallbackString(rec.Date, date),
		DateTime:     ingest.FallbackString(rec.DateTime, date+"T00:00:00"),
		Status:       ingest.FallbackString(rec.Status, store.StatusFinished),
		Result:       rec.Result,
		Points:       rec.Points,
		Goals:        nonEmpty(rec.Goals),
		Title:        item.Title,
		HighlightURL: item.URL,
		EmbedURL:     item.EmbedURL,
		MatchType:    store.MatchTypeFallback,
		Source:       ingest.FallbackString(item.Source, hoofoot.SourceName),
	}
	h.HomeTeam = highlightTeam(rec.HomeTeamID, rec.HomeTeamKey, ingest.FallbackString(rec.HomeTeamName, home), rec.HomeTeamLogo, rec.HomeTeamScore, crest)
	h.AwayTeam = highlightTeam(rec.AwayTeamID, rec.AwayTeamKey, ingest.FallbackString(rec.AwayTeamName, away), rec.AwayTeamLogo, rec.AwayTeamScore, crest)
	if rec.GameID != 0 {
		id := rec.GameID
		h.GameID = &id
		h.MatchType = store.MatchTypeOfficial
	}
	return h
}

func highlightTeam(id int64, key, name, logo string, score *int, crest func(string) string) store.HighlightTeam {
	t := store.HighlightTeam{Key: key, Name: name, Logo: logo, Score: score}
	if id != 0 {
		t.ID = &id
	}
	if t.Logo == "" && crest != nil {
		t.Logo = crest(name)
	}
	return t
}
