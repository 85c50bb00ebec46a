package jobs

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fortuna/goalfeed/internal/ingest/streams"
	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/reconciliation"
	"github.com/fortuna/goalfeed/internal/store"
)

// StreamsConfig wires the stream listing job.
type StreamsConfig struct {
	Sources     []streams.Source
	Catalog     Catalog
	Resolver    *reconciliation.Resolver
	TeamLeagues []string
	Dir         string
	DisplayZone *time.Location
	Logger      *logging.Logger
	Now         func() time.Time
}

// StreamsJob writes one json/<source>.json per configured listing. Entries
// not seen again are kept only while their kickoff is today.
type StreamsJob struct {
	cfg StreamsConfig
}

// NewStreamsJob creates the streams job.
func NewStreamsJob(cfg StreamsConfig) *StreamsJob {
	if cfg.Resolver == nil {
		cfg.Resolver = reconciliation.NewResolver(reconciliation.Config{})
	}
	if cfg.DisplayZone == nil {
		cfg.DisplayZone = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &StreamsJob{cfg: cfg}
}

func (j *StreamsJob) Name() string {
	return "streams"
}

// Run refreshes every source in order; a failing source does not stop the
// others.
func (j *StreamsJob) Run(ctx context.Context) Summary {
	sum := Summary{Job: j.Name(), Status: StatusRunning, Started: j.cfg.Now()}
	crests := newCrestBook(j.cfg.Resolver, j.cfg.Catalog, j.cfg.TeamLeagues)
	for _, src := range j.cfg.Sources {
		if err := ctx.Err(); err != nil {
			sum.Errors++
			sum.LastError = err.Error()
			break
		}
		sum.Absorb(j.pipeline(src, crests).RunOnce(ctx))
	}
	sum.finish(j.cfg.Now())
	return sum
}

func (j *StreamsJob) pipeline(src streams.Source, crests *crestBook) *Pipeline[store.StreamLink, store.StreamLink] {
	return &Pipeline[store.StreamLink, store.StreamLink]{
		JobName: j.Name(),
		Source:  src,
		Build: func(ctx context.Context, link store.StreamLink, _ reconciliation.Outcome, _ *store.StreamLink) (store.StreamLink, bool) {
			if link.HomeLogo == "" {
				link.HomeLogo = crests.Crest(ctx, link.HomeTeam)
			}
			if link.AwayLogo == "" {
				link.AwayLogo = crests.Crest(ctx, link.AwayTeam)
			}
			return link, true
		},
		Key:   store.StreamLinkKey,
		Store: store.NewJSONFile[store.StreamLink](filepath.Join(j.cfg.Dir, StreamsDir, src.Name()+".json")),
		Merge: store.Options[store.StreamLink]{Policy: store.Overwrite},
		Keep: func(link store.StreamLink, fresh bool) bool {
			return fresh || streams.SameDay(link.Time, j.cfg.Now(), j.cfg.DisplayZone)
		},
		Logger: j.cfg.Logger,
		Now:    j.cfg.Now,
	}
}
