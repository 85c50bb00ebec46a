package app

import (
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/config"
	"github.com/fortuna/goalfeed/internal/ingest"
	"github.com/fortuna/goalfeed/internal/ingest/apisports"
	"github.com/fortuna/goalfeed/internal/ingest/footballdata"
	"github.com/fortuna/goalfeed/internal/ingest/hoofoot"
	"github.com/fortuna/goalfeed/internal/ingest/render"
	"github.com/fortuna/goalfeed/internal/ingest/streams"
	"github.com/fortuna/goalfeed/internal/ingest/youtube"
	"github.com/fortuna/goalfeed/internal/jobs"
)

// JobNames lists every job the app can build.
var JobNames = []string{
	"matches", "teams", "standings", "scorers", "stats",
	"highlights", "shorts", "videos", "streams",
}

type builder func(a *App) (jobs.Job, error)

var builders = map[string]builder{
	"matches":    func(a *App) (jobs.Job, error) { return jobs.NewMatchesJob(a.footballConfig()), nil },
	"teams":      func(a *App) (jobs.Job, error) { return jobs.NewTeamsJob(a.footballConfig()), nil },
	"standings":  func(a *App) (jobs.Job, error) { return jobs.NewStandingsJob(a.footballConfig()), nil },
	"scorers":    func(a *App) (jobs.Job, error) { return jobs.NewScorersJob(a.footballConfig()), nil },
	"stats":      (*App).statsJob,
	"highlights": (*App).highlightsJob,
	"shorts":     (*App).shortsJob,
	"videos":     (*App).videosJob,
	"streams":    (*App).streamsJob,
}

func (a *App) registerJobs(only []string) error {
	names := only
	if len(names) == 0 {
		names = JobNames
	}
	for _, name := range names {
		build, ok := builders[name]
		if !ok {
			return errors.Wrapf(jobs.ErrUnknownJob, "%q", name)
		}
		job, err := build(a)
		if err != nil {
			return errors.Wrapf(err, "build %s", name)
		}
		if err := a.Registry.Register(job); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) footballConfig() jobs.FootballConfig {
	fd := a.Config.FootballData
	client := footballdata.NewClient(footballdata.Config{
		BaseURL:  fd.BaseURL,
		Tokens:   fd.Tokens,
		Interval: fd.Interval,
		Fetch:    a.fetch,
	})

	codes := config.Pairs(fd.Competitions)
	seasons := config.IntPairs(fd.SeasonOverrides)
	leagues := make([]jobs.League, 0, len(codes))
	for _, name := range config.PairKeys(fd.Competitions) {
		season, ok := seasons[name]
		if !ok {
			season = fd.Season
		}
		leagues = append(leagues, jobs.League{Name: name, Code: codes[name], Season: season})
	}

	return jobs.FootballConfig{
		Client:     client,
		Leagues:    leagues,
		Dir:        a.Config.OutputDir,
		PastDays:   fd.PastDays,
		FutureDays: fd.FutureDays,
		Logger:     a.Logger,
	}
}

func (a *App) statsJob() (jobs.Job, error) {
	as := a.Config.APISports
	client := apisports.NewClient(apisports.Config{
		BaseURL:  as.BaseURL,
		Keys:     as.Keys,
		Timezone: as.Timezone,
		Pause:    as.Pause,
		Fetch:    a.fetch,
	})

	ids := config.Pairs(as.Leagues)
	leagues := make([]jobs.StatsLeague, 0, len(ids))
	for _, name := range config.PairKeys(as.Leagues) {
		id, err := strconv.ParseInt(ids[name], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "api_sports league %s", name)
		}
		leagues = append(leagues, jobs.StatsLeague{Name: name, ID: id})
	}

	var hours *jobs.ActiveHours
	if as.Window.Enabled {
		zone, err := loadZone(as.Window.Zone)
		if err != nil {
			return nil, err
		}
		hours = &jobs.ActiveHours{Start: as.Window.Start, End: as.Window.End, Zone: zone}
	}

	return jobs.NewStatsJob(jobs.StatsConfig{
		Client:   client,
		Catalog:  a.catalog,
		Resolver: a.resolver,
		Leagues:  leagues,
		Dir:      a.Config.OutputDir,
		DaysBack: as.DaysBack,
		Hours:    hours,
		Logger:   a.Logger,
	}), nil
}

func (a *App) highlightsJob() (jobs.Job, error) {
	hc := a.Config.Highlights
	var source jobs.Source[ingest.RawItem]
	switch hc.Mode {
	case "crawl":
		ids := config.IntPairs(hc.Leagues)
		leagues := make([]hoofoot.League, 0, len(ids))
		for _, code := range config.PairKeys(hc.Leagues) {
			leagues = append(leagues, hoofoot.League{Code: code, ID: ids[code]})
		}
		source = hoofoot.NewCrawler(a.browser(), hc.BaseURL, leagues, a.Logger)
	default:
		source = hoofoot.FeedSource{Client: a.fetch, URL: hc.FeedURL}
	}

	return jobs.NewHighlightsJob(jobs.HighlightsConfig{
		Source:          source,
		Catalog:         a.catalog,
		Resolver:        a.resolver,
		ScheduleLeagues: a.Config.Catalog.ScheduleLeagues,
		TeamLeagues:     a.Config.Catalog.TeamLeagues,
		Dir:             a.Config.OutputDir,
		Cap:             hc.Cap,
		Logger:          a.Logger,
	}), nil
}

func (a *App) youtubeClient() *youtube.Client {
	yc := a.Config.YouTube
	return youtube.NewClient(youtube.Config{
		BaseURL:    yc.BaseURL,
		Keys:       yc.Keys,
		Interval:   yc.Interval,
		MaxResults: yc.MaxResults,
		Fetch:      a.fetch,
	})
}

func (a *App) shortsJob() (jobs.Job, error) {
	sc := a.Config.YouTube.Shorts
	source := youtube.NewShortsSource(a.youtubeClient(), youtube.ShortsOptions{
		Channels:   sc.Channels,
		DaysBack:   sc.DaysBack,
		MaxSeconds: sc.MaxSeconds,
		Logger:     a.Logger,
	})
	return jobs.NewShortsJob(jobs.VideoFeedConfig{
		Source: source,
		Dir:    a.Config.OutputDir,
		Cap:    sc.Cap,
		Logger: a.Logger,
	}), nil
}

func (a *App) videosJob() (jobs.Job, error) {
	vc := a.Config.YouTube.Videos
	source := youtube.NewVideosSource(a.youtubeClient(), youtube.VideosOptions{
		Channels:   vc.Channels,
		Query:      vc.Query,
		DaysBack:   vc.DaysBack,
		MinSeconds: vc.MinSeconds,
		MaxSeconds: vc.MaxSeconds,
		PerChannel: vc.PerChannel,
		Logger:     a.Logger,
	})
	return jobs.NewVideosJob(jobs.VideoFeedConfig{
		Source: source,
		Dir:    a.Config.OutputDir,
		Cap:    vc.Cap,
		Logger: a.Logger,
	}), nil
}

func (a *App) streamsJob() (jobs.Job, error) {
	sc := a.Config.Streams
	zone, err := loadZone(sc.DisplayZone)
	if err != nil {
		return nil, err
	}

	specs := streams.Select(append(streams.DefaultSources(), streamSites(sc.Sources)...), sc.Enabled)
	opts := streams.Options{DisplayZone: zone, Logger: a.Logger}
	sources := make([]streams.Source, 0, len(specs))
	for _, spec := range specs {
		var pages render.Pages = render.HTTPPages{Client: a.fetch}
		if spec.Render {
			pages = a.browser()
		}
		src, err := streams.New(spec, pages, opts)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	return jobs.NewStreamsJob(jobs.StreamsConfig{
		Sources:     sources,
		Catalog:     a.catalog,
		Resolver:    a.resolver,
		TeamLeagues: a.Config.Catalog.TeamLeagues,
		Dir:         a.Config.OutputDir,
		DisplayZone: zone,
		Logger:      a.Logger,
	}), nil
}

// browser returns the shared headless browser, starting its allocator on
// first use.
func (a *App) browser() *render.Browser {
	if a.pages == nil {
		rc := a.Config.Render
		a.pages = render.NewBrowser(render.BrowserConfig{
			Interval:    rc.Interval,
			PageTimeout: rc.PageTimeout,
			Settle:      rc.Settle,
			UserAgent:   a.Config.HTTP.UserAgent,
			Logger:      a.Logger,
		})
		a.closers = append(a.closers, a.pages.Close)
	}
	return a.pages
}

// streamSites maps configured listings onto the adapter's site type.
func streamSites(sources []config.StreamSource) []streams.Site {
	out := make([]streams.Site, 0, len(sources))
	for _, src := range sources {
		out = append(out, streams.Site(src))
	}
	return out
}
