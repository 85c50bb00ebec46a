// Package catalog loads the canonical collections that resolution runs
// against: league schedules and team registries.
package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/ingest/fetch"
	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/reconciliation"
	"github.com/fortuna/goalfeed/internal/store"
)

const leaguePlaceholder = "{league}"

// Cache is the optional shared cache for loaded collections.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Config locates schedules and team registries. URL templates carry a
// {league} placeholder; directories hold <league>.json files.
type Config struct {
	ScheduleURL string
	TeamsURL    string
	ScheduleDir string
	TeamsDir    string
	CacheTTL    time.Duration
	Client      *fetch.Client
	Cache       Cache
	Logger      *logging.Logger
}

// Catalog loads collections, URL first and local file second, and memoizes
// them for its own lifetime.
type Catalog struct {
	cfg    Config
	logger *logging.Logger

	mu        sync.Mutex
	schedules map[string][]store.Match
	teams     map[string][]store.Team
}

// New creates a catalog
func New(cfg Config) *Catalog {
	if cfg.Client == nil {
		cfg.Client = fetch.NewClient(fetch.Config{})
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Catalog{
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "catalog"),
		schedules: make(map[string][]store.Match),
		teams:     make(map[string][]store.Team),
	}
}

// Schedule returns the schedule of one league. It never returns nil.
func (c *Catalog) Schedule(ctx context.Context, league string) []store.Match {
	c.mu.Lock()
	if recs, ok := c.schedules[league]; ok {
		c.mu.Unlock()
		return recs
	}
	c.mu.Unlock()

	recs := load(ctx, c, "schedule", league, c.cfg.ScheduleURL, c.cfg.ScheduleDir, decodeSchedule)

	c.mu.Lock()
	c.schedules[league] = recs
	c.mu.Unlock()
	return recs
}

// Schedules returns one resolution source per league, in order.
func (c *Catalog) Schedules(ctx context.Context, leagues ...string) []reconciliation.Source {
	sources := make([]reconciliation.Source, 0, len(leagues))
	for _, league := range leagues {
		sources = append(sources, reconciliation.Source{Name: league, Records: c.Schedule(ctx, league)})
	}
	return sources
}

// Teams returns the concatenated registries of leagues. It never returns
// nil.
func (c *Catalog) Teams(ctx context.Context, leagues ...string) []store.Team {
	all := make([]store.Team, 0)
	for _, league := range leagues {
		c.mu.Lock()
		teams, ok := c.teams[league]
		c.mu.Unlock()
		if !ok {
			teams = load(ctx, c, "teams", league, c.cfg.TeamsURL, c.cfg.TeamsDir, decodeTeams)
			c.mu.Lock()
			c.teams[league] = teams
			c.mu.Unlock()
		}
		all = append(all, teams...)
	}
	return all
}

func load[T any](ctx context.Context, c *Catalog, kind, league, urlTemplate, dir string, decode func([]byte) ([]T, error)) []T {
	logger := c.logger.With("kind", kind, "league", league)
	cacheKey := "catalog:" + kind + ":" + league

	if c.cfg.Cache != nil {
		var cached []T
		hit, err := c.cfg.Cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			logger.Warn("cache read failed", "error", err)
		} else if hit && len(cached) > 0 {
			return cached
		}
	}

	if urlTemplate != "" {
		url := strings.ReplaceAll(urlTemplate, leaguePlaceholder, league)
		resp := c.cfg.Client.Fetch(ctx, fetch.Get(url))
		if resp.OK() {
			items, err := decode(resp.Body)
			if err == nil && len(items) > 0 {
				if c.cfg.Cache != nil {
					if err := c.cfg.Cache.SetJSON(ctx, cacheKey, items, c.cfg.CacheTTL); err != nil {
						logger.Warn("cache write failed", "error", err)
					}
				}
				return items
			}
			if err != nil {
				logger.Warn("remote collection unreadable", "url", url, "error", err)
			}
		} else {
			logger.Warn("remote collection unavailable", "url", url, "result", resp.Kind, "status", resp.Status)
		}
	}

	if dir != "" {
		path := filepath.Join(dir, league+".json")
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			logger.Warn("local collection unreadable", "path", path, "error", err)
		default:
			items, err := decode(raw)
			if err == nil {
				logger.Debug("using local collection", "path", path, "count", len(items))
				return items
			}
			logger.Warn("local collection corrupt", "path", path, "error", err)
		}
	}

	logger.Warn("no collection available")
	return []T{}
}

func decodeSchedule(raw []byte) ([]store.Match, error) {
	var out []store.Match
	if err := sonic.Unmarshal(raw, &out); err != nil {
		// some mirrors wrap the list in {"response": [...]}
		var wrapped struct {
			Response []store.Match `json:"response"`
		}
		if werr := sonic.Unmarshal(raw, &wrapped); werr != nil {
			return nil, errors.Wrap(err, "decode schedule")
		}
		out = wrapped.Response
	}
	if out == nil {
		out = []store.Match{}
	}
	return out, nil
}

// registryEntry is a team or, in tournament files, a group of teams.
type registryEntry struct {
	store.Team
	Teams []store.Team `json:"teams"`
}

func decodeTeams(raw []byte) ([]store.Team, error) {
	var entries []registryEntry
	if err := sonic.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(err, "decode teams")
	}
	out := make([]store.Team, 0, len(entries))
	for _, e := range entries {
		if len(e.Teams) > 0 {
			out = append(out, e.Teams...)
			continue
		}
		if strings.TrimSpace(e.Name) != "" {
			out = append(out, e.Team)
		}
	}
	return out, nil
}
