// Package footballdata reads competitions from football-data.org.
package footballdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/fortuna/goalfeed/internal/ingest/fetch"
	"github.com/fortuna/goalfeed/internal/store"
)

const (
	// BaseURL of the v4 API
	BaseURL = "https://api.football-data.org/v4"

	// AuthHeader carries the API token
	AuthHeader = "X-Auth-Token"

	// DefaultInterval keeps under the free tier's 10 requests per minute
	DefaultInterval = 6 * time.Second
)

// Config configures a Client
type Config struct {
	BaseURL  string
	Tokens   []string
	Interval time.Duration
	Fetch    *fetch.Client
}

// Client handles football-data.org requests
type Client struct {
	baseURL string
	fetch   *fetch.Client
	pool    *fetch.KeyPool
	limiter *rate.Limiter
}

// NewClient creates a client. Tokens rotate on quota rejections.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	} else if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Fetch == nil {
		cfg.Fetch = fetch.NewClient(fetch.Config{})
	}
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		fetch:   cfg.Fetch,
		pool:    fetch.NewKeyPool(cfg.Tokens...),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// FetchMatches fetches every match of a competition season
func (c *Client) FetchMatches(ctx context.Context, code string, season int) ([]APIMatch, fetch.Result) {
	q := url.Values{}
	if season > 0 {
		q.Set("season", strconv.Itoa(season))
	}
	out, res := get[matchesResponse](ctx, c, fmt.Sprintf("%s/competitions/%s/matches", c.baseURL, code), q)
	return nonNil(out.Matches), res
}

// FetchTeams fetches the team registry of a competition
func (c *Client) FetchTeams(ctx context.Context, code string) ([]store.Team, fetch.Result) {
	out, res := get[teamsResponse](ctx, c, fmt.Sprintf("%s/competitions/%s/teams", c.baseURL, code), nil)
	return nonNil(out.Teams), res
}

// FetchStandings fetches every table of a competition
func (c *Client) FetchStandings(ctx context.Context, code string) ([]APIStanding, fetch.Result) {
	out, res := get[standingsResponse](ctx, c, fmt.Sprintf("%s/competitions/%s/standings", c.baseURL, code), nil)
	return nonNil(out.Standings), res
}

// FetchScorers fetches the top scorers of a competition
func (c *Client) FetchScorers(ctx context.Context, code string, limit int) ([]store.Scorer, fetch.Result) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	out, res := get[scorersResponse](ctx, c, fmt.Sprintf("%s/competitions/%s/scorers", c.baseURL, code), q)
	return nonNil(out.Scorers), res
}

func get[T any](ctx context.Context, c *Client, endpoint string, q url.Values) (T, fetch.Result) {
	if err := c.limiter.Wait(ctx); err != nil {
		var zero T
		return zero, fetch.Result{Kind: fetch.KindCanceled, Err: err}
	}
	req := fetch.Request{URL: endpoint, Query: q, Credential: fetch.Credential{Header: AuthHeader}}
	if c.pool.Len() == 0 {
		// the API serves a few competitions without a token
		return fetch.JSON[T](ctx, c.fetch, req)
	}
	return fetch.JSONWithRotation[T](ctx, c.fetch, req, c.pool)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
