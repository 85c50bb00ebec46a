// Package apisports reads fixtures and fixture details from api-football.
package apisports

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/fortuna/goalfeed/internal/ingest/fetch"
)

const (
	// BaseURL of the v3 API
	BaseURL = "https://v3.football.api-sports.io"

	// KeyHeader carries the API key
	KeyHeader = "x-apisports-key"

	DefaultTimezone = "Europe/London"
	DefaultPause    = 6 * time.Second
)

var (
	planBlocked  = []byte("Free plans do not have access")
	tooManyCalls = []byte("Too many requests")
)

// Classify maps api-sports responses to fetch kinds. The API reports most
// failures with a 200 and a non-empty errors object: a plan restriction means
// there is simply no data, anything else is treated as a spent key.
func Classify(status int, body []byte) fetch.Kind {
	if bytes.Contains(body, planBlocked) {
		return fetch.KindEmpty
	}
	if status == http.StatusTooManyRequests || bytes.Contains(body, tooManyCalls) {
		return fetch.KindQuota
	}
	kind := fetch.DefaultClassifier(status, body)
	if kind == fetch.KindOK && hasErrors(body) {
		return fetch.KindQuota
	}
	return kind
}

func hasErrors(body []byte) bool {
	var probe struct {
		Errors any `json:"errors"`
	}
	if err := sonic.Unmarshal(body, &probe); err != nil {
		return false
	}
	switch v := probe.Errors.(type) {
	case nil:
		return false
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case string:
		return v != ""
	default:
		return true
	}
}

// Config configures a Client
type Config struct {
	BaseURL  string
	Keys     []string
	Timezone string
	Pause    time.Duration
	Fetch    *fetch.Client
}

// Client handles api-sports requests with key rotation
type Client struct {
	baseURL  string
	timezone string
	fetch    *fetch.Client
	pool     *fetch.KeyPool
	limiter  *rate.Limiter
}

// NewClient creates a client. A negative Pause disables pacing.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Pause < 0 {
		cfg.Pause = 0
	} else if cfg.Pause == 0 {
		cfg.Pause = DefaultPause
	}
	if cfg.Fetch == nil {
		cfg.Fetch = fetch.NewClient(fetch.Config{})
	}
	limit := rate.Inf
	if cfg.Pause > 0 {
		limit = rate.Every(cfg.Pause)
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		timezone: cfg.Timezone,
		fetch:    cfg.Fetch,
		pool:     fetch.NewKeyPool(cfg.Keys...),
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// FixturesByDate fetches every fixture played on date (YYYY-MM-DD)
func (c *Client) FixturesByDate(ctx context.Context, date string) ([]Fixture, fetch.Result) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("timezone", c.timezone)
	return get[Fixture](ctx, c, c.baseURL+"/fixtures", q)
}

// FixtureBlock fetches one detail block of a fixture
func (c *Client) FixtureBlock(ctx context.Context, block string, fixtureID int64) ([]any, fetch.Result) {
	q := url.Values{}
	q.Set("fixture", strconv.FormatInt(fixtureID, 10))
	return get[any](ctx, c, c.baseURL+"/fixtures/"+block, q)
}

func get[T any](ctx context.Context, c *Client, endpoint string, q url.Values) ([]T, fetch.Result) {
	if err := c.limiter.Wait(ctx); err != nil {
		return []T{}, fetch.Result{Kind: fetch.KindCanceled, Err: err}
	}
	req := fetch.Request{
		URL:        endpoint,
		Query:      q,
		Credential: fetch.Credential{Header: KeyHeader},
		Classify:   Classify,
	}
	out, res := fetch.JSONWithRotation[envelope[T]](ctx, c.fetch, req, c.pool)
	if out.Response == nil {
		return []T{}, res
	}
	return out.Response, res
}
