// Package youtube reads channel uploads from the YouTube Data API.
package youtube

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fortuna/goalfeed/internal/ingest/fetch"
)

const (
	// BaseURL of the Data API v3
	BaseURL = "https://www.googleapis.com/youtube/v3"

	// DetailsChunk is the most ids the videos endpoint accepts per call
	DetailsChunk = 50

	defaultMaxResults = 30
)

// Classify rotates keys on 400 as well: the API answers a spent key with
// either 400 or 403 depending on the endpoint.
var Classify = fetch.StatusClassifier(
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusTooManyRequests,
)

// Config configures a Client
type Config struct {
	BaseURL    string
	Keys       []string
	Interval   time.Duration
	MaxResults int
	Fetch      *fetch.Client
}

// Client handles Data API requests. Keys go in the "key" query parameter.
type Client struct {
	baseURL    string
	maxResults int
	fetch      *fetch.Client
	pool       *fetch.KeyPool
	limiter    *rate.Limiter
}

// NewClient creates a client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if cfg.Fetch == nil {
		cfg.Fetch = fetch.NewClient(fetch.Config{})
	}
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: cfg.MaxResults,
		fetch:      cfg.Fetch,
		pool:       fetch.NewKeyPool(cfg.Keys...),
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// SearchQuery narrows a channel search
type SearchQuery struct {
	ChannelID      string
	Query          string
	PublishedAfter time.Time
}

// Search lists the latest uploads of a channel, newest first
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]SearchItem, fetch.Result) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", q.ChannelID)
	params.Set("type", "video")
	params.Set("order", "date")
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if !q.PublishedAfter.IsZero() {
		params.Set("publishedAfter", q.PublishedAfter.UTC().Format(time.RFC3339))
	}
	out, res := get[listResponse[SearchItem]](ctx, c, "/search", params)
	return nonNil(out.Items), res
}

// Videos fetches details for ids in chunks of DetailsChunk. Items of failed
// chunks are missing from the result, which reports the last failure.
func (c *Client) Videos(ctx context.Context, ids []string) ([]VideoItem, fetch.Result) {
	items := make([]VideoItem, 0, len(ids))
	res := fetch.Result{Kind: fetch.KindEmpty}
	for start := 0; start < len(ids); start += DetailsChunk {
		end := min(start+DetailsChunk, len(ids))
		params := url.Values{}
		params.Set("part", "snippet,contentDetails")
		params.Set("id", strings.Join(ids[start:end], ","))

		out, chunkRes := get[listResponse[VideoItem]](ctx, c, "/videos", params)
		items = append(items, out.Items...)
		switch {
		case chunkRes.Failed():
			res = chunkRes
		case chunkRes.OK() && !res.Failed():
			res = chunkRes
		}
	}
	return items, res
}

// Channel fetches a channel's title and avatars
func (c *Client) Channel(ctx context.Context, id string) (ChannelInfo, fetch.Result) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", id)
	out, res := get[listResponse[channelItem]](ctx, c, "/channels", params)
	if len(out.Items) == 0 {
		return ChannelInfo{ID: id}, res
	}
	sn := out.Items[0].Snippet
	return ChannelInfo{
		ID:        id,
		Title:     sn.Title,
		Logo:      sn.Thumbnails.pick("default", "medium", "high"),
		LogoLarge: sn.Thumbnails.pick("high", "medium", "default"),
	}, res
}

func get[T any](ctx context.Context, c *Client, path string, params url.Values) (T, fetch.Result) {
	if err := c.limiter.Wait(ctx); err != nil {
		var zero T
		return zero, fetch.Result{Kind: fetch.KindCanceled, Err: err}
	}
	req := fetch.Request{
		URL:        c.baseURL + path,
		Query:      params,
		Credential: fetch.Credential{Query: "key"},
		Classify:   Classify,
	}
	return fetch.JSONWithRotation[T](ctx, c.fetch, req, c.pool)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
