package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/platform/logging"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultMaxAttempts  = 3
	defaultRetryDelay   = 2 * time.Second
	defaultMaxBodyBytes = 6 << 20

	// UserAgent is sent unless the config overrides it
	UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Config holds client tuning
type Config struct {
	HTTPClient   *http.Client
	Timeout      time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	MaxBodyBytes int64
	UserAgent    string
	Logger       *logging.Logger
}

// Client executes upstream requests and never lets a failure escape as a
// panic or bare error
type Client struct {
	http         *http.Client
	maxAttempts  int
	retryDelay   time.Duration
	maxBodyBytes int64
	userAgent    string
	logger       *logging.Logger
}

// NewClient creates a client, filling defaults for zero config values
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	} else if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		http:         httpClient,
		maxAttempts:  cfg.MaxAttempts,
		retryDelay:   cfg.RetryDelay,
		maxBodyBytes: cfg.MaxBodyBytes,
		userAgent:    cfg.UserAgent,
		logger:       cfg.Logger.With("component", "fetch"),
	}
}

// Credential says where a rotated key goes on the request
type Credential struct {
	Header string
	Query  string
}

// Request describes one upstream call
type Request struct {
	URL        string
	Query      url.Values
	Header     http.Header
	Credential Credential
	Classify   Classifier
}

// Get is shorthand for a plain GET of rawURL
func Get(rawURL string) Request {
	return Request{URL: rawURL}
}

// Fetch performs req with bounded retries on transient failures
func (c *Client) Fetch(ctx context.Context, req Request) Response {
	return c.fetchWithRetry(ctx, req, "")
}

// FetchWithKeyRotation performs req with the pool's active key. A quota
// rejection advances the pool and retries with the next key; after one full
// rotation it gives up with KindQuota.
func (c *Client) FetchWithKeyRotation(ctx context.Context, req Request, pool *KeyPool) Response {
	n := pool.Len()
	if n == 0 {
		return Response{Result: Result{Kind: KindQuota, Err: ErrNoKeys}}
	}

	attempts := 0
	for i := 0; i < n; i++ {
		key, pos := pool.Current()
		resp := c.fetchWithRetry(ctx, req, key)
		attempts += resp.Attempts
		resp.Attempts = attempts

		if resp.Kind != KindQuota {
			return resp
		}

		c.logger.Warn("credential rejected, rotating",
			"url", redact(req), "status", resp.Status, "key_position", pos+1, "pool_size", n)
		pool.Advance(pos)
	}

	c.logger.Error("all credentials rejected", "url", redact(req), "pool_size", n)
	return Response{Result: Result{Kind: KindQuota, Attempts: attempts, Err: ErrKeysExhausted}}
}

func (c *Client) fetchWithRetry(ctx context.Context, req Request, key string) Response {
	classify := req.Classify
	if classify == nil {
		classify = DefaultClassifier
	}

	var last Response
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, status, err := c.do(ctx, req, key)
		last = Response{Result: Result{Status: status, Attempts: attempt}, Body: body}

		switch {
		case err != nil && ctx.Err() != nil:
			last.Kind = KindCanceled
			last.Err = ctx.Err()
			last.Body = nil
			return last
		case err != nil:
			last.Kind = KindTransient
			last.Err = err
		default:
			last.Kind = classify(status, body)
			if last.Kind != KindOK {
				last.Err = errors.Wrapf(ErrUnexpected, "status %d", status)
				if last.Kind == KindEmpty {
					last.Err = nil
				}
			}
		}

		if last.Kind != KindTransient {
			if last.Kind != KindOK {
				last.Body = nil
			}
			if last.Kind == KindMalformed {
				c.logger.Warn("upstream returned unusable response", "url", redact(req), "status", status)
			}
			return last
		}

		c.logger.Warn("transient upstream failure",
			"url", redact(req), "attempt", attempt, "max_attempts", c.maxAttempts, "status", status, "error", last.Err)

		if attempt == c.maxAttempts {
			break
		}
		if !sleepCtx(ctx, c.retryDelay) {
			last.Kind = KindCanceled
			last.Err = ctx.Err()
			break
		}
	}

	last.Body = nil
	return last
}

func (c *Client) do(ctx context.Context, req Request, key string) ([]byte, int, error) {
	target, err := buildURL(req, key)
	if err != nil {
		return nil, 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if key != "" && req.Credential.Header != "" {
		httpReq.Header.Set(req.Credential.Header, key)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "read body")
	}
	return body, resp.StatusCode, nil
}

func buildURL(req Request, key string) (string, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return "", errors.Wrapf(err, "parse url %q", req.URL)
	}
	q := u.Query()
	for name, values := range req.Query {
		for _, v := range values {
			q.Add(name, v)
		}
	}
	if key != "" && req.Credential.Query != "" {
		q.Set(req.Credential.Query, key)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redact renders the request URL for logs without credentials.
func redact(req Request) string {
	u, err := url.Parse(req.URL)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	for name, values := range req.Query {
		for _, v := range values {
			q.Add(name, v)
		}
	}
	for name := range q {
		lower := strings.ToLower(name)
		if name == req.Credential.Query || lower == "key" || lower == "api_key" || lower == "token" {
			q.Set(name, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Decode unmarshals a successful response into T. On any failure it returns
// the zero T, so callers always receive a typed empty value.
func Decode[T any](resp Response) (T, Result) {
	var out T
	if !resp.OK() {
		return out, resp.Result
	}
	if err := sonic.Unmarshal(resp.Body, &out); err != nil {
		var zero T
		res := resp.Result
		res.Kind = KindMalformed
		res.Err = errors.Wrap(err, "decode payload")
		return zero, res
	}
	return out, resp.Result
}

// JSON fetches req and decodes the payload into T.
func JSON[T any](ctx context.Context, c *Client, req Request) (T, Result) {
	out, res := Decode[T](c.Fetch(ctx, req))
	if res.Kind == KindMalformed && res.Err != nil {
		c.logger.Warn("malformed payload", "url", redact(req), "error", res.Err)
	}
	return out, res
}

// JSONWithRotation fetches req with key rotation and decodes into T.
func JSONWithRotation[T any](ctx context.Context, c *Client, req Request, pool *KeyPool) (T, Result) {
	out, res := Decode[T](c.FetchWithKeyRotation(ctx, req, pool))
	if res.Kind == KindMalformed && res.Err != nil {
		c.logger.Warn("malformed payload", "url", redact(req), "error", res.Err)
	}
	return out, res
}
