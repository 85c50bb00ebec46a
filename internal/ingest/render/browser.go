// Package render turns page URLs into HTML, either through a headless
// browser for script-built pages or a plain fetch for static ones.
package render

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/fortuna/goalfeed/internal/ingest/fetch"
	"github.com/fortuna/goalfeed/internal/platform/logging"
)

const (
	// MinRequestInterval spaces page loads to stay under site rate limits
	MinRequestInterval = 2 * time.Second

	defaultPageTimeout = 60 * time.Second
	defaultSettle      = 2 * time.Second
)

// ErrEmptyPage is returned when a page rendered to nothing.
var ErrEmptyPage = errors.New("render: empty HTML content returned")

// Pages returns the HTML of a URL.
type Pages interface {
	Page(ctx context.Context, url string) (string, error)
}

// BrowserConfig tunes the headless browser.
type BrowserConfig struct {
	Interval    time.Duration
	PageTimeout time.Duration
	Settle      time.Duration
	WaitFor     string
	UserAgent   string
	Logger      *logging.Logger
}

// Browser renders pages with headless Chrome
type Browser struct {
	limiter     *rate.Limiter
	pageTimeout time.Duration
	settle      time.Duration
	waitFor     string
	logger      *logging.Logger

	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewBrowser sets up an exec allocator and launches nothing. Each Page call
// starts its own Chrome process from it and tears it down afterwards.
func NewBrowser(cfg BrowserConfig) *Browser {
	if cfg.Interval <= 0 {
		cfg.Interval = MinRequestInterval
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = defaultPageTimeout
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	} else if cfg.Settle == 0 {
		cfg.Settle = defaultSettle
	}
	if cfg.WaitFor == "" {
		cfg.WaitFor = "body"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetch.UserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 800),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		limiter:     rate.NewLimiter(rate.Every(cfg.Interval), 1),
		pageTimeout: cfg.PageTimeout,
		settle:      cfg.Settle,
		waitFor:     cfg.WaitFor,
		logger:      cfg.Logger.With("component", "render"),
		allocCtx:    allocCtx,
		cancel:      cancel,
	}
}

// Close shuts the browser down
func (b *Browser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

// Page loads url, waits for the page to settle and returns its outer HTML.
func (b *Browser) Page(ctx context.Context, url string) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "wait for render slot")
	}

	ctx, cancel := context.WithTimeout(ctx, b.pageTimeout)
	defer cancel()

	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()

	// the tab must die with the caller's deadline
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(b.waitFor, chromedp.ByQuery),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		b.logger.Warn("page render failed", "url", url, "error", err)
		return "", errors.Wrapf(err, "render %s", url)
	}
	if strings.TrimSpace(html) == "" {
		return "", ErrEmptyPage
	}
	return html, nil
}

// HTTPPages serves static pages through the fetch client
type HTTPPages struct {
	Client *fetch.Client
	Header map[string]string
}

// Page fetches url and returns the body as a string.
func (p HTTPPages) Page(ctx context.Context, url string) (string, error) {
	req := fetch.Get(url)
	if len(p.Header) > 0 {
		req.Header = make(map[string][]string, len(p.Header))
		for k, v := range p.Header {
			req.Header.Set(k, v)
		}
	}
	resp := p.Client.Fetch(ctx, req)
	if !resp.OK() {
		if resp.Err != nil {
			return "", errors.Wrapf(resp.Err, "fetch %s (%s)", url, resp.Kind)
		}
		return "", errors.Wrapf(ErrEmptyPage, "fetch %s", url)
	}
	return string(resp.Body), nil
}

// ParseHTML converts raw HTML to a goquery Document for parsing
func ParseHTML(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(err, "parse HTML")
	}
	return doc, nil
}
