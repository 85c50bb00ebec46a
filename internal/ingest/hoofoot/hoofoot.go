// Package hoofoot reads highlight links from hoofoot, either from a published
// JSON feed or by crawling the rendered league pages.
package hoofoot

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/ingest"
	"github.com/fortuna/goalfeed/internal/ingest/fetch"
	"github.com/fortuna/goalfeed/internal/ingest/render"
	"github.com/fortuna/goalfeed/internal/platform/logging"
)

const (
	// SourceName tags items and highlight records
	SourceName = "hoofoot"

	// BaseURL of the site
	BaseURL = "https://hoofoot.com/"

	matchLinkSelector = `a[href*="?match="]`
	embedSelector     = `div#player a[href]`
)

var slugDate = regexp.MustCompile(`(\d{4})[_-](\d{2})[_-](\d{2})$`)

// Slug returns the ?match= value of a match page URL.
func Slug(matchURL string) string {
	u, err := url.Parse(matchURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("match")
}

// SlugDate extracts the YYYY-MM-DD suffix of a slug such as
// "Arsenal_v_Chelsea_2025_03_01".
func SlugDate(slug string) string {
	m := slugDate.FindStringSubmatch(slug)
	if m == nil {
		return ""
	}
	return m[1] + "-" + m[2] + "-" + m[3]
}

// complete fills the id and date of a feed item from its match URL.
func complete(item ingest.RawItem) ingest.RawItem {
	item.Source = SourceName
	slug := Slug(item.URL)
	if item.SourceID == "" {
		item.SourceID = slug
	}
	if item.Date == "" {
		item.Date = SlugDate(slug)
	}
	item.Date = strings.ReplaceAll(item.Date, "_", "-")
	return item
}

// FeedSource reads the published JSON feed
type FeedSource struct {
	Client *fetch.Client
	URL    string
}

// Fetch returns every feed entry that carries an id
func (s FeedSource) Fetch(ctx context.Context) ([]ingest.RawItem, error) {
	raw, res := fetch.JSON[[]ingest.RawItem](ctx, s.Client, fetch.Get(s.URL))
	if res.Failed() {
		if res.Err == nil {
			return nil, errors.Newf("fetch highlight feed: %s", res.Kind)
		}
		return nil, errors.Wrapf(res.Err, "fetch highlight feed (%s)", res.Kind)
	}
	items := make([]ingest.RawItem, 0, len(raw))
	for _, item := range raw {
		item = complete(item)
		if item.SourceID == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// League is one crawled league page
type League struct {
	Code string
	ID   int
}

// Crawler walks league pages and then each match page for its player link
type Crawler struct {
	pages   render.Pages
	baseURL string
	leagues []League
	logger  *logging.Logger
}

// NewCrawler creates a crawler over pages, usually a headless browser
func NewCrawler(pages render.Pages, baseURL string, leagues []League, logger *logging.Logger) *Crawler {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Crawler{
		pages:   pages,
		baseURL: baseURL,
		leagues: leagues,
		logger:  logger.With("component", "hoofoot"),
	}
}

// Fetch crawls every league. Pages that fail to load are counted in a
// partial error; matches found elsewhere are still returned.
func (c *Crawler) Fetch(ctx context.Context) ([]ingest.RawItem, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}

	var (
		links    []ingest.RawItem
		failures ingest.Failures
	)
	seen := make(map[string]struct{})

	for _, league := range c.leagues {
		leagueURL := base.ResolveReference(&url.URL{RawQuery: "idp=" + strconv.Itoa(league.ID)}).String()
		found, err := c.leagueLinks(ctx, base, leagueURL)
		if err != nil {
			c.logger.Warn("league page failed", "league", league.Code, "url", leagueURL, "error", err)
			failures.Add(errors.Wrapf(err, "league %s", league.Code))
			continue
		}
		added := 0
		for _, item := range found {
			if _, dup := seen[item.URL]; dup {
				continue
			}
			seen[item.URL] = struct{}{}
			item.League = league.Code
			links = append(links, item)
			added++
		}
		c.logger.Info("league crawled", "league", league.Code, "matches", added)
	}

	items := make([]ingest.RawItem, 0, len(links))
	for i, item := range links {
		if ctx.Err() != nil {
			failures.Add(ctx.Err())
			break
		}
		embed, err := c.embedURL(ctx, item.URL)
		if err != nil {
			c.logger.Warn("match page failed", "title", item.Title, "error", err)
			failures.Add(errors.Wrapf(err, "match %s", item.Title))
			continue
		}
		item.EmbedURL = embed
		items = append(items, complete(item))
		c.logger.Debug("match extracted", "n", i+1, "total", len(links), "title", item.Title)
	}

	return items, failures.Err()
}

func (c *Crawler) leagueLinks(ctx context.Context, base *url.URL, pageURL string) ([]ingest.RawItem, error) {
	html, err := c.pages.Page(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := render.ParseHTML(html)
	if err != nil {
		return nil, err
	}
	return ExtractMatchLinks(doc, base), nil
}

// ExtractMatchLinks returns the titled match links of a league page,
// resolved against base.
func ExtractMatchLinks(doc *goquery.Document, base *url.URL) []ingest.RawItem {
	var items []ingest.RawItem
	doc.Find(matchLinkSelector).Each(func(_ int, a *goquery.Selection) {
		title := strings.TrimSpace(a.Find("h2").First().Text())
		href, _ := a.Attr("href")
		if title == "" || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		items = append(items, ingest.RawItem{
			Title: title,
			URL:   base.ResolveReference(ref).String(),
		})
	})
	return items
}

func (c *Crawler) embedURL(ctx context.Context, matchURL string) (string, error) {
	html, err := c.pages.Page(ctx, matchURL)
	if err != nil {
		return "", err
	}
	doc, err := render.ParseHTML(html)
	if err != nil {
		return "", err
	}
	return ExtractEmbed(doc), nil
}

// ExtractEmbed returns the player link of a match page, or "" when the page
// has no player.
func ExtractEmbed(doc *goquery.Document) string {
	href, _ := doc.Find(embedSelector).First().Attr("href")
	return strings.TrimSpace(href)
}
