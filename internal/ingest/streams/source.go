// Package streams extracts live stream listings from configurable HTML and
// plain-text schedule pages.
package streams

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/ingest"
	"github.com/fortuna/goalfeed/internal/ingest/render"
	"github.com/fortuna/goalfeed/internal/platform/logging"
	"github.com/fortuna/goalfeed/internal/store"
)

// Source kinds
const (
	KindHTML = "html"
	KindText = "text"
)

const game = "football"

// Site describes one listing page. HTML listings are read through CSS
// selectors; empty selectors are skipped.
type Site struct {
	Name          string
	URL           string
	Kind          string
	Render        bool
	Item          string
	Teams         string
	HomeIndex     int
	AwayIndex     int
	Home          string
	Away          string
	Title         string
	League        string
	LeagueAttr    string
	Link          string
	LinkAttr      string
	LinkPattern   string
	URLTemplate   string
	Follow        string
	FollowAttr    string
	Time          string
	TimeAttr      string
	TimeLayout    string
	TimeZone      string
	FallbackLabel string
}

// Source lists the streams one site announces for today
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]store.StreamLink, error)
}

// Options are shared by every source
type Options struct {
	DisplayZone *time.Location
	Now         func() time.Time
	Logger      *logging.Logger
}

func (o Options) withDefaults() Options {
	if o.DisplayZone == nil {
		o.DisplayZone = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}

// New builds the source described by spec
func New(spec Site, pages render.Pages, opts Options) (Source, error) {
	if spec.Kind == KindText {
		return NewProgrammeSource(spec, pages, opts), nil
	}
	return NewHTMLSource(spec, pages, opts)
}

// HTMLSource extracts streams from a listing page by CSS selectors
type HTMLSource struct {
	spec        Site
	pages       render.Pages
	opts        Options
	base        *url.URL
	linkPattern *regexp.Regexp
	srcZone     *time.Location
}

// NewHTMLSource validates the spec's URL and link pattern
func NewHTMLSource(spec Site, pages render.Pages, opts Options) (*HTMLSource, error) {
	base, err := url.Parse(spec.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "source %s: parse url", spec.Name)
	}
	var pattern *regexp.Regexp
	if spec.LinkPattern != "" {
		pattern, err = regexp.Compile(spec.LinkPattern)
		if err != nil {
			return nil, errors.Wrapf(err, "source %s: link pattern", spec.Name)
		}
	}
	if spec.Item == "" {
		return nil, errors.Newf("source %s: item selector is required", spec.Name)
	}
	opts = opts.withDefaults()
	return &HTMLSource{
		spec:        spec,
		pages:       pages,
		opts:        opts,
		base:        base,
		linkPattern: pattern,
		srcZone:     loadZone(spec.TimeZone),
	}, nil
}

// Name returns the configured source name
func (s *HTMLSource) Name() string {
	return s.spec.Name
}

// Fetch loads the listing, extracts every item and, when configured,
// follows each link to the embedded player.
func (s *HTMLSource) Fetch(ctx context.Context) ([]store.StreamLink, error) {
	html, err := s.pages.Page(ctx, s.spec.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", s.spec.Name)
	}
	doc, err := render.ParseHTML(html)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	links := make([]store.StreamLink, 0)
	doc.Find(s.spec.Item).Each(func(_ int, item *goquery.Selection) {
		if link, ok := s.extract(item, now); ok {
			links = append(links, link)
		}
	})

	if s.spec.Follow == "" {
		return links, nil
	}

	var failures ingest.Failures
	followed := links[:0]
	for _, link := range links {
		if ctx.Err() != nil {
			failures.Add(ctx.Err())
			break
		}
		target, err := s.follow(ctx, link.URL)
		if err != nil {
			s.opts.Logger.Warn("stream page failed", "source", s.spec.Name, "url", link.URL, "error", err)
			failures.Add(err)
			continue
		}
		if target == "" {
			continue
		}
		link.URL = target
		followed = append(followed, link)
	}
	return followed, failures.Err()
}

func (s *HTMLSource) extract(item *goquery.Selection, now time.Time) (store.StreamLink, bool) {
	href := s.link(item)
	if href == "" {
		return store.StreamLink{}, false
	}
	target := s.expand(href)
	if target == "" {
		return store.StreamLink{}, false
	}

	home, away := s.teams(item)
	return store.StreamLink{
		Time:     ConvertTime(s.timeValue(item), s.spec.TimeLayout, s.srcZone, s.opts.DisplayZone, now),
		Game:     game,
		League:   s.league(item),
		HomeTeam: home,
		AwayTeam: away,
		Label:    label(home, away, s.spec.FallbackLabel, s.spec.Name),
		URL:      target,
		Source:   s.spec.Name,
	}, true
}

func (s *HTMLSource) teams(item *goquery.Selection) (string, string) {
	switch {
	case s.spec.Teams != "":
		nodes := item.Find(s.spec.Teams)
		homeIdx, awayIdx := s.spec.HomeIndex, s.spec.AwayIndex
		if homeIdx == 0 && awayIdx == 0 {
			awayIdx = 1
		}
		if nodes.Length() <= max(homeIdx, awayIdx) {
			return "", ""
		}
		return text(nodes.Eq(homeIdx)), text(nodes.Eq(awayIdx))
	case s.spec.Home != "" || s.spec.Away != "":
		return text(item.Find(s.spec.Home).First()), text(item.Find(s.spec.Away).First())
	case s.spec.Title != "":
		home, away, _ := ingest.SplitTitle(text(item.Find(s.spec.Title).First()))
		return home, away
	}
	return "", ""
}

func (s *HTMLSource) league(item *goquery.Selection) string {
	if s.spec.League != "" {
		return text(item.Find(s.spec.League).First())
	}
	if s.spec.LeagueAttr != "" {
		v, _ := item.Attr(s.spec.LeagueAttr)
		return strings.TrimSpace(v)
	}
	return ""
}

func (s *HTMLSource) link(item *goquery.Selection) string {
	sel := item
	if s.spec.Link != "" {
		sel = item.Find(s.spec.Link).First()
	}
	attr := s.spec.LinkAttr
	if attr == "" {
		attr = "href"
	}
	v, _ := sel.Attr(attr)
	v = strings.TrimSpace(v)
	if s.linkPattern != nil && v != "" {
		m := s.linkPattern.FindStringSubmatch(v)
		switch {
		case m == nil:
			return ""
		case len(m) > 1:
			return strings.TrimSpace(m[1])
		default:
			return m[0]
		}
	}
	return v
}

// expand turns a listing link into a stream URL. Templates understand
// {slug} (the last path segment), {href} (the absolute link) and {path}
// (the site-relative path; absolute links are kept as they are).
func (s *HTMLSource) expand(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := s.base.ResolveReference(ref).String()
	tmpl := s.spec.URLTemplate
	if tmpl == "" {
		return abs
	}
	if strings.Contains(tmpl, "{path}") {
		if ref.IsAbs() {
			return href
		}
		return strings.ReplaceAll(tmpl, "{path}", strings.Trim(ref.Path, "/"))
	}
	trimmed := strings.TrimRight(href, "/")
	slug := trimmed[strings.LastIndex(trimmed, "/")+1:]
	return strings.NewReplacer("{slug}", slug, "{href}", abs).Replace(tmpl)
}

func (s *HTMLSource) timeValue(item *goquery.Selection) string {
	sel := item
	if s.spec.Time != "" {
		sel = item.Find(s.spec.Time).First()
	}
	if s.spec.TimeAttr != "" {
		v, _ := sel.Attr(s.spec.TimeAttr)
		return v
	}
	if s.spec.Time == "" {
		return ""
	}
	return text(sel)
}

func (s *HTMLSource) follow(ctx context.Context, pageURL string) (string, error) {
	html, err := s.pages.Page(ctx, pageURL)
	if err != nil {
		return "", err
	}
	doc, err := render.ParseHTML(html)
	if err != nil {
		return "", err
	}
	attr := s.spec.FollowAttr
	if attr == "" {
		attr = "src"
	}
	v, _ := doc.Find(s.spec.Follow).First().Attr(attr)
	return strings.TrimSpace(v), nil
}

func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

func label(home, away, fallback, name string) string {
	if home != "" && away != "" {
		return ingest.ShortLabel(home, away)
	}
	if fallback != "" {
		return fallback
	}
	return name
}
