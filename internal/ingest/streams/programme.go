package streams

import (
	"bufio"
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/ingest"
	"github.com/fortuna/goalfeed/internal/ingest/render"
	"github.com/fortuna/goalfeed/internal/store"
)

var (
	programmeLine = regexp.MustCompile(`^(\d{1,2}:\d{2})\s+(.+?)\s+x\s+(.+?)\s*\|\s*(https?://\S+)`)
	dayHeading    = regexp.MustCompile(`^[A-Z]+$`)
)

// ProgrammeEntry is one line of a plain-text programme
type ProgrammeEntry struct {
	Time string
	Home string
	Away string
	URL  string
}

// ParseProgramme returns the entries listed under the heading for day, a
// block that runs until the next all-caps heading.
func ParseProgramme(text string, day time.Weekday) []ProgrammeEntry {
	heading := strings.ToUpper(day.String())
	var (
		entries []ProgrammeEntry
		inBlock bool
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if dayHeading.MatchString(line) {
			if inBlock {
				break
			}
			inBlock = line == heading
			continue
		}
		if !inBlock {
			continue
		}
		m := programmeLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, ProgrammeEntry{
			Time: m[1],
			Home: strings.TrimSpace(m[2]),
			Away: strings.TrimSpace(m[3]),
			URL:  strings.TrimSpace(m[4]),
		})
	}
	return entries
}

// ProgrammeSource reads a weekly plain-text programme
type ProgrammeSource struct {
	spec    Site
	pages   render.Pages
	opts    Options
	srcZone *time.Location
}

// NewProgrammeSource creates a text programme source. Times without a zone
// are read in spec.TimeZone, GMT by default.
func NewProgrammeSource(spec Site, pages render.Pages, opts Options) *ProgrammeSource {
	zone := spec.TimeZone
	if zone == "" {
		zone = "GMT"
	}
	return &ProgrammeSource{spec: spec, pages: pages, opts: opts.withDefaults(), srcZone: loadZone(zone)}
}

// Name returns the configured source name
func (s *ProgrammeSource) Name() string {
	return s.spec.Name
}

// Fetch returns today's entries, today being judged in the display zone
func (s *ProgrammeSource) Fetch(ctx context.Context) ([]store.StreamLink, error) {
	body, err := s.pages.Page(ctx, s.spec.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", s.spec.Name)
	}
	now := s.opts.Now()
	layout := s.spec.TimeLayout
	if layout == "" {
		layout = "15:04"
	}

	entries := ParseProgramme(body, now.In(s.opts.DisplayZone).Weekday())
	links := make([]store.StreamLink, 0, len(entries))
	for _, e := range entries {
		links = append(links, store.StreamLink{
			Time:     ConvertTime(e.Time, layout, s.srcZone, s.opts.DisplayZone, now),
			Game:     game,
			HomeTeam: e.Home,
			AwayTeam: e.Away,
			Label:    ingest.ShortLabel(e.Home, e.Away),
			URL:      e.URL,
			Source:   s.spec.Name,
		})
	}
	return links, nil
}
