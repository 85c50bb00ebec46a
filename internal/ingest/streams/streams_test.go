package streams

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/goalfeed/internal/ingest"
)

type fakePages map[string]string

func (f fakePages) Page(_ context.Context, url string) (string, error) {
	html, ok := f[url]
	if !ok {
		return "", errors.Newf("no page %s", url)
	}
	return html, nil
}

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

// Monday 2025-03-10, 08:00 UTC
var now = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func testOptions(t *testing.T) Options {
	return Options{DisplayZone: kolkata(t), Now: func() time.Time { return now }}
}

func sourceNamed(name string) Site {
	for _, s := range DefaultSources() {
		if s.Name == name {
			return s
		}
	}
	panic("unknown source " + name)
}

func TestConvertTime(t *testing.T) {
	t.Parallel()

	ist := kolkata(t)
	gmt := loadZone("GMT")

	assert.Equal(t, "2025-03-10 20:30 IST", ConvertTime("15:00", "15:04", gmt, ist, now))
	assert.Equal(t, "2025-03-01 20:30 IST", ConvertTime("2025-03-01T15:00:00+00:00", "", gmt, ist, now))
	assert.Equal(t, "2025-03-01 20:30 IST", ConvertTime("2025/03/01 15:00", "2006/01/02 15:04", gmt, ist, now))
	assert.Empty(t, ConvertTime("soon", "", gmt, ist, now))
	assert.Empty(t, ConvertTime("", "", gmt, ist, now))

	assert.True(t, SameDay("2025-03-10 20:30 IST", now, ist))
	assert.False(t, SameDay("2025-03-09 20:30 IST", now, ist))
	assert.False(t, SameDay("", now, ist))
}

func TestParseProgramme(t *testing.T) {
	t.Parallel()

	prog := `SUNDAY
14:00 Arsenal x Chelsea | https://sportsonline.pk/channels/hd/hd1.php

MONDAY
18:30 Bayern Munich x RB Leipzig | https://sportsonline.pk/channels/hd/hd2.php
20:00   Inter x Milan|https://sportsonline.pk/channels/hd/hd3.php
not a listing line
TUESDAY
19:00 Roma x Lazio | https://sportsonline.pk/channels/hd/hd4.php
`
	entries := ParseProgramme(prog, time.Monday)
	require.Len(t, entries, 2)
	assert.Equal(t, ProgrammeEntry{Time: "18:30", Home: "Bayern Munich", Away: "RB Leipzig", URL: "https://sportsonline.pk/channels/hd/hd2.php"}, entries[0])
	assert.Equal(t, "Milan", entries[1].Away)

	assert.Empty(t, ParseProgramme(prog, time.Friday))
}

func TestProgrammeSource(t *testing.T) {
	t.Parallel()

	spec := sourceNamed("sportsonline")
	pages := fakePages{spec.URL: "MONDAY\n18:30 Bayern Munich x RB Leipzig | https://sportsonline.pk/hd2.php\n"}

	src, err := New(spec, pages, testOptions(t))
	require.NoError(t, err)
	links, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, links, 1)
	assert.Equal(t, "2025-03-11 00:00 IST", links[0].Time)
	assert.Equal(t, "bay-rbl", links[0].Label)
	assert.Equal(t, "football", links[0].Game)
	assert.Equal(t, "sportsonline", links[0].Source)
}

func TestHTMLSource_TeamsByIndexAndSlugTemplate(t *testing.T) {
	t.Parallel()

	spec := sourceNamed("hesgoal")
	pages := fakePages{spec.URL: `<html><body>
		<div class="EventBox">
			<div class="EventTeamName">Chelsea</div>
			<div class="EventTeamName">Arsenal</div>
			<ul class="EventFooter"><li>a</li><li>b</li><li>Premier League</li></ul>
			<a id="EventLink" href="https://hesgoal.im/match/arsenal-chelsea/">watch</a>
			<span class="EventDate" data-start="2025-03-10T15:00:00+00:00"></span>
		</div>
		<div class="EventBox">
			<div class="EventTeamName">No link</div>
			<div class="EventTeamName">Here</div>
		</div>
	</body></html>`}

	src, err := New(spec, pages, testOptions(t))
	require.NoError(t, err)
	links, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, links, 1)
	l := links[0]
	assert.Equal(t, "Arsenal", l.HomeTeam)
	assert.Equal(t, "Chelsea", l.AwayTeam)
	assert.Equal(t, "Premier League", l.League)
	assert.Equal(t, "https://yallashoot.mobi/albaplayer/arsenal-chelsea/", l.URL)
	assert.Equal(t, "2025-03-10 20:30 IST", l.Time)
	assert.Equal(t, "ars-che", l.Label)
}

func TestHTMLSource_PathTemplateKeepsAbsoluteLinks(t *testing.T) {
	t.Parallel()

	spec := sourceNamed("yallashooote")
	pages := fakePages{spec.URL: `<html><body>
		<div class="m_block alba_sports_events-event_item">
			<a class="alba_sports_events_link" href="/bein1"></a>
			<div class="team-first"><div class="alba_sports_events-team_title">Real Madrid</div></div>
			<div class="team-second"><div class="alba_sports_events-team_title">Getafe</div></div>
			<div class="date" data-start="2025/03/10 20:00"></div>
		</div>
		<div class="m_block alba_sports_events-event_item">
			<a class="alba_sports_events_link" href="https://other.example/live"></a>
		</div>
	</body></html>`}

	src, err := New(spec, pages, testOptions(t))
	require.NoError(t, err)
	links, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, links, 2)
	assert.Equal(t, "https://yallashooote.online/live/bein1.php", links[0].URL)
	assert.Equal(t, "2025-03-11 01:30 IST", links[0].Time)
	assert.Equal(t, "https://other.example/live", links[1].URL)
	assert.Equal(t, "yalla-stream", links[1].Label)
	assert.Empty(t, links[1].Time)
}

func TestHTMLSource_FollowsToPlayer(t *testing.T) {
	t.Parallel()

	spec := sourceNamed("ovogoal")
	pages := fakePages{
		spec.URL: `<html><body>
			<div class="stream-row" data-category="LaLiga">
				<div class="stream-time">19:45</div>
				<div class="stream-info"><span>Sevilla</span> vs <span>Betis</span></div>
				<button class="watch-btn" onclick="window.location.href='https://ovogoal.plus/match/1'">Watch</button>
			</div>
			<div class="stream-row" data-category="Serie A">
				<div class="stream-info">Roma vs Lazio</div>
				<button class="watch-btn" onclick="window.location.href='https://ovogoal.plus/match/2'">Watch</button>
			</div>
		</body></html>`,
		"https://ovogoal.plus/match/1": `<iframe src="https://player.example/embed/1"></iframe>`,
	}

	src, err := New(spec, pages, testOptions(t))
	require.NoError(t, err)
	links, err := src.Fetch(context.Background())

	var partial *ingest.PartialError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, 1, partial.Count)

	require.Len(t, links, 1)
	l := links[0]
	assert.Equal(t, "https://player.example/embed/1", l.URL)
	assert.Equal(t, "LaLiga", l.League)
	assert.Equal(t, "Sevilla", l.HomeTeam)
	assert.Equal(t, "Betis", l.AwayTeam)
	assert.Equal(t, "2025-03-11 01:15 IST", l.Time)
}

func TestNewHTMLSource_RejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := NewHTMLSource(Site{Name: "x", URL: "https://x.example/", Item: "div", LinkPattern: "("}, fakePages{}, Options{})
	assert.Error(t, err)

	_, err = NewHTMLSource(Site{Name: "x", URL: "https://x.example/"}, fakePages{}, Options{})
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	t.Parallel()

	all := DefaultSources()
	assert.Len(t, Select(all, nil), len(all))
	picked := Select(all, []string{"ovogoal", "missing"})
	require.Len(t, picked, 1)
	assert.Equal(t, "ovogoal", picked[0].Name)
}
