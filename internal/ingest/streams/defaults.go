package streams

// DefaultSources are the listings scraped when the configuration names none.
func DefaultSources() []Site {
	return []Site{
		{
			Name:       "sportsonline",
			URL:        "https://sportsonline.pk/prog.txt",
			Kind:       KindText,
			TimeLayout: "15:04",
			TimeZone:   "GMT",
		},
		{
			Name:        "hesgoal",
			URL:         "https://hesgoal.im/today-matches/",
			Item:        "div.EventBox",
			Teams:       "div.EventTeamName",
			HomeIndex:   1,
			AwayIndex:   0,
			League:      "ul.EventFooter li:nth-child(3)",
			Link:        "a#EventLink",
			URLTemplate: "https://yallashoot.mobi/albaplayer/{slug}/",
			Time:        "span.EventDate",
			TimeAttr:    "data-start",
		},
		{
			Name:          "yallashooote",
			URL:           "https://yallashooote.online/",
			Item:          "div.m_block.alba_sports_events-event_item",
			Home:          "div.team-first .alba_sports_events-team_title",
			Away:          "div.team-second .alba_sports_events-team_title",
			Link:          "a.alba_sports_events_link",
			URLTemplate:   "https://yallashooote.online/live/{path}.php",
			Time:          "div.date[data-start]",
			TimeAttr:      "data-start",
			TimeLayout:    "2006/01/02 15:04",
			TimeZone:      "GMT",
			FallbackLabel: "yalla-stream",
		},
		{
			Name:          "livekora",
			URL:           "https://www.livekora.vip/",
			Item:          "div.benacer-matches-container a[href]",
			Home:          "div.right-team .team-name",
			Away:          "div.left-team .team-name",
			URLTemplate:   "https://pl.yalashoot.xyz/albaplayer/{slug}/?serv=0",
			Time:          "div.match-container span.date",
			TimeAttr:      "data-start",
			FallbackLabel: "livekora-stream",
		},
		{
			Name:          "ovogoal",
			URL:           "https://ovogoal.plus/",
			Item:          "div.stream-row",
			Title:         "div.stream-info",
			LeagueAttr:    "data-category",
			Link:          "button.watch-btn[onclick]",
			LinkAttr:      "onclick",
			LinkPattern:   `window\.location\.href='([^']+)'`,
			Follow:        "iframe",
			FollowAttr:    "src",
			Time:          "div.stream-time",
			TimeLayout:    "15:04",
			TimeZone:      "GMT",
			FallbackLabel: "ovogoal",
		},
	}
}

// Select returns the sources named in enabled, or all of them when enabled
// is empty.
func Select(sources []Site, enabled []string) []Site {
	if len(enabled) == 0 {
		return sources
	}
	want := make(map[string]struct{}, len(enabled))
	for _, name := range enabled {
		want[name] = struct{}{}
	}
	var out []Site
	for _, s := range sources {
		if _, ok := want[s.Name]; ok {
			out = append(out, s)
		}
	}
	return out
}
