package store

import (
	"strconv"
	"strings"
)

// Match is a canonical schedule record as written to matches/<LEAGUE>.json.
// Field names follow the artifact format read by the presentation layer.
type Match struct {
	GameID        int64          `json:"GameId"`
	RoundID       int            `json:"RoundId"`
	RoundName     string         `json:"RoundName"`
	Season        *int           `json:"Season,omitempty"`
	Date          string         `json:"Date"`
	DateTime      string         `json:"DateTime"`
	Status        string         `json:"Status"`
	Week          *int           `json:"Week"`
	VenueType     string         `json:"VenueType"`
	HomeTeamID    int64          `json:"HomeTeamId"`
	AwayTeamID    int64          `json:"AwayTeamId"`
	HomeTeamKey   string         `json:"HomeTeamKey"`
	AwayTeamKey   string         `json:"AwayTeamKey"`
	HomeTeamName  string         `json:"HomeTeamName"`
	AwayTeamName  string         `json:"AwayTeamName"`
	HomeTeam      string         `json:"HomeTeam,omitempty"`
	AwayTeam      string         `json:"AwayTeam,omitempty"`
	HomeTeamLogo  string         `json:"HomeTeamLogo"`
	AwayTeamLogo  string         `json:"AwayTeamLogo"`
	HomeTeamScore *int           `json:"HomeTeamScore"`
	AwayTeamScore *int           `json:"AwayTeamScore"`
	Result        *int64         `json:"Result"`
	Points        map[string]int `json:"Points"`
	Goals         []any          `json:"Goals"`
}

// Final reports whether the record already carries a final score.
func (m Match) Final() bool {
	return m.Status == StatusFinal && m.HomeTeamScore != nil && m.AwayTeamScore != nil
}

const (
	StatusFinal     = "Final"
	StatusScheduled = "Scheduled"
	StatusFinished  = "Finished"
)

// Area is the country or region a team belongs to.
type Area struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
	Flag string `json:"flag,omitempty"`
}

// Team is a team-registry record.
type Team struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ShortName  string `json:"shortName"`
	TLA        string `json:"tla"`
	Crest      string `json:"crest"`
	Venue      string `json:"venue,omitempty"`
	Founded    int    `json:"founded,omitempty"`
	ClubColors string `json:"clubColors,omitempty"`
	Website    string `json:"website,omitempty"`
	Area       *Area  `json:"area,omitempty"`
}

// HighlightTeam is one side of a highlight record.
type HighlightTeam struct {
	ID    *int64 `json:"id"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	Logo  string `json:"logo"`
	Score *int   `json:"score"`
}

// Highlight links a highlight video to its match, official or synthesized.
type Highlight struct {
	HighlightID  string         `json:"highlight_id"`
	GameID       *int64         `json:"game_id"`
	League       string         `json:"league"`
	Round        string         `json:"round"`
	Season       *int           `json:"season"`
	Date         string         `json:"date"`
	DateTime     string         `json:"datetime"`
	Status       string         `json:"status"`
	HomeTeam     HighlightTeam  `json:"home_team"`
	AwayTeam     HighlightTeam  `json:"away_team"`
	Result       *int64         `json:"result"`
	Points       map[string]int `json:"points"`
	Goals        []any          `json:"goals"`
	Title        string         `json:"title"`
	HighlightURL string         `json:"highlight_url"`
	EmbedURL     string         `json:"embed_url"`
	MatchType    string         `json:"match_type"`
	Source       string         `json:"source"`
}

const (
	MatchTypeOfficial = "official"
	MatchTypeFallback = "fallback"
)

// FixtureScore holds full-time goals of a fixture.
type FixtureScore struct {
	Home *int `json:"Home"`
	Away *int `json:"Away"`
}

// FixtureStats is a per-fixture detail record linked to a canonical GameId.
type FixtureStats struct {
	StatsID    int64        `json:"StatsId"`
	GameID     int64        `json:"GameId"`
	Date       string       `json:"Date"`
	Status     string       `json:"Status"`
	Round      string       `json:"Round"`
	HomeTeam   string       `json:"HomeTeam"`
	AwayTeam   string       `json:"AwayTeam"`
	Score      FixtureScore `json:"Score"`
	Events     []any        `json:"Events"`
	Lineups    []any        `json:"Lineups"`
	Statistics []any        `json:"Statistics"`
	Players    []any        `json:"Players"`
	HeadToHead []any        `json:"HeadToHead"`
}

// Video is an entry of the shorts or videos feed.
type Video struct {
	VideoID     string   `json:"videoId"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	UploadDate  string   `json:"uploadDate"`
	ChannelName string   `json:"channelName"`
	ChannelLogo string   `json:"channelLogo"`
	EmbedURL    string   `json:"embedUrl"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Duration    int      `json:"duration,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// StreamLink is one entry of a stream listing.
type StreamLink struct {
	Time     string `json:"time"`
	Game     string `json:"game"`
	League   string `json:"league"`
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	Label    string `json:"label"`
	HomeLogo string `json:"home_logo"`
	AwayLogo string `json:"away_logo"`
	URL      string `json:"url"`
	Source   string `json:"source,omitempty"`
}

// TeamRef is the compact team shape embedded in tables and scorer lists.
type TeamRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
	Crest     string `json:"crest"`
}

// StandingRow is one line of a league table.
type StandingRow struct {
	Position       int     `json:"position"`
	Team           TeamRef `json:"team"`
	PlayedGames    int     `json:"playedGames"`
	Form           string  `json:"form,omitempty"`
	Won            int     `json:"won"`
	Draw           int     `json:"draw"`
	Lost           int     `json:"lost"`
	Points         int     `json:"points"`
	GoalsFor       int     `json:"goalsFor"`
	GoalsAgainst   int     `json:"goalsAgainst"`
	GoalDifference int     `json:"goalDifference"`
}

// ScorerPlayer identifies a player in a scorer list.
type ScorerPlayer struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Nationality string `json:"nationality,omitempty"`
	Section     string `json:"section,omitempty"`
}

// Scorer is one line of a top-scorer list.
type Scorer struct {
	Player        ScorerPlayer `json:"player"`
	Team          TeamRef      `json:"team"`
	PlayedMatches int          `json:"playedMatches"`
	Goals         int          `json:"goals"`
	Assists       *int         `json:"assists"`
	Penalties     *int         `json:"penalties"`
}

// Key functions for each record shape. An empty key marks a record that
// cannot be merged.

func MatchKey(m Match) string { return idKey(m.GameID) }

func TeamKey(t Team) string { return idKey(t.ID) }

func HighlightKey(h Highlight) string {
	return CompositeKey(h.HighlightID, h.Date)
}

func FixtureStatsKey(f FixtureStats) string { return idKey(f.StatsID) }

func VideoKey(v Video) string { return strings.TrimSpace(v.VideoID) }

func StreamLinkKey(s StreamLink) string { return strings.TrimSpace(s.URL) }

func StandingRowKey(r StandingRow) string { return idKey(r.Team.ID) }

func ScorerKey(s Scorer) string { return idKey(s.Player.ID) }

// CompositeKey joins parts with a unit separator. It returns "" if any part
// is blank so incomplete identities never collide.
func CompositeKey(parts ...string) string {
	trimmed := make([]string, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		trimmed[i] = p
	}
	return strings.Join(trimmed, "\x1f")
}

func idKey(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
