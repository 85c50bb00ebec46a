package apisports

// Detail blocks served under /fixtures/{block}
const (
	BlockEvents     = "events"
	BlockLineups    = "lineups"
	BlockStatistics = "statistics"
	BlockPlayers    = "players"
)

// Blocks lists every detail block a stats record carries.
var Blocks = []string{BlockEvents, BlockLineups, BlockStatistics, BlockPlayers}

// FixtureTeam is one side of a fixture.
type FixtureTeam struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Logo   string `json:"logo"`
	Winner *bool  `json:"winner"`
}

// Fixture is one entry of /fixtures?date=.
type Fixture struct {
	Fixture struct {
		ID       int64  `json:"id"`
		Date     string `json:"date"`
		Timezone string `json:"timezone"`
		Status   struct {
			Long    string `json:"long"`
			Short   string `json:"short"`
			Elapsed *int   `json:"elapsed"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Country string `json:"country"`
		Season  int    `json:"season"`
		Round   string `json:"round"`
	} `json:"league"`
	Teams struct {
		Home FixtureTeam `json:"home"`
		Away FixtureTeam `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

// Day returns the YYYY-MM-DD part of the kickoff time.
func (f Fixture) Day() string {
	if len(f.Fixture.Date) < 10 {
		return f.Fixture.Date
	}
	return f.Fixture.Date[:10]
}

type envelope[T any] struct {
	Response []T `json:"response"`
	Errors   any `json:"errors"`
}
